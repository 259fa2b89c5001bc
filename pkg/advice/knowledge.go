package advice

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/cyclecal/pkg/phase"
)

//go:embed knowledge.yaml
var defaultKnowledgeYAML []byte

// DefaultSearchLimit caps search results when the caller passes no limit.
const DefaultSearchLimit = 3

const (
	maxSearchLimit = 20
	minWordLength  = 3

	scoreSummary = 0.9
	scoreItem    = 0.8
)

var phaseOrder = []phase.Phase{phase.Menstruation, phase.Follicular, phase.Ovulation, phase.Luteal}

// PhaseKnowledge is what the advice service knows about one phase.
type PhaseKnowledge struct {
	Days             string              `yaml:"days" json:"days"`
	Description      string              `yaml:"description" json:"description"`
	Hormones         string              `yaml:"hormones" json:"hormones"`
	PhysicalEffects  []string            `yaml:"physical_effects" json:"physical_effects"`
	CognitiveEffects []string            `yaml:"cognitive_effects" json:"cognitive_effects"`
	ProductivityTips []string            `yaml:"productivity_tips" json:"productivity_tips"`
	Tasks            TaskRecommendations `yaml:"tasks" json:"task_recommendations"`
}

// TaskRecommendations are task keywords per verdict.
type TaskRecommendations struct {
	Good  []string `yaml:"good" json:"good"`
	OK    []string `yaml:"ok" json:"ok"`
	Avoid []string `yaml:"avoid" json:"avoid"`
}

// Document is one knowledge snippet matched by a search.
type Document struct {
	Content   string  `json:"content"`
	Phase     string  `json:"phase"`
	Section   string  `json:"section"`
	Relevance float64 `json:"relevance_score"`
}

// Knowledge is a per-locale, per-phase knowledge base. Unknown locales read
// the "en" entries.
type Knowledge struct {
	locales map[string]map[string]PhaseKnowledge
}

var (
	defaultKnowledge     *Knowledge
	defaultKnowledgeOnce sync.Once
)

// DefaultKnowledge returns the built-in knowledge base.
func DefaultKnowledge() *Knowledge {
	defaultKnowledgeOnce.Do(func() {
		kb, err := ParseKnowledge(defaultKnowledgeYAML)
		if err != nil {
			panic(fmt.Sprintf("advice: built-in knowledge base: %v", err))
		}
		defaultKnowledge = kb
	})
	return defaultKnowledge
}

// LoadKnowledge reads a knowledge base in the built-in YAML layout.
func LoadKnowledge(path string) (*Knowledge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge file: %w", err)
	}
	return ParseKnowledge(data)
}

// ParseKnowledge decodes a knowledge base and checks its locales and phase names.
func ParseKnowledge(data []byte) (*Knowledge, error) {
	var locales map[string]map[string]PhaseKnowledge
	if err := yaml.Unmarshal(data, &locales); err != nil {
		return nil, fmt.Errorf("failed to parse knowledge base: %w", err)
	}
	if _, ok := locales["en"]; !ok {
		return nil, fmt.Errorf("knowledge base has no \"en\" locale")
	}
	for locale, phases := range locales {
		for name := range phases {
			if p, err := phase.Parse(name); err != nil || p == phase.Unknown || string(p) != name {
				return nil, fmt.Errorf("knowledge base locale %s: unknown phase %q", locale, name)
			}
		}
	}
	return &Knowledge{locales: locales}, nil
}

func (k *Knowledge) locale(locale string) map[string]PhaseKnowledge {
	if phases, ok := k.locales[locale]; ok {
		return phases
	}
	return k.locales["en"]
}

// Phase returns the entry for phaseName in locale.
func (k *Knowledge) Phase(phaseName, locale string) (PhaseKnowledge, bool) {
	pk, ok := k.locale(locale)[phaseName]
	return pk, ok
}

// Phases returns every entry of locale keyed by phase name.
func (k *Knowledge) Phases(locale string) map[string]PhaseKnowledge {
	return k.locale(locale)
}

// Search returns snippets containing any query word of at least three
// letters. A phaseName missing from the base searches every phase. Summaries
// rank above list items; ties keep knowledge-base order.
func (k *Knowledge) Search(query, phaseName, locale string, limit int) []Document {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	words := queryWords(query)
	if len(words) == 0 {
		return nil
	}

	phases := k.locale(locale)
	if _, ok := phases[phaseName]; !ok {
		phaseName = ""
	}
	var results []Document
	for _, p := range phaseOrder {
		name := string(p)
		pk, ok := phases[name]
		if !ok || (phaseName != "" && phaseName != name) {
			continue
		}
		add := func(section, content string, score float64) {
			if matchesAny(content, words) {
				results = append(results, Document{Content: content, Phase: name, Section: section, Relevance: score})
			}
		}
		add("description", pk.Description, scoreSummary)
		add("hormones", pk.Hormones, scoreSummary)
		for _, list := range []struct {
			section string
			items   []string
		}{
			{"physical_effects", pk.PhysicalEffects},
			{"cognitive_effects", pk.CognitiveEffects},
			{"productivity_tips", pk.ProductivityTips},
			{"good_tasks", pk.Tasks.Good},
			{"ok_tasks", pk.Tasks.OK},
			{"avoid_tasks", pk.Tasks.Avoid},
		} {
			for _, item := range list.items {
				add(list.section, item, scoreItem)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Verdict reports the first recommendation list (good, ok, avoid) with a
// keyword contained in task.
func (k *Knowledge) Verdict(task, phaseName, locale string) (string, bool) {
	pk, ok := k.Phase(phaseName, locale)
	if !ok {
		return "", false
	}
	task = strings.ToLower(task)
	for _, rec := range []struct {
		verdict  string
		keywords []string
	}{
		{VerdictGood, pk.Tasks.Good},
		{VerdictOK, pk.Tasks.OK},
		{VerdictAvoid, pk.Tasks.Avoid},
	} {
		for _, kw := range rec.keywords {
			if kw != "" && strings.Contains(task, strings.ToLower(kw)) {
				return rec.verdict, true
			}
		}
	}
	return "", false
}

func queryWords(query string) []string {
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		w = strings.Trim(w, ".,;:!?\"'()")
		if utf8.RuneCountInString(w) >= minWordLength {
			words = append(words, w)
		}
	}
	return words
}

func matchesAny(content string, words []string) bool {
	content = strings.ToLower(content)
	for _, w := range words {
		if strings.Contains(content, w) {
			return true
		}
	}
	return false
}

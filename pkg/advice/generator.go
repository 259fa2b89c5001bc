package advice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// Generator produces advice for the server. The server falls back to
// Fallback when a Generator fails.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

const (
	VerdictGood  = "good"
	VerdictOK    = "ok"
	VerdictAvoid = "avoid"
)

// GeminiGenerator asks a Gemini model for a JSON verdict.
type GeminiGenerator struct {
	model  string
	client *genai.Client
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-1.5-flash"

// NewGeminiGenerator reads GOOGLE_API_KEY when config carries no key. The
// client is created once and shared by every request.
func NewGeminiGenerator(ctx context.Context, model string, config *genai.ClientConfig) (*GeminiGenerator, error) {
	if config == nil {
		config = &genai.ClientConfig{}
	}
	if config.APIKey == "" {
		config.APIKey = os.Getenv("GOOGLE_API_KEY")
	}
	// An injected HTTP client (tests, proxies) may authenticate on its own.
	if config.APIKey == "" && config.HTTPClient == nil {
		return nil, fmt.Errorf("GOOGLE_API_KEY environment variable not set")
	}
	if config.Backend == genai.BackendUnspecified {
		config.Backend = genai.BackendGeminiAPI
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiGenerator{model: model, client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (Response, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt(req.Locale)}}},
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userPrompt(req)), config)
	if err != nil {
		return Response{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("no content generated")
	}

	var jsonStr string
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			jsonStr += part.Text
		}
	}
	return parseModelOutput(jsonStr)
}

func parseModelOutput(raw string) (Response, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimSuffix(strings.TrimPrefix(raw, "```"), "```")

	var out Response
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return Response{}, fmt.Errorf("failed to parse model JSON: %w", err)
	}
	out.Verdict = normalizeVerdict(out.Verdict)
	return out, nil
}

func normalizeVerdict(v string) string {
	switch v {
	case VerdictGood, VerdictOK, VerdictAvoid:
		return v
	}
	return VerdictOK
}

func systemPrompt(locale string) string {
	if locale == "ru" {
		return `Ты - эксперт по женскому здоровью и менструальному циклу.
Анализируй задачи с учетом фазы менструального цикла и давай персональные советы.
Отвечай на русском языке в формате JSON с полями: verdict, reason, suggestion.
verdict может быть: "good", "ok", "avoid".`
	}
	return `You are an expert in women's health and the menstrual cycle.
Analyze tasks considering the current cycle phase and give personalized advice.
Respond in JSON with fields: verdict, reason, suggestion.
verdict is one of "good", "ok", "avoid".`
}

func userPrompt(req Request) string {
	ru := req.Locale == "ru"
	var b strings.Builder
	if ru {
		fmt.Fprintf(&b, "Фаза цикла: %s\nЗадача: %s\n", req.Phase, req.Task)
	} else {
		fmt.Fprintf(&b, "Cycle phase: %s\nTask: %s\n", req.Phase, req.Task)
	}
	if len(req.Context) > 0 {
		if ru {
			b.WriteString("\nСправочная информация:\n")
		} else {
			b.WriteString("\nBackground:\n")
		}
		for i, doc := range req.Context {
			fmt.Fprintf(&b, "%d. %s (%s, %s)\n", i+1, doc.Content, doc.Phase, doc.Section)
		}
	}
	if ru {
		b.WriteString("\nПроанализируй эту задачу с учетом фазы цикла и дай совет.")
	} else {
		b.WriteString("\nAnalyze this task considering the cycle phase and give advice.")
	}
	return b.String()
}

type fallbackEntry struct {
	verdict    string
	reason     string
	suggestion string
}

var fallbackTable = map[string]map[string]fallbackEntry{
	"en": {
		"menstruation": {VerdictAvoid, "low energy", "postpone or simplify the task"},
		"follicular":   {VerdictGood, "a good time to start", "plan the first steps"},
		"ovulation":    {VerdictGood, "communication peak", "schedule meetings and presentations"},
		"luteal":       {VerdictOK, "focus and completion", "split it into subtasks"},
		"unknown":      {VerdictOK, "not enough data", "go by how you feel"},
	},
	"ru": {
		"menstruation": {VerdictAvoid, "низкая энергия", "перенеси или упрости задачу"},
		"follicular":   {VerdictGood, "хорошее время для старта", "запланируй первые шаги"},
		"ovulation":    {VerdictGood, "пик коммуникаций", "назначь встречи/презентации"},
		"luteal":       {VerdictOK, "фокус и завершение", "разбей на подзадачи"},
		"unknown":      {VerdictOK, "недостаточно данных", "ориентируйся на самочувствие"},
	},
}

// Fallback is the canned per-phase answer.
func Fallback(phaseName, locale string) Response {
	table, ok := fallbackTable[locale]
	if !ok {
		table = fallbackTable["en"]
	}
	e, ok := table[phaseName]
	if !ok {
		e = table["unknown"]
	}
	return Response{Verdict: e.verdict, Reason: e.reason, Suggestion: e.suggestion}
}

// FallbackGenerator answers from the canned table. With Knowledge set, a
// task keyword picks the verdict, and the first retrieved snippet becomes
// the reason.
type FallbackGenerator struct {
	Knowledge *Knowledge
}

func (g FallbackGenerator) Generate(_ context.Context, req Request) (Response, error) {
	resp := Fallback(req.Phase, req.Locale)
	if g.Knowledge != nil {
		if verdict, ok := g.Knowledge.Verdict(req.Task, req.Phase, req.Locale); ok {
			resp.Verdict = verdict
		}
	}
	if len(req.Context) > 0 {
		resp.Reason = req.Context[0].Content
	}
	return resp, nil
}

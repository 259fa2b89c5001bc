package orgmode

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/harrisonrobin/cyclecal/pkg/datekey"
	"github.com/harrisonrobin/cyclecal/pkg/model"
)

const source = "orgmode"

var (
	todoRegex     = regexp.MustCompile(`^\*+ TODO\s*(?:\[#([A-Z])\])?\s*(.*?)(?:\s+(:(\w+(:\w+)*):))?\s*$`)
	headlineRegex = regexp.MustCompile(`^\*+ `)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})[^>]*>`)
	idRegex       = regexp.MustCompile(`:ID:\s+([a-fA-F0-9-]+)`)
)

func parseFile(filePath string) ([]model.Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file)
}

// ParseFiles parses multiple Org-mode files.
func ParseFiles(filePaths []string) ([]model.Entry, error) {
	var all []model.Entry
	for _, filePath := range filePaths {
		entries, err := parseFile(filePath)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
	}
	return all, nil
}

// Parse returns the TODO headlines of r that carry a DEADLINE, dated on
// the deadline's day. DONE items and undated TODOs are skipped.
func Parse(r io.Reader) ([]model.Entry, error) {
	scanner := bufio.NewScanner(r)
	var entries []model.Entry
	var current *model.Entry

	flush := func() {
		if current != nil && current.Text != "" && current.Day.Valid() {
			entries = append(entries, *current)
		}
		current = nil
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if headlineRegex.MatchString(line) {
			flush()
			matches := todoRegex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			current = &model.Entry{Source: source, Text: strings.TrimSpace(matches[2])}
			if tags := strings.Trim(matches[3], ":"); tags != "" {
				current.Tags = strings.Split(tags, ":")
			}
			continue
		}
		if current == nil {
			continue
		}
		if matches := deadlineRegex.FindStringSubmatch(line); len(matches) > 0 {
			if day, err := datekey.ParseISO(matches[1]); err == nil {
				current.Day = day
			}
		} else if matches := idRegex.FindStringSubmatch(line); len(matches) > 0 {
			current.SourceID = matches[1]
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

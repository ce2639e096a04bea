// Package prompts builds question generation prompts from embedded templates.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"

	"github.com/Tarunkasliwal/qpg/internal/model"
)

//go:embed templates/*.txt
var templateFS embed.FS

// MaxSyllabusRunes caps the syllabus text sent to the model.
const MaxSyllabusRunes = 20000

var controlRegex = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)

// PromptVariant represents a generation prompt variant.
type PromptVariant string

const (
	// PromptStrict asks for [CO:x] [BT:y] tags on every question.
	PromptStrict PromptVariant = "strict"
	// PromptStandard asks for untagged questions.
	PromptStandard PromptVariant = "standard"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// Tagged reports whether the variant asks the model for CO/BT tags.
func (v PromptVariant) Tagged() bool {
	return v == PromptStrict
}

// FormatLine is one numbered placeholder in the requested output format.
type FormatLine struct {
	N     int
	Marks int
}

// Data holds template data for generation prompts.
type Data struct {
	Units    []string
	PerTier  int
	Lines    []FormatLine
	Syllabus string
}

func load() error {
	loadOnce.Do(func() {
		templates = make(map[PromptVariant]*template.Template)
		for v := range validVariants {
			file := "templates/" + string(v) + ".txt"
			content, err := templateFS.ReadFile(file)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", file, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", file, err)
				return
			}
			templates[v] = tmpl
		}
	})
	return loadErr
}

// Build renders the prompt for variant. It asks for perTier questions of
// each tier for every label, numbered 4-mark first.
func Build(variant PromptVariant, perTier int, labels []string, syllabus string) (string, error) {
	if err := load(); err != nil {
		return "", fmt.Errorf("templates load failed: %w", err)
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}
	if perTier < 1 {
		return "", fmt.Errorf("questions per tier must be positive, got %d", perTier)
	}
	if len(labels) == 0 {
		return "", errors.New("no units to generate questions for")
	}

	data := Data{
		Units:    labels,
		PerTier:  perTier,
		Lines:    formatLines(perTier),
		Syllabus: sanitizeSyllabus(syllabus),
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func formatLines(perTier int) []FormatLine {
	lines := make([]FormatLine, 0, perTier*len(model.Tiers))
	n := 1
	for _, t := range model.Tiers {
		for range perTier {
			lines = append(lines, FormatLine{N: n, Marks: int(t)})
			n++
		}
	}
	return lines
}

func sanitizeSyllabus(text string) string {
	text = controlRegex.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxSyllabusRunes {
		runes := []rune(text)
		text = string(runes[:MaxSyllabusRunes]) + "\n[Syllabus truncated]"
	}
	return text
}

// Package prompts renders the text/template prompts sent to question
// generators.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

// Templates holds the built-in prompt files under templates/.
//
//go:embed templates/*.txt
var Templates embed.FS

// Kind names a generation prompt.
type Kind string

const (
	// KindQuestion asks for one multiple-choice question on a topic.
	KindQuestion Kind = "question"
	// KindExamPaper asks for a full paper on a subject from a document.
	KindExamPaper Kind = "exam_paper"
	// KindExtract asks the model to parse an existing question paper.
	KindExtract Kind = "extract"
	// KindWorksheet asks for a mixed worksheet from a document.
	KindWorksheet Kind = "worksheet"
)

const (
	kindSystem Kind = "system"

	// DefaultLevel is the learner level written into every prompt.
	DefaultLevel = "A1-level"

	maxLabelRunes = 200
)

var kinds = []Kind{kindSystem, KindQuestion, KindExamPaper, KindExtract, KindWorksheet}

var tagRegex = regexp.MustCompile(`(?i)</?\s*(system-instructions|source-document|topic|subject)\b[^>]*>`)

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[Kind]*template.Template
)

// Data is the template input. Fields a prompt does not use are ignored.
type Data struct {
	Level       string
	Topic       string
	Subject     string
	Count       int
	MCQCount    int
	OtherCount  int
	Difficulty  string
	HasDocument bool
}

// Load parses the prompt templates from fsys, normally Templates. Only the
// first call has any effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		templates, loadErr = parse(fsys)
	})
	return loadErr
}

func parse(fsys fs.FS) (map[Kind]*template.Template, error) {
	out := make(map[Kind]*template.Template, len(kinds))
	for _, k := range kinds {
		name := "templates/" + string(k) + ".txt"
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("read prompt file %s: %w", name, err)
		}
		tmpl, err := template.New(string(k)).Option("missingkey=error").Parse(string(content))
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		out[k] = tmpl
	}
	return out, nil
}

// System renders the system prompt shared by every kind.
func System(level string) (string, error) {
	return render(kindSystem, Data{Level: level})
}

// Build renders the user prompt of the given kind. Topic and subject are
// sanitized before they reach the template.
func Build(kind Kind, d Data) (string, error) {
	if kind == kindSystem {
		return "", fmt.Errorf("invalid prompt kind: %s", kind)
	}
	d.Topic = sanitizeLabel(d.Topic)
	d.Subject = sanitizeLabel(d.Subject)
	return render(kind, d)
}

func render(kind Kind, d Data) (string, error) {
	if templates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[kind]
	if !ok {
		return "", fmt.Errorf("invalid prompt kind: %s", kind)
	}
	if d.Level == "" {
		d.Level = DefaultLevel
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

// sanitizeLabel strips prompt delimiters and newlines from user-supplied
// topic or subject names and caps their length.
func sanitizeLabel(s string) string {
	s = tagRegex.ReplaceAllString(s, "")
	s = strings.Join(strings.Fields(s), " ")
	s = strings.ReplaceAll(s, `"`, "'")
	if utf8.RuneCountInString(s) > maxLabelRunes {
		s = string([]rune(s)[:maxLabelRunes])
	}
	return s
}

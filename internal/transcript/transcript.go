// Package transcript writes each prompt and reply exchanged with the model to
// a Markdown file with front matter.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

type Entry struct {
	File   string // source document path
	Label  string // item label, e.g. "Intro" or "Part 2 of 4"
	Model  string
	Prompt string
	Reply  string
	Time   time.Time
}

func (e Entry) title() string {
	name := strings.TrimSuffix(filepath.Base(e.File), filepath.Ext(e.File))
	if e.Label == "" {
		return name
	}
	return name + " - " + e.Label
}

type Writer struct {
	Dir string
}

func NewWriter(dir string) *Writer { return &Writer{Dir: dir} }

// Write stores e as <slug>.md, adding a numeric suffix instead of
// overwriting an earlier transcript. It returns the path written.
func (w *Writer) Write(e Entry) (string, error) {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", err
	}
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	slug := slugify(e.title())
	if slug == "" {
		slug = "transcript"
	}
	content := render(e)
	for i := 1; ; i++ {
		name := slug + ".md"
		if i > 1 {
			name = fmt.Sprintf("%s-%d.md", slug, i)
		}
		path := filepath.Join(w.Dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.WriteString(content); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

func render(e Entry) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: \"%s\"\n", escapeQuotes(e.title()))
	fmt.Fprintf(&b, "source: \"%s\"\n", escapeQuotes(e.File))
	if e.Model != "" {
		fmt.Fprintf(&b, "model: \"%s\"\n", escapeQuotes(e.Model))
	}
	fmt.Fprintf(&b, "created: %s\n", e.Time.Format(time.RFC3339))
	b.WriteString("---\n\n")
	b.WriteString("# " + e.title() + "\n\n")
	b.WriteString("## Prompt\n\n")
	b.WriteString(strings.TrimSpace(e.Prompt) + "\n\n")
	b.WriteString("## Response\n\n")
	b.WriteString(StripCodeFences(e.Reply) + "\n")
	return b.String()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9\-]+`)

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "/", "-", ".", "-").Replace(s)
	s = nonSlug.ReplaceAllString(s, "-")
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "-")
	}
	return strings.Trim(s, "-")
}

func escapeQuotes(s string) string { return strings.ReplaceAll(s, "\"", "\\\"") }

// StripCodeFences unwraps a reply the model wrapped whole in ``` fences.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	if i := strings.Index(s, "\n"); i != -1 {
		s = s[i+1:]
	} else {
		s = s[3:]
	}
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}

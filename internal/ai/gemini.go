package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	genai "google.golang.org/genai"

	"github.com/thywilljoshua/chapter-runner/internal/toc"
	"github.com/thywilljoshua/chapter-runner/internal/transcript"
)

const DefaultModel = "gemini-2.5-flash"

var (
	ErrNoAPIKey   = errors.New("missing Gemini API key (set gemini.api_key or GOOGLE_API_KEY)")
	ErrEmptyReply = errors.New("model returned an empty reply")
)

// generator is the part of *genai.Models the driver uses.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini sends jobs straight to the model behind AI Studio and records each
// reply. Unlike the UI driver it knows whether a request succeeded.
type Gemini struct {
	models      generator
	model       string
	limiter     *rate.Limiter
	Transcripts *transcript.Writer
}

func NewGemini(ctx context.Context, apiKey, model string, requestsPerMinute int) (*Gemini, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGemini(c.Models, model, requestsPerMinute), nil
}

func newGemini(models generator, model string, requestsPerMinute int) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &Gemini{models: models, model: model, limiter: rate.NewLimiter(limit, 1)}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) SupportsFiles() bool { return true }

func (g *Gemini) Model() string { return g.model }

func (g *Gemini) generate(ctx context.Context, parts ...*genai.Part) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	res, err := g.models.GenerateContent(ctx, g.model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	out := res.Text()
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyReply
	}
	return out, nil
}

func (g *Gemini) Perform(ctx context.Context, job Job) error {
	var parts []*genai.Part
	if job.Payload.IsFile() {
		b, err := os.ReadFile(job.Payload.FilePath)
		if err != nil {
			return err
		}
		parts = []*genai.Part{
			{InlineData: &genai.Blob{MIMEType: "text/plain", Data: b}},
			{Text: job.Prompt},
		}
	} else {
		parts = []*genai.Part{{Text: ComposeText(job.Prompt, job.Payload.Text)}}
	}

	start := time.Now()
	reply, err := g.generate(ctx, parts...)
	if err != nil {
		return err
	}
	ev := log.Info().Str("file", job.File).Str("label", job.Label).
		Int("reply_chars", len(reply)).Dur("took", time.Since(start))
	if g.Transcripts != nil {
		path, err := g.Transcripts.Write(transcript.Entry{
			File:   job.File,
			Label:  job.Label,
			Model:  g.model,
			Prompt: job.Prompt,
			Reply:  reply,
		})
		if err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		ev = ev.Str("transcript", path)
	}
	ev.Msg("reply received")
	return nil
}

const detectPrompt = `You are a document outline parser. Return ONLY valid JSON - no markdown code blocks, no explanations.

List the chapters of this PDF with the pages each one covers.
Output ONLY this JSON structure:
{
  "sections": [
    {"number": "1", "title": "Introduction", "start_page": 4, "end_page": 9, "depth": 1}
  ]
}

RULES:
- number: the numbering printed in the document (1, 1.1, IV, A), or "" if none
- title: section title without the number
- depth: 1 for top-level sections, 2 for their subsections, and so on
- start_page/end_page: 1-based PDF page indexes, not printed page labels
- include sections down to depth %d
`

// DetectChapters asks the model for the outline of a PDF. It serves documents
// without a machine-readable table of contents.
func (g *Gemini) DetectChapters(ctx context.Context, pdfPath string, maxDepth int) ([]toc.Section, error) {
	if maxDepth <= 0 {
		maxDepth = 1
	}
	b, err := os.ReadFile(pdfPath)
	if err != nil {
		return nil, err
	}
	js, err := g.generate(ctx,
		&genai.Part{Text: fmt.Sprintf(detectPrompt, maxDepth)},
		&genai.Part{InlineData: &genai.Blob{MIMEType: "application/pdf", Data: b}},
	)
	if err != nil {
		return nil, err
	}
	secs, err := parseOutline(js)
	if err != nil {
		return nil, err
	}
	var out []toc.Section
	for _, s := range secs {
		if s.Depth <= maxDepth && s.Start > 0 {
			if s.End < s.Start {
				s.End = s.Start
			}
			out = append(out, s)
		}
	}
	log.Debug().Str("file", pdfPath).Int("sections", len(out)).Msg("outline detected by model")
	return out, nil
}

func parseOutline(js string) ([]toc.Section, error) {
	var doc struct {
		Sections []toc.Section `json:"sections"`
	}
	js = transcript.StripCodeFences(js)
	if err := json.Unmarshal([]byte(js), &doc); err != nil {
		s := findFirstJSON(js)
		if s == "" {
			return nil, fmt.Errorf("failed to parse model reply - no JSON found: %w", err)
		}
		if err2 := json.Unmarshal([]byte(s), &doc); err2 != nil {
			return nil, fmt.Errorf("failed to parse model reply as JSON: %w (original error: %v)", err2, err)
		}
	}
	return doc.Sections, nil
}

// findFirstJSON returns the first balanced {...} object in s.
func findFirstJSON(s string) string {
	start, depth := -1, 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}

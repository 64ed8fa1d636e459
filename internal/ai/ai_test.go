package ai

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	genai "google.golang.org/genai"

	"github.com/thywilljoshua/chapter-runner/internal/extract"
	"github.com/thywilljoshua/chapter-runner/internal/transcript"
)

// fakeDesktop records every gesture in order.
type fakeDesktop struct {
	events    []string
	clip      string
	files     bool
	filesErr  error
	hotkeyErr error
}

func (f *fakeDesktop) WriteText(s string) error {
	f.clip = s
	f.events = append(f.events, "clip:text")
	return nil
}

func (f *fakeDesktop) WriteFiles(paths ...string) error {
	if f.filesErr != nil {
		return f.filesErr
	}
	f.clip = strings.Join(paths, ",")
	f.events = append(f.events, "clip:file")
	return nil
}

func (f *fakeDesktop) SupportsFiles() bool { return f.files }

func (f *fakeDesktop) Hotkey(keys ...string) error {
	if f.hotkeyErr != nil {
		return f.hotkeyErr
	}
	f.events = append(f.events, "key:"+strings.Join(keys, "+"))
	return nil
}

func (f *fakeDesktop) Open(url string) error {
	f.events = append(f.events, "open:"+url)
	return nil
}

func newTestUI(d *fakeDesktop) (*UI, *[]time.Duration) {
	var waits []time.Duration
	u := &UI{Clipboard: d, Keyboard: d, Browser: d, URL: "https://studio.test", Delays: DefaultUIDelays()}
	u.sleep = func(ctx context.Context, dur time.Duration) error {
		d.events = append(d.events, "wait:"+dur.String())
		waits = append(waits, dur)
		return ctx.Err()
	}
	return u, &waits
}

func TestComposeText(t *testing.T) {
	assert.Equal(t, "Summarize X\n\nRelevant Text:\nbody", ComposeText("Summarize X", "body"))
}

func TestUITextJob(t *testing.T) {
	d := &fakeDesktop{}
	u, _ := newTestUI(d)
	err := u.Perform(context.Background(), Job{File: "/a.pdf", Label: "Intro", Prompt: "Summarize Intro", Payload: extract.Payload{Text: "page text"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"clip:text",
		"open:https://studio.test",
		"wait:5s",
		"key:ctrl+v",
		"wait:2s",
		"key:ctrl+enter",
		"wait:1s",
	}, d.events)
	assert.Equal(t, "Summarize Intro\n\nRelevant Text:\npage text", d.clip)
}

func TestUIFileJob(t *testing.T) {
	d := &fakeDesktop{files: true}
	u, _ := newTestUI(d)
	assert.True(t, SupportsFiles(u))
	err := u.Perform(context.Background(), Job{Label: "Entire File", Prompt: "Summarize it", Payload: extract.Payload{FilePath: "/notes.txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"clip:file",
		"open:https://studio.test",
		"wait:5s",
		"key:ctrl+v",
		"wait:2s",
		"wait:10s",
		"clip:text",
		"key:ctrl+v",
		"wait:1s",
		"key:ctrl+enter",
		"wait:1s",
	}, d.events)
	assert.Equal(t, "Summarize it", d.clip)
}

func TestUIFileCopyFallsBackToText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
	d := &fakeDesktop{files: true, filesErr: errors.New("powershell failed")}
	u, _ := newTestUI(d)
	require.NoError(t, u.Perform(context.Background(), Job{Prompt: "P", Payload: extract.Payload{FilePath: path}}))
	assert.Equal(t, "clip:text", d.events[0])
	assert.NotContains(t, d.events, "wait:10s")
	assert.Equal(t, "P\n\nRelevant Text:\nhello", d.clip)
}

func TestUIStopsOnError(t *testing.T) {
	d := &fakeDesktop{hotkeyErr: errors.New("xdotool missing")}
	u, _ := newTestUI(d)
	err := u.Perform(context.Background(), Job{Payload: extract.Payload{Text: "x"}})
	assert.ErrorContains(t, err, "xdotool missing")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d = &fakeDesktop{}
	u, _ = newTestUI(d)
	assert.ErrorIs(t, u.Perform(ctx, Job{Payload: extract.Payload{Text: "x"}}), context.Canceled)
	assert.NotContains(t, d.events, "key:ctrl+v")
}

func TestNoop(t *testing.T) {
	var out bytes.Buffer
	n := Noop{Out: &out}
	assert.False(t, SupportsFiles(n))
	require.NoError(t, n.Perform(context.Background(), Job{File: "/a.pdf", Label: "Intro", Prompt: "P", Payload: extract.Payload{Text: "T"}}))
	assert.Equal(t, "=== /a.pdf: Intro ===\nP\n\nRelevant Text:\nT\n\n", out.String())
}

type fakeModels struct {
	reply    string
	err      error
	contents []*genai.Content
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.contents = contents
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.reply, genai.RoleModel)}},
	}, nil
}

func TestGeminiPerform(t *testing.T) {
	dir := t.TempDir()
	fm := &fakeModels{reply: "A fine summary."}
	g := newGemini(fm, "", 0)
	g.Transcripts = transcript.NewWriter(dir)
	assert.Equal(t, DefaultModel, g.Model())

	require.NoError(t, g.Perform(context.Background(), Job{File: "/books/a.pdf", Label: "Intro", Prompt: "Summarize Intro", Payload: extract.Payload{Text: "body"}}))
	require.Len(t, fm.contents, 1)
	parts := fm.contents[0].Parts
	require.Len(t, parts, 1)
	assert.Equal(t, "Summarize Intro\n\nRelevant Text:\nbody", parts[0].Text)

	raw, err := os.ReadFile(filepath.Join(dir, "a-intro.md"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "A fine summary.")
}

func TestGeminiFilePayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("file body"), 0o644))
	fm := &fakeModels{reply: "ok"}
	g := newGemini(fm, "m", 60)
	require.NoError(t, g.Perform(context.Background(), Job{Prompt: "P", Payload: extract.Payload{FilePath: path}}))
	parts := fm.contents[0].Parts
	require.Len(t, parts, 2)
	assert.Equal(t, "text/plain", parts[0].InlineData.MIMEType)
	assert.Equal(t, []byte("file body"), parts[0].InlineData.Data)
	assert.Equal(t, "P", parts[1].Text)
}

func TestGeminiErrors(t *testing.T) {
	g := newGemini(&fakeModels{err: errors.New("quota")}, "", 0)
	assert.ErrorContains(t, g.Perform(context.Background(), Job{}), "quota")

	g = newGemini(&fakeModels{reply: "  "}, "", 0)
	assert.ErrorIs(t, g.Perform(context.Background(), Job{}), ErrEmptyReply)

	_, err := NewGemini(context.Background(), "", "", 0)
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestDetectChapters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	reply := "```json\n{\"sections\": [" +
		"{\"number\": \"1\", \"title\": \"Intro\", \"start_page\": 1, \"end_page\": 4, \"depth\": 1}," +
		"{\"number\": \"1.1\", \"title\": \"Sub\", \"start_page\": 2, \"end_page\": 3, \"depth\": 2}," +
		"{\"number\": \"2\", \"title\": \"Body\", \"start_page\": 5, \"end_page\": 0, \"depth\": 1}]}\n```"
	fm := &fakeModels{reply: reply}
	g := newGemini(fm, "", 0)
	secs, err := g.DetectChapters(context.Background(), path, 1)
	require.NoError(t, err)
	require.Len(t, secs, 2)
	assert.Equal(t, "1 Intro", secs[0].Name())
	assert.Equal(t, 5, secs[1].End)
	assert.Equal(t, "application/pdf", fm.contents[0].Parts[1].InlineData.MIMEType)
}

func TestParseOutlineWithChatter(t *testing.T) {
	secs, err := parseOutline("Here you go: {\"sections\": [{\"title\": \"X\", \"start_page\": 3, \"end_page\": 4, \"depth\": 1}]} Thanks!")
	require.NoError(t, err)
	require.Len(t, secs, 1)
	assert.Equal(t, "X", secs[0].Name())

	_, err = parseOutline("no json at all")
	assert.Error(t, err)
}

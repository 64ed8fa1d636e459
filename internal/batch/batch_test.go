package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/chapter-runner/internal/ai"
	"github.com/thywilljoshua/chapter-runner/internal/extract"
	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

type fakeDriver struct {
	mu    sync.Mutex
	jobs  []ai.Job
	files bool
	fail  map[string]error // by label
	block chan struct{}
}

func (f *fakeDriver) Name() string        { return "fake" }
func (f *fakeDriver) SupportsFiles() bool { return f.files }

func (f *fakeDriver) Perform(ctx context.Context, job ai.Job) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs = append(f.jobs, job)
	return f.fail[job.Label]
}

func noSleep(r *Runner) *[]time.Duration {
	var waits []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return ctx.Err()
	}
	return &waits
}

func writeText(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestBatchQueue(t *testing.T) {
	lib := library.New()
	other, _ := lib.AddFolder("Other")
	a, _ := lib.AddFile("/docs/a.pdf", "")
	b, _ := lib.AddFile("/docs/b.txt", "")
	c, _ := lib.AddFile("/docs/c.pdf", other.ID)
	_, _ = lib.AddChapter(a.ID, "Intro", "1-3")
	_, _ = lib.AddChapter(a.ID, "", "4")
	_, _ = lib.AddChapter(b.ID, "Notes", "")
	_, _ = lib.AddChapter(c.ID, "Hidden", "")

	items, err := Batch(lib, library.ViewUncategorized, prompt.Slot1)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Intro", items[0].Label)
	assert.Equal(t, "1-3", items[0].Pages)
	assert.Equal(t, prompt.Unspecified, items[1].Label)
	assert.Equal(t, "Notes", items[2].Label)
	assert.Equal(t, "Please summarize the 'Intro' section from the attached file.", items[0].Prompt())
	assert.Equal(t, "a.pdf - Intro (pages 1-3)", items[0].String())

	all, err := Batch(lib, library.ViewAll, prompt.Slot2)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	empty := library.New()
	_, err = Batch(empty, library.ViewAll, prompt.Slot1)
	assert.ErrorIs(t, err, ErrNothingToDo)

	_, err = Batch(lib, library.ViewAll, "nope")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestSingleAndEntireFile(t *testing.T) {
	lib := library.New()
	f, _ := lib.AddFile("/docs/a.pdf", "")
	ch, _ := lib.AddChapter(f.ID, "Method", "5-9")

	items, err := Single(lib, ch.ID, prompt.Slot3)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Extract actionable items from the 'Method' section in the attached file.", items[0].Prompt())

	items, err = EntireFile(lib, "a.pdf", prompt.Slot1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, prompt.EntireFile, items[0].Label)
	assert.Empty(t, items[0].Pages)
}

func TestFullBookQueue(t *testing.T) {
	lib := library.New()
	a, _ := lib.AddFile("/docs/a.pdf", "")
	_, _ = lib.AddFile("/docs/b.pdf", "")
	require.NoError(t, lib.SetTotalChapters(a.ID, 4))

	items, err := FullBook(lib, library.ViewAll, "", "")
	require.NoError(t, err)
	require.Len(t, items, 4)
	for i, it := range items {
		assert.Equal(t, a.ID, it.File.ID)
		assert.Equal(t, prompt.PartLabel(i+1, 4), it.Label)
		assert.Equal(t, &extract.Part{Index: i + 1, Count: 4}, it.Part)
	}
	assert.Contains(t, items[1].Prompt(), "Part 2 of 4")

	_, err = FullBook(lib, library.ViewAll, "b.pdf", "")
	assert.ErrorIs(t, err, library.ErrInvalid)
	_, err = FullBook(lib, library.ViewUncategorized, "", "nope")
	assert.ErrorIs(t, err, library.ErrNotFound)
}

func TestRunMissingFileIsIsolated(t *testing.T) {
	dir := t.TempDir()
	lib := library.New()
	for _, name := range []string{"one.txt", "two.txt", "three.txt"} {
		f, err := lib.AddFile(writeText(t, dir, name, "text of "+name), "")
		require.NoError(t, err)
		_, err = lib.AddChapter(f.ID, name, "")
		require.NoError(t, err)
	}
	items, err := Batch(lib, library.ViewAll, prompt.Slot1)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "two.txt")))

	d := &fakeDriver{}
	r := NewRunner(d, Options{})
	noSleep(r)
	var phases []Phase
	sum, err := r.Run(context.Background(), items, func(p Progress) { phases = append(phases, p.Phase) })
	require.NoError(t, err)

	assert.Equal(t, Completed, sum.State)
	assert.Equal(t, Completed, r.State())
	assert.Equal(t, 2, sum.Processed)
	require.Len(t, sum.Failures, 1)
	assert.Equal(t, "two.txt", sum.Failures[0].Item.Label)
	assert.ErrorIs(t, sum.Failures[0].Err, extract.ErrMissing)
	assert.Equal(t, 0, sum.Skipped())
	assert.Equal(t, []Phase{Started, Succeeded, Started, Failed, Started, Succeeded}, phases)

	require.Len(t, d.jobs, 2)
	assert.Equal(t, "text of one.txt", d.jobs[0].Payload.Text)
	assert.Equal(t, "Please summarize the 'three.txt' section from the attached file.", d.jobs[1].Prompt)
}

func TestRunAbortOnError(t *testing.T) {
	dir := t.TempDir()
	path := writeText(t, dir, "a.txt", "x")
	f := library.File{ID: "f1", Path: path, Type: library.TXT}
	items := []Item{
		{File: f, Label: "ok", Template: "T"},
		{File: f, Label: "bad", Template: "T"},
		{File: f, Label: "never", Template: "T"},
	}
	d := &fakeDriver{fail: map[string]error{"bad": errors.New("clipboard unavailable")}}
	r := NewRunner(d, Options{Policy: AbortOnError})
	noSleep(r)
	sum, err := r.Run(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Equal(t, Aborted, sum.State)
	assert.Equal(t, 1, sum.Processed)
	assert.Len(t, sum.Failures, 1)
	assert.Equal(t, 1, sum.Skipped())
}

func TestRunDelays(t *testing.T) {
	dir := t.TempDir()
	a := library.File{ID: "a", Path: writeText(t, dir, "a.txt", "a"), Type: library.TXT}
	b := library.File{ID: "b", Path: writeText(t, dir, "b.txt", "b"), Type: library.TXT}
	items := []Item{{File: a, Label: "1"}, {File: a, Label: "2"}, {File: b, Label: "3"}}
	r := NewRunner(&fakeDriver{}, Options{Delays: Delays{Item: 3 * time.Second, File: 4 * time.Second}})
	waits := noSleep(r)
	_, err := r.Run(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second, 4 * time.Second}, *waits)
}

func TestRunFullBookText(t *testing.T) {
	dir := t.TempDir()
	lib := library.New()
	f, err := lib.AddFile(writeText(t, dir, "book.txt", "abcdefghij"), "")
	require.NoError(t, err)
	require.NoError(t, lib.SetTotalChapters(f.ID, 3))
	items, err := FullBook(lib, library.ViewAll, "", "")
	require.NoError(t, err)

	d := &fakeDriver{files: true}
	r := NewRunner(d, Options{})
	noSleep(r)
	sum, err := r.Run(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Processed)
	var got []string
	for _, j := range d.jobs {
		assert.False(t, j.Payload.IsFile())
		got = append(got, j.Payload.Text)
	}
	assert.Equal(t, []string{"abcd", "efg", "hij"}, got)
}

func TestEntireTextFileByReference(t *testing.T) {
	dir := t.TempDir()
	path := writeText(t, dir, "notes.txt", "body")
	items := []Item{{File: library.File{ID: "n", Path: path, Type: library.TXT}, Label: prompt.EntireFile, Template: "Read {CHAPTERS}"}}
	d := &fakeDriver{files: true}
	r := NewRunner(d, Options{})
	_, err := r.Run(context.Background(), items, nil)
	require.NoError(t, err)
	require.Len(t, d.jobs, 1)
	assert.Equal(t, path, d.jobs[0].Payload.FilePath)
	assert.Equal(t, "Read Entire File", d.jobs[0].Prompt)
}

func TestBusyAndCancel(t *testing.T) {
	dir := t.TempDir()
	f := library.File{ID: "a", Path: writeText(t, dir, "a.txt", "a"), Type: library.TXT}
	items := []Item{{File: f, Label: "1"}, {File: f, Label: "2"}}
	d := &fakeDriver{block: make(chan struct{})}
	r := NewRunner(d, Options{})
	noSleep(r)
	assert.Equal(t, Idle, r.State())

	ctx, cancel := context.WithCancel(context.Background())
	run, err := r.Start(ctx, items)
	require.NoError(t, err)
	first := <-run.Events()
	assert.Equal(t, Started, first.Phase)
	assert.Equal(t, Running, r.State())

	_, err = r.Start(context.Background(), items)
	assert.ErrorIs(t, err, ErrBusy)

	cancel()
	for range run.Events() {
	}
	sum := run.Wait()
	assert.Equal(t, Aborted, sum.State)
	assert.Equal(t, Aborted, r.State())
	assert.Equal(t, 0, sum.Processed)
	assert.Equal(t, 2, sum.Skipped())

	// the runner is free again
	d.block = nil
	sum, err = r.Run(context.Background(), items, nil)
	require.NoError(t, err)
	assert.Equal(t, Completed, sum.State)
}

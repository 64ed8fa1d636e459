package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/store"
	"github.com/thywilljoshua/chapter-runner/internal/testutil"
)

type env struct {
	t     *testing.T
	dir   string
	state string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("GOOGLE_API_KEY", "")
	return &env{t: t, dir: dir, state: filepath.Join(dir, "library.json")}
}

func (e *env) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--state", e.state, "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e *env) must(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

func (e *env) writeFile(name, content string) string {
	e.t.Helper()
	p := filepath.Join(e.dir, name)
	require.NoError(e.t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (e *env) library() *library.Library {
	e.t.Helper()
	st, err := store.Open(e.state)
	require.NoError(e.t, err)
	return st.Snapshot()
}

func TestBatchDryRun(t *testing.T) {
	e := newEnv(t)
	notes := e.writeFile("notes.txt", "First line of the notes.\nSecond line.")

	e.must("folder", "add", "Reading")
	e.must("file", "add", "--folder", "Reading", notes)
	e.must("chapter", "add", "notes.txt", "Introduction")
	e.must("prompt", "set", "prompt1", "Summarize", "{CHAPTERS}", "briefly.")

	out := e.must("run", "batch", "--driver", "dry-run")
	assert.Contains(t, out, "[1/1] notes.txt - Introduction")
	assert.Contains(t, out, "Summarize Introduction briefly.")
	assert.Contains(t, out, "Relevant Text:\nFirst line of the notes.")
	assert.Contains(t, out, "completed: 1 processed, 0 failed")
}

func TestFileAddUsesViewedFolder(t *testing.T) {
	e := newEnv(t)
	a := e.writeFile("a.txt", "a")

	e.must("folder", "add", "Books")
	out := e.must("view", "Books")
	assert.Contains(t, out, "Viewing: Books (0 files)")

	e.must("file", "add", a)
	out, err := e.run("", "file", "add", a)
	require.NoError(t, err, "duplicates are skipped, not fatal")
	assert.NotContains(t, out, "Added")

	l := e.library()
	require.Len(t, l.Files, 1)
	folder, err := l.ResolveFolder("Books")
	require.NoError(t, err)
	assert.Equal(t, folder.ID, l.Files[0].FolderID)
}

func TestFileAddRejectsMissingPath(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("", "file", "add", filepath.Join(e.dir, "absent.pdf"))
	assert.Error(t, err)
}

func TestChapterEdit(t *testing.T) {
	e := newEnv(t)
	p := e.writeFile("doc.txt", "text")
	e.must("file", "add", p)
	e.must("chapter", "add", "doc.txt", "Old")

	c := e.library().Files[0].Chapters[0]
	_, err := e.run("", "chapter", "edit", c.ID)
	assert.Error(t, err, "an edit needs at least one field")

	e.must("chapter", "edit", c.ID, "--name", "New")
	assert.Equal(t, "New", e.library().Files[0].Chapters[0].Name)

	e.must("chapter", "rm", c.ID)
	assert.Empty(t, e.library().Files[0].Chapters)
}

func TestChapterDetectStoresFullRanges(t *testing.T) {
	e := newEnv(t)
	pages := []string{"1 Opening 3", "2 Closing 7"}
	for i := 3; i <= 10; i++ {
		pages = append(pages, fmt.Sprintf("body %d", i))
	}
	path := filepath.Join(e.dir, "book.pdf")
	testutil.WritePDF(t, path, pages, 0)
	e.must("file", "add", path)

	out := e.must("chapter", "detect", "book.pdf", "--dry-run")
	assert.Contains(t, out, "3-6")
	assert.Empty(t, e.library().Files[0].Chapters)

	e.must("chapter", "detect", "book.pdf")
	chapters := e.library().Files[0].Chapters
	require.Len(t, chapters, 2)
	assert.Equal(t, "1 Opening", chapters[0].Name)
	assert.Equal(t, "3-6", chapters[0].PageRange)
	assert.Equal(t, "2 Closing", chapters[1].Name)
	assert.Equal(t, "7-10", chapters[1].PageRange)

	out = e.must("run", "chapter", chapters[0].ID, "--driver", "dry-run")
	assert.Contains(t, out, "Relevant Text:\nbody 3\n\nbody 4\n\nbody 5\n\nbody 6")

	e.must("chapter", "detect", "book.pdf", "--replace")
	assert.Len(t, e.library().Files[0].Chapters, 2)
}

func TestFullBookDryRun(t *testing.T) {
	e := newEnv(t)
	p := e.writeFile("book.txt", "aaaabbbb")
	e.must("file", "add", p)

	_, err := e.run("", "run", "fullbook", "book.txt", "--driver", "dry-run")
	assert.Error(t, err, "no total set")

	e.must("file", "total", "book.txt", "2")
	out := e.must("run", "fullbook", "--driver", "dry-run")
	assert.Contains(t, out, "book.txt - Part 1 of 2")
	assert.Contains(t, out, "Relevant Text:\naaaa")
	assert.Contains(t, out, "Relevant Text:\nbbbb")
}

func TestRunReportsFailures(t *testing.T) {
	e := newEnv(t)
	p := e.writeFile("gone.txt", "soon deleted")
	e.must("file", "add", p)
	e.must("chapter", "add", "gone.txt", "Only")
	require.NoError(t, os.Remove(p))

	out, err := e.run("", "run", "batch", "--driver", "dry-run")
	require.Error(t, err)
	assert.Contains(t, out, "0 processed, 1 failed")
}

func TestClearAsksFirst(t *testing.T) {
	e := newEnv(t)
	e.must("file", "add", e.writeFile("x.txt", "x"))

	out, err := e.run("n\n", "file", "clear")
	require.NoError(t, err)
	assert.NotContains(t, out, "Removed")
	assert.Len(t, e.library().Files, 1)

	out, err = e.run("y\n", "file", "clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 files")
	assert.Empty(t, e.library().Files)
}

func TestLsMarksMissingFiles(t *testing.T) {
	e := newEnv(t)
	p := e.writeFile("here.txt", "x")
	e.must("file", "add", p)
	e.must("chapter", "add", "here.txt", "One")

	out := e.must("ls")
	assert.Contains(t, out, "here.txt")
	assert.Contains(t, out, "One")
	assert.NotContains(t, out, "(missing)")

	require.NoError(t, os.Remove(p))
	assert.Contains(t, e.must("ls"), "(missing)")
}

func TestConfigCommands(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "chaprun.yaml")

	e.must("--config", path, "config", "init")
	_, err := e.run("", "--config", path, "config", "init")
	assert.Error(t, err, "existing file needs --force")

	e.must("--config", path, "config", "set", "gemini.api_key", "secret-key")
	e.must("--config", path, "config", "set", "batch.item_delay", "5s")
	_, err = e.run("", "--config", path, "config", "set", "batch.nope", "1")
	assert.Error(t, err)

	out := e.must("--config", path, "config", "show")
	assert.Contains(t, out, "item_delay: 5s")
	assert.NotContains(t, out, "secret-key")
}

func TestUnknownReferences(t *testing.T) {
	e := newEnv(t)
	for _, args := range [][]string{
		{"view", "Nowhere"},
		{"chapter", "add", "nothing.pdf", "x"},
		{"run", "chapter", "deadbeef", "--driver", "dry-run"},
		{"folder", "rm", "Nowhere"},
	} {
		_, err := e.run("", args...)
		assert.ErrorIs(t, err, library.ErrNotFound, args)
	}
}

// Package ai delivers rendered prompts and chapter content to AI Studio,
// either by driving the desktop browser or by calling the Gemini API.
package ai

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/extract"
)

// StudioURL opens a fresh AI Studio chat.
const StudioURL = "https://aistudio.google.com/prompts/new_chat"

// Job is one unit of work: a prompt plus the content it is about.
type Job struct {
	File    string // source document
	Label   string // chapter name or "Part i of n"
	Prompt  string
	Payload extract.Payload
}

// Driver performs a job. A nil error means the job was handed over; for
// drivers that cannot observe the target it says nothing about the outcome.
type Driver interface {
	Name() string
	Perform(ctx context.Context, job Job) error
}

// FileCapable is implemented by drivers that can take a text file by
// reference instead of its contents.
type FileCapable interface {
	SupportsFiles() bool
}

func SupportsFiles(d Driver) bool {
	fc, ok := d.(FileCapable)
	return ok && fc.SupportsFiles()
}

// ComposeText joins the prompt and the extracted text into the single
// message sent for text payloads.
func ComposeText(prompt, text string) string {
	return prompt + "\n\nRelevant Text:\n" + text
}

// Noop logs each job and sends nothing. With Out set it also prints the
// message that would have been sent.
type Noop struct {
	Out io.Writer
}

func (Noop) Name() string { return "dry-run" }

func (n Noop) Perform(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ev := log.Info().Str("file", job.File).Str("label", job.Label)
	if job.Payload.IsFile() {
		ev = ev.Str("attach", job.Payload.FilePath)
	} else {
		ev = ev.Int("chars", len(job.Payload.Text))
	}
	ev.Msg("dry run")
	if n.Out == nil {
		return nil
	}
	fmt.Fprintf(n.Out, "=== %s: %s ===\n", job.File, job.Label)
	if job.Payload.IsFile() {
		fmt.Fprintf(n.Out, "[attach %s]\n%s\n\n", job.Payload.FilePath, job.Prompt)
		return nil
	}
	fmt.Fprintf(n.Out, "%s\n\n", preview(ComposeText(job.Prompt, job.Payload.Text), 600))
	return nil
}

func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max])) + fmt.Sprintf(" … (%d more characters)", len(r)-max)
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

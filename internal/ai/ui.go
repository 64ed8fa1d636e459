package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thywilljoshua/chapter-runner/internal/desktop"
	"github.com/thywilljoshua/chapter-runner/internal/extract"
)

// UIDelays are the fixed waits between gestures. Nothing confirms a step
// finished, so they must cover the slowest expected page load and upload.
type UIDelays struct {
	BrowserLoad time.Duration
	Paste       time.Duration
	FileUpload  time.Duration
	PromptPaste time.Duration
	Submit      time.Duration
}

func DefaultUIDelays() UIDelays {
	return UIDelays{
		BrowserLoad: 5 * time.Second,
		Paste:       2 * time.Second,
		FileUpload:  10 * time.Second,
		PromptPaste: 1 * time.Second,
		Submit:      1 * time.Second,
	}
}

// UI drives AI Studio in the desktop browser with clipboard pastes and
// hotkeys. The focused window must be the new tab when keys are sent.
type UI struct {
	Clipboard desktop.Clipboard
	Keyboard  desktop.Keyboard
	Browser   desktop.Browser
	URL       string
	Delays    UIDelays

	sleep func(context.Context, time.Duration) error
}

func NewUI(sys *desktop.System, url string, delays UIDelays) *UI {
	if url == "" {
		url = StudioURL
	}
	return &UI{Clipboard: sys, Keyboard: sys, Browser: sys, URL: url, Delays: delays}
}

func (u *UI) Name() string { return "ui" }

func (u *UI) SupportsFiles() bool { return u.Clipboard.SupportsFiles() }

func (u *UI) wait(ctx context.Context, d time.Duration) error {
	if u.sleep != nil {
		return u.sleep(ctx, d)
	}
	return sleep(ctx, d)
}

func (u *UI) Perform(ctx context.Context, job Job) error {
	asFile, err := u.load(job)
	if err != nil {
		return err
	}
	l := log.With().Str("file", job.File).Str("label", job.Label).Logger()

	l.Debug().Str("url", u.URL).Msg("opening tab")
	if err := u.Browser.Open(u.URL); err != nil {
		return err
	}
	if err := u.wait(ctx, u.Delays.BrowserLoad); err != nil {
		return err
	}
	if err := u.Keyboard.Hotkey("ctrl", "v"); err != nil {
		return err
	}
	if err := u.wait(ctx, u.Delays.Paste); err != nil {
		return err
	}
	if asFile {
		if err := u.wait(ctx, u.Delays.FileUpload); err != nil {
			return err
		}
		if job.Prompt != "" {
			if err := u.Clipboard.WriteText(job.Prompt); err != nil {
				return err
			}
			if err := u.Keyboard.Hotkey("ctrl", "v"); err != nil {
				return err
			}
			if err := u.wait(ctx, u.Delays.PromptPaste); err != nil {
				return err
			}
		}
	}
	if err := u.Keyboard.Hotkey("ctrl", "enter"); err != nil {
		return err
	}
	l.Info().Bool("attached", asFile).Msg("submitted to AI Studio")
	return u.wait(ctx, u.Delays.Submit)
}

// load puts the first paste on the clipboard. A file that cannot be copied
// as an object is sent as text instead.
func (u *UI) load(job Job) (asFile bool, err error) {
	text := job.Payload.Text
	if job.Payload.IsFile() {
		err := u.Clipboard.WriteFiles(job.Payload.FilePath)
		if err == nil {
			return true, nil
		}
		log.Warn().Err(err).Str("file", job.Payload.FilePath).Msg("file copy failed, sending text instead")
		text, err = extract.ReadText(job.Payload.FilePath)
		if err != nil {
			return false, err
		}
	}
	if err := u.Clipboard.WriteText(ComposeText(job.Prompt, text)); err != nil {
		return false, fmt.Errorf("clipboard: %w", err)
	}
	return false, nil
}

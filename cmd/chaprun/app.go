package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/ai"
	"github.com/thywilljoshua/chapter-runner/internal/config"
	"github.com/thywilljoshua/chapter-runner/internal/desktop"
	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/store"
	"github.com/thywilljoshua/chapter-runner/internal/transcript"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	statePath  string
	logLevel   string

	cfg   *config.Config
	store *store.Store
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if a.logLevel != "" {
		level = a.logLevel
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)

	path := a.statePath
	if path == "" {
		path = cfg.StateFile
	}
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	log.Debug().Str("state", st.Path()).Str("driver", cfg.Driver).Msg("loaded")
	a.cfg, a.store = cfg, st
	return nil
}

func (a *app) update(fn func(*library.Library) error) error {
	return a.store.Update(fn)
}

func (a *app) driver(ctx context.Context, name string, out io.Writer) (ai.Driver, error) {
	if name == "" {
		name = a.cfg.Driver
	}
	switch name {
	case config.DriverUI:
		sys := desktop.New()
		if err := sys.Check(); err != nil {
			return nil, fmt.Errorf("ui driver unavailable: %w", err)
		}
		u := a.cfg.UI
		return ai.NewUI(sys, u.URL, ai.UIDelays{
			BrowserLoad: u.BrowserLoad,
			Paste:       u.Paste,
			FileUpload:  u.FileUpload,
			PromptPaste: u.PromptPaste,
			Submit:      u.Submit,
		}), nil
	case config.DriverGemini:
		return a.gemini(ctx)
	case config.DriverDryRun:
		return ai.Noop{Out: out}, nil
	}
	return nil, fmt.Errorf("unknown driver %q", name)
}

func (a *app) gemini(ctx context.Context) (*ai.Gemini, error) {
	g := a.cfg.Gemini
	d, err := ai.NewGemini(ctx, g.APIKey, g.Model, g.RequestsPerMinute)
	if err != nil {
		return nil, err
	}
	if g.OutputDir != "" {
		d.Transcripts = transcript.NewWriter(g.OutputDir)
	}
	return d, nil
}

func confirm(cmd *cobra.Command, msg string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", msg)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

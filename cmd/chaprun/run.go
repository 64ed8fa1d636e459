package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/batch"
	"github.com/thywilljoshua/chapter-runner/internal/config"
	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

type runFlags struct {
	slot   string
	driver string
	yes    bool
}

func runCmd(a *app) *cobra.Command {
	var rf runFlags
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send chapters with a prompt template to the AI",
	}
	cmd.PersistentFlags().StringVarP(&rf.slot, "prompt", "t", "", "prompt template slot (default prompt1, full_book for fullbook)")
	cmd.PersistentFlags().StringVarP(&rf.driver, "driver", "d", "", "ui, gemini or dry-run (default from config)")
	cmd.PersistentFlags().BoolVarP(&rf.yes, "yes", "y", false, "start without asking")

	slot := func(def string) string {
		if rf.slot != "" {
			return rf.slot
		}
		return def
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "chapter <chapter>",
			Short: "Process one chapter",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				items, err := batch.Single(a.store.Snapshot(), args[0], slot(prompt.Slot1))
				if err != nil {
					return err
				}
				return a.runItems(cmd, rf, items)
			},
		},
		&cobra.Command{
			Use:   "file <file>",
			Short: "Process a whole file as one item",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				items, err := batch.EntireFile(a.store.Snapshot(), args[0], slot(prompt.Slot1))
				if err != nil {
					return err
				}
				return a.runItems(cmd, rf, items)
			},
		},
		&cobra.Command{
			Use:   "batch",
			Short: "Process every chapter of every file in the current view",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				l := a.store.Snapshot()
				items, err := batch.Batch(l, l.View, slot(prompt.Slot1))
				if err != nil {
					return err
				}
				return a.runItems(cmd, rf, items)
			},
		},
		&cobra.Command{
			Use:   "fullbook [file]",
			Short: "Split files with a total chapter count into parts and process each part",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				l := a.store.Snapshot()
				ref := ""
				if len(args) == 1 {
					ref = args[0]
				}
				items, err := batch.FullBook(l, l.View, ref, slot(prompt.SlotFullBook))
				if err != nil {
					return err
				}
				return a.runItems(cmd, rf, items)
			},
		},
	)
	return cmd
}

func (a *app) runItems(cmd *cobra.Command, rf runFlags, items []batch.Item) error {
	out := cmd.OutOrStdout()
	name := rf.driver
	if name == "" {
		name = a.cfg.Driver
	}
	if !rf.yes && name != config.DriverDryRun {
		msg := fmt.Sprintf("Send %d items using the %s driver?", len(items), name)
		if name == config.DriverUI {
			msg = fmt.Sprintf("Send %d items? The browser, keyboard and clipboard will be controlled until the run ends.", len(items))
		}
		if !confirm(cmd, msg) {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	d, err := a.driver(cmd.Context(), name, out)
	if err != nil {
		return err
	}
	opts := batch.Options{
		Delays: batch.Delays{Item: a.cfg.Batch.ItemDelay, File: a.cfg.Batch.FileDelay},
	}
	if a.cfg.Batch.AbortOnError {
		opts.Policy = batch.AbortOnError
	}
	if name == config.DriverDryRun {
		opts.Delays = batch.Delays{}
	}

	sum, err := batch.NewRunner(d, opts).Run(cmd.Context(), items, func(p batch.Progress) {
		printProgress(out, p)
	})
	if err != nil {
		return err
	}
	printSummary(out, sum)
	switch {
	case sum.State == batch.Aborted:
		return errors.New("run aborted")
	case len(sum.Failures) > 0:
		return fmt.Errorf("%d of %d items failed", len(sum.Failures), sum.Total)
	}
	return nil
}

func printProgress(w io.Writer, p batch.Progress) {
	switch p.Phase {
	case batch.Started:
		fmt.Fprintf(w, "[%d/%d] %s\n", p.Index, p.Total, p.Item)
	case batch.Failed:
		fmt.Fprintf(w, "[%d/%d] %s %v\n", p.Index, p.Total, failStyle.Render("failed:"), p.Err)
	}
}

func printSummary(w io.Writer, s batch.Summary) {
	line := fmt.Sprintf("%s: %d processed, %d failed", s.State, s.Processed, len(s.Failures))
	if n := s.Skipped(); n > 0 {
		line += fmt.Sprintf(", %d not started", n)
	}
	if s.State == batch.Completed && len(s.Failures) == 0 {
		fmt.Fprintln(w, okStyle.Render(line))
	} else {
		fmt.Fprintln(w, failStyle.Render(line))
	}
	for _, f := range s.Failures {
		hint := ""
		if library.IsUserInput(f.Err) {
			hint = " (check the chapter's settings)"
		}
		fmt.Fprintf(w, "  - %s: %v%s\n", f.Item, f.Err, hint)
	}
}

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/prompt"
)

var slotStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

func promptCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Manage prompt templates",
		Long:  "Prompt templates may contain " + prompt.Placeholder + ", which is replaced by the chapter name.",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "ls",
			Short: "Show the prompt templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				l := a.store.Snapshot()
				out := cmd.OutOrStdout()
				for _, slot := range l.PromptSlots() {
					fmt.Fprintln(out, slotStyle.Render(slot))
					fmt.Fprintf(out, "  %s\n", l.Prompts[slot])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <slot> <text>...",
			Short: "Set a prompt template",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				text := strings.Join(args[1:], " ")
				if !prompt.HasPlaceholder(text) {
					log.Warn().Str("slot", args[0]).Msgf("template has no %s placeholder; chapter names will not be included", prompt.Placeholder)
				}
				return a.update(func(l *library.Library) error {
					return l.SetPrompt(args[0], text)
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default templates",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.update(func(l *library.Library) error {
					l.ResetPrompts()
					return nil
				})
			},
		},
	)
	return cmd
}

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/library"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	fileStyle    = lipgloss.NewStyle().Bold(true)
	missingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

func lsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "Show the files and chapters in the current view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(cmd.OutOrStdout(), renderView(a.store.Snapshot()))
			return nil
		},
	}
}

func renderView(l *library.Library) string {
	var b strings.Builder
	files := l.VisibleFiles(l.View)
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s (%d files)", l.ViewName(l.View), len(files))))
	b.WriteString("\n")
	if len(files) == 0 {
		b.WriteString(dimStyle.Render("  no files; add some with `chaprun file add`"))
		b.WriteString("\n")
		return b.String()
	}
	for _, f := range files {
		line := fmt.Sprintf("%s %s", fileStyle.Render(f.Filename()), dimStyle.Render("["+shortID(f.ID)+" "+string(f.Type)+"]"))
		if f.FullBook() {
			line += dimStyle.Render(fmt.Sprintf(" full book: %d parts", f.TotalChapters))
		}
		if _, err := os.Stat(f.Path); err != nil {
			line += " " + missingStyle.Render("(missing)")
		}
		b.WriteString(line)
		b.WriteString("\n")
		for i, c := range f.Chapters {
			branch := "├─"
			if i == len(f.Chapters)-1 {
				branch = "└─"
			}
			name := c.Name
			if strings.TrimSpace(name) == "" {
				name = dimStyle.Render("(unnamed)")
			}
			fmt.Fprintf(&b, "  %s %s %s", branch, name, dimStyle.Render(shortID(c.ID)))
			if f.Type == library.PDF {
				pages := c.PageRange
				if pages == "" {
					pages = "all"
				}
				b.WriteString(dimStyle.Render(" pages " + pages))
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/extract"
	"github.com/thywilljoshua/chapter-runner/internal/library"
	"github.com/thywilljoshua/chapter-runner/internal/toc"
)

func chapterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "chapter",
		Aliases: []string{"ch"},
		Short:   "Manage the chapters of a file",
	}
	cmd.AddCommand(chapterAddCmd(a), chapterEditCmd(a), chapterRmCmd(a), chapterDetectCmd(a))
	return cmd
}

func chapterAddCmd(a *app) *cobra.Command {
	var pages string
	cmd := &cobra.Command{
		Use:   "add <file> <name>",
		Short: "Add a chapter to a file",
		Long:  "Add a chapter to a file. --pages takes ranges like 1-5,8,10-12 and applies to PDF files only; without it the chapter covers the whole file.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var c library.Chapter
			err := a.update(func(l *library.Library) error {
				var err error
				c, err = l.AddChapter(args[0], args[1], pages)
				return err
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added chapter %q %s\n", c.Name, shortID(c.ID))
			return nil
		},
	}
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "page range")
	return cmd
}

func chapterEditCmd(a *app) *cobra.Command {
	var name, pages string
	cmd := &cobra.Command{
		Use:   "edit <chapter>",
		Short: "Rename a chapter or change its pages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var namep, pagesp *string
			if cmd.Flags().Changed("name") {
				namep = &name
			}
			if cmd.Flags().Changed("pages") {
				pagesp = &pages
			}
			if namep == nil && pagesp == nil {
				return errors.New("nothing to change: pass --name or --pages")
			}
			return a.update(func(l *library.Library) error {
				return l.EditChapter(args[0], namep, pagesp)
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "new name")
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "new page range")
	return cmd
}

func chapterRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <chapter>...",
		Short: "Delete chapters",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(func(l *library.Library) error {
				for _, ref := range args {
					if err := l.RemoveChapter(ref); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func chapterDetectCmd(a *app) *cobra.Command {
	var (
		useAI   bool
		offset  int
		depth   int
		replace bool
		dryRun  bool
	)
	cmd := &cobra.Command{
		Use:   "detect <file>",
		Short: "Create chapters from a PDF's table of contents",
		Long: `Scan the first pages of a PDF for a table of contents and add one chapter per entry.
--offset shifts printed page numbers to PDF pages. With --ai the outline is
requested from the Gemini API instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.store.Snapshot().File(args[0])
			if err != nil {
				return err
			}
			if f.Type != library.PDF {
				return fmt.Errorf("%s: chapters can only be detected in PDF files: %w", f.Filename(), library.ErrUnsupported)
			}
			if depth <= 0 {
				depth = a.cfg.ToC.MaxDepth
			}
			count, err := extract.PageCount(f.Path)
			if err != nil {
				return err
			}

			var secs []toc.Section
			if useAI {
				g, err := a.gemini(cmd.Context())
				if err != nil {
					return err
				}
				secs, err = g.DetectChapters(cmd.Context(), f.Path, depth)
				if err != nil {
					return err
				}
				secs = shiftSections(secs, offset, count)
			} else {
				pages, err := extract.LeadingPages(f.Path, a.cfg.ToC.ScanPages)
				if err != nil {
					return err
				}
				secs = toc.Detect(pages, toc.Options{
					ScanPages: a.cfg.ToC.ScanPages,
					MaxDepth:  depth,
					Offset:    offset,
					PageCount: count,
				})
			}
			if len(secs) == 0 {
				return fmt.Errorf("no table of contents found in %s (try --ai)", f.Filename())
			}

			out := cmd.OutOrStdout()
			for _, s := range secs {
				fmt.Fprintf(out, "  %-48s %s\n", s.Name(), s.Range())
			}
			if dryRun {
				return nil
			}
			err = a.update(func(l *library.Library) error {
				if replace {
					cur, err := l.File(f.ID)
					if err != nil {
						return err
					}
					for _, c := range cur.Chapters {
						if err := l.RemoveChapter(c.ID); err != nil {
							return err
						}
					}
				}
				for _, s := range secs {
					if _, err := l.AddChapter(f.ID, s.Name(), s.Range()); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			log.Info().Str("file", f.Path).Int("chapters", len(secs)).Bool("ai", useAI).Msg("chapters detected")
			fmt.Fprintf(out, "Added %d chapters to %s\n", len(secs), f.Filename())
			return nil
		},
	}
	cmd.Flags().BoolVar(&useAI, "ai", false, "ask the Gemini API for the outline")
	cmd.Flags().IntVar(&offset, "offset", 0, "added to printed page numbers")
	cmd.Flags().IntVar(&depth, "depth", 0, "deepest heading level to keep (default from config)")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete the file's existing chapters first")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the sections without adding them")
	return cmd
}

// shiftSections applies offset and keeps sections inside the document.
func shiftSections(secs []toc.Section, offset, count int) []toc.Section {
	out := secs[:0]
	for _, s := range secs {
		s.Start += offset
		s.End += offset
		if s.Start < 1 || (count > 0 && s.Start > count) {
			continue
		}
		if count > 0 && s.End > count {
			s.End = count
		}
		out = append(out, s)
	}
	return out
}

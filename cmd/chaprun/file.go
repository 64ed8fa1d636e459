package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/library"
)

func fileCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "file",
		Short: "Manage the files in the library",
	}
	cmd.AddCommand(fileAddCmd(a), fileRmCmd(a), fileMvCmd(a), fileClearCmd(a), fileTotalCmd(a), fileLsCmd(a))
	return cmd
}

func fileAddCmd(a *app) *cobra.Command {
	var folder string
	cmd := &cobra.Command{
		Use:   "add <path>...",
		Short: "Add PDF or TXT files",
		Long:  "Add PDF or TXT files. Without --folder, files go into the folder being viewed, if any.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := make([]string, 0, len(args))
			for _, p := range args {
				abs, err := filepath.Abs(p)
				if err != nil {
					return err
				}
				st, err := os.Stat(abs)
				if err != nil {
					return err
				}
				if st.IsDir() {
					return fmt.Errorf("%s is a directory", p)
				}
				paths = append(paths, abs)
			}
			var added []library.File
			err := a.update(func(l *library.Library) error {
				folderID := ""
				switch {
				case folder != "":
					f, err := l.ResolveFolder(folder)
					if err != nil {
						return err
					}
					folderID = f.ID
				case l.View != library.ViewAll && l.View != library.ViewUncategorized:
					folderID = l.View
				}
				for _, p := range paths {
					f, err := l.AddFile(p, folderID)
					if errors.Is(err, library.ErrDuplicate) {
						log.Warn().Str("file", p).Msg("already in library, skipped")
						continue
					}
					if err != nil {
						return err
					}
					added = append(added, f)
				}
				return nil
			})
			if err != nil {
				return err
			}
			for _, f := range added {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s [%s] %s\n", f.Filename(), f.Type, shortID(f.ID))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "folder to put the files in")
	return cmd
}

func fileRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file>...",
		Short: "Remove files from the library (the files on disk are kept)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(func(l *library.Library) error {
				for _, ref := range args {
					if _, err := l.RemoveFile(ref); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func fileMvCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <file> <folder|uncategorized>",
		Short: "Move a file to a folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.update(func(l *library.Library) error {
				return l.MoveFile(args[0], args[1])
			})
		},
	}
}

func fileClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every file in the current view from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.store.Snapshot()
			n := len(l.VisibleFiles(l.View))
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to clear.")
				return nil
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Remove %d files shown in %s from the library?", n, l.ViewName(l.View))) {
				return nil
			}
			var removed []library.File
			err := a.update(func(l *library.Library) error {
				removed = l.ClearVisible(l.View)
				return nil
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files\n", len(removed))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func fileTotalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "total <file> <n>",
		Short: "Set how many parts a Full Book run splits the file into (0 disables)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("total chapters %q: %w", args[1], library.ErrInvalid)
			}
			return a.update(func(l *library.Library) error {
				return l.SetTotalChapters(args[0], n)
			})
		},
	}
}

func fileLsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List the files in the current view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l := a.store.Snapshot()
			out := cmd.OutOrStdout()
			for _, f := range l.VisibleFiles(l.View) {
				folder := "-"
				if f.FolderID != "" {
					folder = l.ViewName(f.FolderID)
				}
				fmt.Fprintf(out, "%s  %-3s  %-16s  %3d chapters  total=%d  %s\n",
					shortID(f.ID), f.Type, folder, len(f.Chapters), f.TotalChapters, f.Path)
			}
			return nil
		},
	}
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/chapter-runner/internal/library"
)

func folderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "folder",
		Short: "Manage folders",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Create a folder",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var f library.Folder
				err := a.update(func(l *library.Library) error {
					var err error
					f, err = l.AddFolder(args[0])
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created folder %q\n", f.Name)
				return nil
			},
		},
		&cobra.Command{
			Use:   "rename <folder> <new-name>",
			Short: "Rename a folder",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.update(func(l *library.Library) error {
					return l.RenameFolder(args[0], args[1])
				})
			},
		},
		&cobra.Command{
			Use:   "rm <folder>",
			Short: "Delete a folder; its files become uncategorized",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var moved int
				err := a.update(func(l *library.Library) error {
					var err error
					moved, err = l.RemoveFolder(args[0])
					return err
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted folder %q (%d files moved to Uncategorized)\n", args[0], moved)
				return nil
			},
		},
		&cobra.Command{
			Use:   "ls",
			Short: "List folders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				l := a.store.Snapshot()
				out := cmd.OutOrStdout()
				mark := func(view string) string {
					if l.View == view {
						return "*"
					}
					return " "
				}
				fmt.Fprintf(out, "%s %-24s %d files\n", mark(library.ViewAll), l.ViewName(library.ViewAll), len(l.VisibleFiles(library.ViewAll)))
				for _, f := range l.SortedFolders() {
					fmt.Fprintf(out, "%s %-24s %d files\n", mark(f.ID), f.Name, len(l.VisibleFiles(f.ID)))
				}
				fmt.Fprintf(out, "%s %-24s %d files\n", mark(library.ViewUncategorized), l.ViewName(library.ViewUncategorized), len(l.VisibleFiles(library.ViewUncategorized)))
				return nil
			},
		},
	)
	return cmd
}

func viewCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "view [all|uncategorized|<folder>]",
		Short: "Show or select which files are displayed and processed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if err := a.update(func(l *library.Library) error { return l.SetView(args[0]) }); err != nil {
					return err
				}
			}
			l := a.store.Snapshot()
			fmt.Fprintf(cmd.OutOrStdout(), "Viewing: %s (%d files)\n", l.ViewName(l.View), len(l.VisibleFiles(l.View)))
			return nil
		},
	}
}

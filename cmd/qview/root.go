package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kobzarvs/qview/internal/app"
	"github.com/kobzarvs/qview/internal/session"
)

type runFunc func(app.Options) error

func newRootCmd(version string) *cobra.Command {
	return newCommand(version, os.Stdin, func(opts app.Options) error {
		return app.New(opts).Run()
	})
}

func newCommand(version string, stdin *os.File, run runFunc) *cobra.Command {
	var (
		opts   app.Options
		recent int
	)
	cmd := &cobra.Command{
		Use:   "qview [file]",
		Short: "A fast viewer for very large text files",
		Long: `qview opens a text file of any size and renders only the lines on screen.
Pipe text into qview to page through command output.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if recent > 0 {
				return listRecent(cmd.OutOrStdout(), recent)
			}
			if len(args) == 1 {
				opts.Path = args[0]
			} else if piped(stdin) {
				opts.Input = stdin
				opts.InputName = "[stdin]"
			}
			return run(opts)
		},
	}
	cmd.Flags().IntVarP(&opts.Line, "line", "l", 0, "line to open at (default: last position)")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "",
		"config file (default: ~/.config/qview/config.toml)")
	cmd.Flags().BoolVar(&opts.Debug, "debug", false, "write debug output to the log file")
	cmd.Flags().IntVar(&recent, "recent", 0, "list the N most recently viewed files and exit")
	return cmd
}

// piped reports whether f is a pipe or a regular file rather than a terminal.
func piped(f *os.File) bool {
	if f == nil {
		return false
	}
	st, err := f.Stat()
	if err != nil {
		return false
	}
	return st.Mode()&os.ModeCharDevice == 0
}

// listRecent prints recently viewed files with their last line and
// bookmark count.
func listRecent(w io.Writer, n int) error {
	sess, err := session.OpenDefault()
	if err != nil {
		return err
	}
	for _, path := range sess.RecentFiles(n) {
		line := max(sess.LastLine(path), 1)
		if marks := len(sess.Bookmarks(path)); marks > 0 {
			fmt.Fprintf(w, "%s:%d\t%d bookmarks\n", path, line, marks)
			continue
		}
		fmt.Fprintf(w, "%s:%d\n", path, line)
	}
	return nil
}

// Package cli wires the break-chopping engine to a cobra command
// tree: analyze and split source patterns, place symbols onto target
// grids, and manage registry snapshots and the placement journal.
package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rebeat CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rebeat",
		Short: "rebeat - break chopping for tracker patterns",
		Long: `Analyze tracker patterns into timed event sequences, cut them into
break sets at boundary channels, and place permutations back onto a
grid with configurable overflow and overwrite behavior.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			})))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewAnalyzeCommand(opts))
	cmd.AddCommand(NewSplitCommand(opts))
	cmd.AddCommand(NewPlaceCommand(opts))
	cmd.AddCommand(NewSymbolsCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewProfileCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	cmd := NewRootCommand()
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err != nil {
		// Formatters already printed domain errors; flag and usage
		// errors still need a line.
		var exitErr *ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return ExitCommandError
		}
		return exitErr.Code
	}
	return ExitSuccess
}

package cli

import (
	"errors"
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/profile"
)

// NewProfileCommand creates the profile command group.
func NewProfileCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect CUE profiles",
	}

	vet := &cobra.Command{
		Use:   "vet <profile.cue>",
		Short: "Compile a profile and report its contents",
		Long: `Vet compiles a CUE profile and prints the boundary channels, default
policies, and symbol assignments it declares. Compilation errors are
reported with their source position.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProfileVet(rootOpts, args[0], cmd)
		},
	}

	cmd.AddCommand(vet)
	return cmd
}

// profileReport is the JSON payload of profile vet.
type profileReport struct {
	Name       string            `json:"name"`
	Boundaries []int             `json:"boundaries"`
	Overflow   string            `json:"overflow,omitempty"`
	Overwrite  string            `json:"overwrite,omitempty"`
	Instrument string            `json:"instrument,omitempty"`
	Symbols    map[string]string `json:"symbols,omitempty"`
}

func runProfileVet(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	prof, err := profile.Load(path)
	if err != nil {
		var compileErr *profile.CompileError
		if errors.As(err, &compileErr) {
			if formatter.Format == "json" {
				return formatter.Error(ExitFailure, ErrCodeBadProfile, compileErr.Error(), map[string]string{
					"field": compileErr.Field,
				})
			}
			fmt.Fprintln(formatter.Writer, "✗ Profile failed to compile")
			fmt.Fprintln(formatter.Writer)
			if compileErr.Pos.IsValid() {
				fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
					compileErr.Pos.Filename(), compileErr.Pos.Line(), compileErr.Pos.Column())
			}
			fmt.Fprintf(formatter.Writer, "  %s: %s\n", compileErr.Field, compileErr.Message)
			return NewExitError(ExitFailure, compileErr.Error())
		}
		return formatter.Error(ExitCommandError, ErrCodeBadProfile, err.Error(), nil)
	}

	report := profileReport{
		Name:       prof.Name,
		Boundaries: prof.Boundaries,
	}
	if prof.Defaults.Overflow != 0 {
		report.Overflow = prof.Defaults.Overflow.String()
	}
	if prof.Defaults.Overwrite != 0 {
		report.Overwrite = prof.Defaults.Overwrite.String()
	}
	if prof.Defaults.Instrument != 0 {
		report.Instrument = prof.Defaults.Instrument.String()
	}
	if len(prof.Symbols) > 0 {
		report.Symbols = make(map[string]string, len(prof.Symbols))
		for key, cfg := range prof.Symbols {
			report.Symbols[string(key)] = cfg.Label
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Profile %q\n\n", report.Name)
	fmt.Fprintf(formatter.Writer, "Boundaries: %v\n", report.Boundaries)
	fmt.Fprintf(formatter.Writer, "Defaults: overflow=%s overwrite=%s instrument=%s\n",
		orDefault(report.Overflow, place.OverflowExtend.String()),
		orDefault(report.Overwrite, place.OverwriteSum.String()),
		orDefault(report.Instrument, place.InstrumentEmbedded.String()))

	if len(prof.Symbols) > 0 {
		fmt.Fprintln(formatter.Writer)
		w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SYMBOL\tLABEL\tINSTRUMENT")
		for _, key := range sortedSymbolKeys(prof) {
			cfg := prof.Symbols[key]
			label := cfg.Label
			if label == "" {
				label = "-"
			}
			instrument := "-"
			if cfg.Instrument >= 0 {
				instrument = fmt.Sprintf("%d", cfg.Instrument)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", string(key), label, instrument)
		}
		return w.Flush()
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func sortedSymbolKeys(prof *profile.Profile) []rune {
	keys := make([]rune, 0, len(prof.Symbols))
	for key := range prof.Symbols {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

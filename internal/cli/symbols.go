package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/store"
)

// SymbolsOptions holds flags for the symbols command.
type SymbolsOptions struct {
	*RootOptions
	Track       int
	Boundaries  []int
	Profile     string
	DB          string
	Fingerprint string
}

// symbolEntry is the JSON shape of one registry entry.
type symbolEntry struct {
	Symbol     string `json:"symbol"`
	Kind       string `json:"kind"`
	Instrument int    `json:"instrument"`
	Events     int    `json:"events"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
}

// NewSymbolsCommand creates the symbols command.
func NewSymbolsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SymbolsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "symbols [pattern.yaml]",
		Short: "List assigned symbol keys",
		Long: `Symbols lists the registry contents: either the keys a source pattern
would be cut into (pattern argument), or the keys stored in a snapshot
database (--db, optionally pinned to a fingerprint with --snapshot).`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSymbols(opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Track, "track", "t", 0, "source track to cut")
	cmd.Flags().IntSliceVarP(&opts.Boundaries, "boundary", "b", nil, "boundary channel value (repeatable)")
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "CUE profile file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot database file")
	cmd.Flags().StringVar(&opts.Fingerprint, "snapshot", "", "snapshot fingerprint (default: latest)")

	return cmd
}

func runSymbols(opts *SymbolsOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	var reg *registry.Registry
	switch {
	case len(args) == 1:
		splitOpts := &SplitOptions{
			RootOptions: opts.RootOptions,
			Track:       opts.Track,
			Boundaries:  opts.Boundaries,
			Profile:     opts.Profile,
		}
		var err error
		if _, reg, err = splitAndAssign(splitOpts, args[0], formatter); err != nil {
			return err
		}
	case opts.DB != "":
		var err error
		if reg, err = loadRegistry(opts.DB, opts.Fingerprint); err != nil {
			return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
	default:
		return formatter.Error(ExitCommandError, ErrCodeBadFlag,
			"a pattern argument or --db is required", nil)
	}

	entries := make([]symbolEntry, 0, reg.Len())
	for _, key := range reg.Keys() {
		sym, err := reg.Get(key)
		if err != nil {
			continue
		}
		entries = append(entries, symbolEntry{
			Symbol:     string(key),
			Kind:       sym.Kind.String(),
			Instrument: sym.Instrument,
			Events:     len(sym.Set.Relative),
			StartLine:  sym.Set.StartLine,
			EndLine:    sym.Set.EndLine,
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}

	if len(entries) == 0 {
		fmt.Fprintln(formatter.Writer, "No symbols assigned")
		return nil
	}
	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tKIND\tLINES\tEVENTS\tINSTRUMENT")
	for _, e := range entries {
		instrument := "-"
		if e.Instrument >= 0 {
			instrument = fmt.Sprintf("%d", e.Instrument)
		}
		fmt.Fprintf(w, "%s\t%s\t%d-%d\t%d\t%s\n",
			e.Symbol, e.Kind, e.StartLine, e.EndLine, e.Events, instrument)
	}
	return w.Flush()
}

// loadRegistry opens the database and decodes the requested snapshot,
// or the latest one when fingerprint is empty.
func loadRegistry(path, fingerprint string) (*registry.Registry, error) {
	db, err := store.Open(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	ctx := context.Background()
	if fingerprint != "" {
		return db.LoadSnapshot(ctx, fingerprint)
	}
	reg, _, err := db.LatestSnapshot(ctx)
	return reg, err
}

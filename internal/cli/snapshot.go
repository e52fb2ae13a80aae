package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/slabtone/rebeat/internal/store"
)

// SnapshotOptions holds flags shared by the snapshot subcommands.
type SnapshotOptions struct {
	*RootOptions
	DB         string
	Track      int
	Boundaries []int
	Profile    string
	Label      string
	Output     string
	Limit      int
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SnapshotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save, load, and list registry snapshots",
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "snapshot database file (required)")

	save := &cobra.Command{
		Use:           "save <source.yaml>",
		Short:         "Cut a source pattern and save the registry snapshot",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotSave(opts, args[0], cmd)
		},
	}
	save.Flags().IntVarP(&opts.Track, "track", "t", 0, "source track to cut")
	save.Flags().IntSliceVarP(&opts.Boundaries, "boundary", "b", nil, "boundary channel value (repeatable)")
	save.Flags().StringVarP(&opts.Profile, "profile", "p", "", "CUE profile file")
	save.Flags().StringVar(&opts.Label, "label", "", "snapshot label")

	load := &cobra.Command{
		Use:           "load <fingerprint>",
		Short:         "Load a snapshot and write its registry document",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotLoad(opts, args[0], cmd)
		},
	}
	load.Flags().StringVarP(&opts.Output, "output", "o", "", "write the registry document to this file")

	list := &cobra.Command{
		Use:           "list",
		Short:         "List saved snapshots, newest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotList(opts, cmd)
		},
	}

	journal := &cobra.Command{
		Use:           "journal",
		Short:         "List journaled placements, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSnapshotJournal(opts, cmd)
		},
	}
	journal.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "maximum rows (0 = all)")

	cmd.AddCommand(save, load, list, journal)
	return cmd
}

func openStore(opts *SnapshotOptions, formatter *OutputFormatter) (*store.Store, error) {
	if opts.DB == "" {
		return nil, formatter.Error(ExitCommandError, ErrCodeBadFlag, "--db is required", nil)
	}
	db, err := store.Open(opts.DB)
	if err != nil {
		return nil, formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	return db, nil
}

func runSnapshotSave(opts *SnapshotOptions, sourcePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	splitOpts := &SplitOptions{
		RootOptions: opts.RootOptions,
		Track:       opts.Track,
		Boundaries:  opts.Boundaries,
		Profile:     opts.Profile,
	}
	sets, reg, err := splitAndAssign(splitOpts, sourcePath, formatter)
	if err != nil {
		return err
	}

	db, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	fingerprint, inserted, err := db.SaveSnapshot(context.Background(), reg, opts.Label)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]any{
			"fingerprint": fingerprint,
			"inserted":    inserted,
			"symbols":     reg.Len(),
			"sets":        len(sets),
		})
	}
	if inserted {
		fmt.Fprintf(formatter.Writer, "✓ Saved snapshot %s (%d symbol(s))\n", fingerprint, reg.Len())
	} else {
		fmt.Fprintf(formatter.Writer, "Snapshot %s already saved\n", fingerprint)
	}
	return nil
}

func runSnapshotLoad(opts *SnapshotOptions, fingerprint string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	db, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	reg, err := db.LoadSnapshot(context.Background(), fingerprint)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	doc, err := reg.Snapshot().EncodeYAML()
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
	}

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, doc, 0o644); err != nil {
			return formatter.Error(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		fmt.Fprintf(formatter.Writer, "✓ Loaded %d symbol(s), wrote %s\n", reg.Len(), opts.Output)
		return nil
	}
	if formatter.Format == "json" {
		data, err := reg.Snapshot().EncodeJSON()
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeGeneric, err.Error(), nil)
		}
		_, err = formatter.Writer.Write(append(data, '\n'))
		return err
	}
	_, err = formatter.Writer.Write(doc)
	return err
}

func runSnapshotList(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	db, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListSnapshots(context.Background())
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No snapshots saved")
		return nil
	}
	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "FINGERPRINT\tLABEL\tSYMBOLS\tCREATED")
	for _, rec := range records {
		label := rec.Label
		if label == "" {
			label = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", rec.Fingerprint, label, rec.Symbols, rec.CreatedAt)
	}
	return w.Flush()
}

func runSnapshotJournal(opts *SnapshotOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	db, err := openStore(opts, formatter)
	if err != nil {
		return err
	}
	defer db.Close()

	records, err := db.ListPlacements(context.Background(), opts.Limit)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}

	if formatter.Format == "json" {
		return formatter.Success(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No placements journaled")
		return nil
	}
	w := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OP\tSYMBOL\tOVERFLOW\tOVERWRITE\tPLACED\tSKIPPED\tLINES")
	for _, rec := range records {
		symbol := rec.Symbol
		if symbol == "" {
			symbol = rec.BreakString
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d-%d\n",
			rec.OpID, symbol, rec.Overflow, rec.Overwrite,
			rec.Placed, rec.Skipped, rec.StartLine, rec.NextLine)
	}
	return w.Flush()
}

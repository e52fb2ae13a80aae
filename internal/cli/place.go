package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slabtone/rebeat/internal/grid"
	"github.com/slabtone/rebeat/internal/place"
	"github.com/slabtone/rebeat/internal/profile"
	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/store"
)

// PlaceOptions holds flags for the place command.
type PlaceOptions struct {
	*RootOptions
	Source      string
	SourceTrack int
	Boundaries  []int
	Profile     string
	Symbol      string
	BreakString string
	Cursor      string
	Overflow    string
	Overwrite   string
	Instrument  string
	Output      string
	DB          string
	Label       string
}

// placeReport is the JSON payload of the place command.
type placeReport struct {
	OpID         string `json:"op_id"`
	Placed       int    `json:"placed"`
	Skipped      int    `json:"skipped"`
	Truncated    int    `json:"truncated"`
	StartLine    int    `json:"start_line"`
	NextLine     int    `json:"next_line"`
	Transitioned bool   `json:"transitioned"`
	Output       string `json:"output,omitempty"`
	Fingerprint  string `json:"fingerprint,omitempty"`
}

// NewPlaceCommand creates the place command.
func NewPlaceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlaceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "place <target.yaml>",
		Short: "Place a symbol or break string onto a target pattern",
		Long: `Place cuts the source pattern into break sets, assigns them to symbol
keys, and places the chosen symbol (or a stitched break-string
permutation) onto the target pattern at its cursor.

Overflow, overwrite, and instrument policies default from the profile
when one is given; explicit flags win. With --db, the symbol registry
is snapshotted and the placement is journaled.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlaceCmd(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Source, "source", "s", "", "source pattern fixture (required)")
	cmd.Flags().IntVar(&opts.SourceTrack, "source-track", 0, "source track to cut")
	cmd.Flags().IntSliceVarP(&opts.Boundaries, "boundary", "b", nil, "boundary channel value (repeatable)")
	cmd.Flags().StringVarP(&opts.Profile, "profile", "p", "", "CUE profile file")
	cmd.Flags().StringVar(&opts.Symbol, "symbol", "", "symbol key to place")
	cmd.Flags().StringVar(&opts.BreakString, "break-string", "", "break-string permutation to stitch and place")
	cmd.Flags().StringVar(&opts.Cursor, "cursor", "", "placement cursor as track:line (default: fixture cursor)")
	cmd.Flags().StringVar(&opts.Overflow, "overflow", "", "overflow policy (extend|next-pattern|truncate|loop)")
	cmd.Flags().StringVar(&opts.Overwrite, "overwrite", "", "overwrite policy (sum|replace|substitute|retain|exclude|intersect)")
	cmd.Flags().StringVar(&opts.Instrument, "instrument-source", "", "instrument source (embedded|current)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the resulting pattern fixture to this file")
	cmd.Flags().StringVar(&opts.DB, "db", "", "snapshot/journal database file")
	cmd.Flags().StringVar(&opts.Label, "label", "", "label for the saved snapshot")
	_ = cmd.MarkFlagRequired("source")

	return cmd
}

func runPlaceCmd(opts *PlaceOptions, targetPath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if (opts.Symbol == "") == (opts.BreakString == "") {
		return formatter.Error(ExitCommandError, ErrCodeBadFlag,
			"exactly one of --symbol and --break-string is required", nil)
	}

	target, err := loadPattern(targetPath)
	if err != nil {
		return err
	}
	if opts.Cursor != "" {
		track, line, err := parseCursor(opts.Cursor)
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeBadFlag, err.Error(), nil)
		}
		target.SetCursor(track, line)
	}

	prof, err := loadProfile(opts.Profile)
	if err != nil {
		return err
	}

	splitOpts := &SplitOptions{
		RootOptions: opts.RootOptions,
		Track:       opts.SourceTrack,
		Boundaries:  opts.Boundaries,
		Profile:     opts.Profile,
	}
	sets, reg, err := splitAndAssign(splitOpts, opts.Source, formatter)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Source cut into %d set(s)", len(sets))

	req, err := buildRequest(opts, prof, sets)
	if err != nil {
		return formatter.Error(ExitCommandError, ErrCodeBadFlag, err.Error(), nil)
	}

	engine := place.NewEngine(reg, nil, nil)
	res, err := engine.Place(req, target)
	if err != nil {
		return formatter.Error(ExitFailure, ErrCodePlacement, err.Error(), nil)
	}

	report := placeReport{
		OpID:         res.OpID,
		Placed:       res.Placed,
		Skipped:      res.Skipped,
		Truncated:    res.Truncated,
		StartLine:    res.StartLine,
		NextLine:     res.NextLine,
		Transitioned: res.Transitioned,
	}

	if opts.Output != "" {
		if err := writeFixtures(target, opts.Output); err != nil {
			return formatter.Error(ExitCommandError, ErrCodeWriteFailed, err.Error(), nil)
		}
		report.Output = opts.Output
	}

	if opts.DB != "" {
		fingerprint, err := journal(opts, reg, req, res)
		if err != nil {
			return formatter.Error(ExitCommandError, ErrCodeStore, err.Error(), nil)
		}
		report.Fingerprint = fingerprint
	}

	if formatter.Format == "json" {
		return formatter.Success(report)
	}

	fmt.Fprintf(formatter.Writer, "✓ Placed %d event(s) [op %s]\n", report.Placed, report.OpID)
	fmt.Fprintf(formatter.Writer, "  start line %d, next line %d\n", report.StartLine, report.NextLine)
	if report.Skipped > 0 {
		fmt.Fprintf(formatter.Writer, "  %d event(s) skipped by overwrite policy\n", report.Skipped)
	}
	if report.Truncated > 0 {
		fmt.Fprintf(formatter.Writer, "  %d event(s) truncated at the pattern edge\n", report.Truncated)
	}
	if report.Transitioned {
		fmt.Fprintln(formatter.Writer, "  overflow continued into a successor pattern")
	}
	if report.Output != "" {
		fmt.Fprintf(formatter.Writer, "  wrote %s\n", report.Output)
	}
	if report.Fingerprint != "" {
		fmt.Fprintf(formatter.Writer, "  snapshot %s\n", report.Fingerprint)
	}
	return nil
}

// buildRequest resolves the placement request from flags, falling
// back to profile defaults for unset policies.
func buildRequest(opts *PlaceOptions, prof *profile.Profile, sets []seq.BreakSet) (place.Request, error) {
	var req place.Request

	if opts.Symbol != "" {
		runes := []rune(opts.Symbol)
		if len(runes) != 1 || !registry.ValidKey(runes[0]) {
			return req, fmt.Errorf("invalid symbol key %q", opts.Symbol)
		}
		req.Symbol = runes[0]
	} else {
		req.BreakString = opts.BreakString
		refs := make([]*seq.BreakSet, len(sets))
		for i := range sets {
			refs[i] = &sets[i]
		}
		req.Sets = refs
	}

	if prof != nil {
		req.Overflow = prof.Defaults.Overflow
		req.Overwrite = prof.Defaults.Overwrite
		req.Instrument = prof.Defaults.Instrument
	}

	var err error
	if opts.Overflow != "" {
		if req.Overflow, err = place.ParseOverflowPolicy(opts.Overflow); err != nil {
			return req, err
		}
	}
	if opts.Overwrite != "" {
		if req.Overwrite, err = place.ParseOverwritePolicy(opts.Overwrite); err != nil {
			return req, err
		}
	}
	if opts.Instrument != "" {
		if req.Instrument, err = place.ParseInstrumentSource(opts.Instrument); err != nil {
			return req, err
		}
	}

	// Pin the engine defaults so the journal records concrete policy
	// names rather than zero values.
	if req.Overflow == 0 {
		req.Overflow = place.OverflowExtend
	}
	if req.Overwrite == 0 {
		req.Overwrite = place.OverwriteSum
	}
	if req.Instrument == 0 {
		req.Instrument = place.InstrumentEmbedded
	}
	return req, nil
}

// writeFixtures dumps the pattern (and, when placement spilled into a
// successor, the successor next to it) back to fixture YAML.
func writeFixtures(target *grid.Pattern, path string) error {
	if err := writeFixture(target, path); err != nil {
		return err
	}
	if succ := target.Successor(); succ != nil {
		return writeFixture(succ, successorPath(path))
	}
	return nil
}

func writeFixture(p *grid.Pattern, path string) error {
	data, err := p.Dump().EncodeYAML()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// successorPath derives the successor's output path: out.yaml becomes
// out.next.yaml.
func successorPath(path string) string {
	if ext := ".yaml"; strings.HasSuffix(path, ext) {
		return strings.TrimSuffix(path, ext) + ".next" + ext
	}
	return path + ".next"
}

// journal saves the registry snapshot and the placement record.
func journal(opts *PlaceOptions, reg *registry.Registry, req place.Request, res *place.Result) (string, error) {
	ctx := context.Background()

	db, err := store.Open(opts.DB)
	if err != nil {
		return "", err
	}
	defer db.Close()

	fingerprint, _, err := db.SaveSnapshot(ctx, reg, opts.Label)
	if err != nil {
		return "", err
	}
	if err := db.RecordPlacement(ctx, store.NewPlacementRecord(req, res)); err != nil {
		return "", err
	}
	return fingerprint, nil
}

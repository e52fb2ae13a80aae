package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slabtone/rebeat/internal/breakset"
	"github.com/slabtone/rebeat/internal/grid"
	"github.com/slabtone/rebeat/internal/profile"
	"github.com/slabtone/rebeat/internal/registry"
	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/timing"
)

// loadPattern reads a grid fixture YAML file and builds the pattern.
func loadPattern(path string) (*grid.Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%s: reading pattern %s", ErrCodeNotFound, path), err)
	}
	p, err := grid.LoadFixture(data)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%s: loading pattern %s", ErrCodeBadFixture, path), err)
	}
	return p, nil
}

// analyzeTrack runs timing analysis over the primary column of one
// track of the pattern.
func analyzeTrack(p *grid.Pattern, track int) (seq.AnalyzedSequence, error) {
	if track < 0 || track >= p.Tracks() {
		return seq.AnalyzedSequence{}, NewExitError(ExitCommandError,
			fmt.Sprintf("%s: track %d outside 0-%d", ErrCodeBadFlag, track, p.Tracks()-1))
	}
	return timing.Analyze(p.Track(track)), nil
}

// boundarySet merges --boundary flag values with the profile's
// boundary channels. Flags win when both are given.
func boundarySet(flagBoundaries []int, prof *profile.Profile) breakset.BoundarySet {
	if len(flagBoundaries) > 0 {
		set := make(breakset.BoundarySet, len(flagBoundaries))
		for _, ch := range flagBoundaries {
			set[ch] = true
		}
		return set
	}
	if prof != nil {
		return prof.BoundarySet()
	}
	return nil
}

// loadProfile compiles the CUE profile at path, or returns nil when
// path is empty.
func loadProfile(path string) (*profile.Profile, error) {
	if path == "" {
		return nil, nil
	}
	prof, err := profile.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError,
			fmt.Sprintf("%s: loading profile %s", ErrCodeBadProfile, path), err)
	}
	return prof, nil
}

// assignSets fills the registry with the break sets in namespace
// order (A, B, C, ...). Profile symbol entries override the per-set
// instrument where a key matches.
func assignSets(reg *registry.Registry, sets []seq.BreakSet, prof *profile.Profile) error {
	for i := range sets {
		key, err := reg.NextFreeKey()
		if err != nil {
			return err
		}
		instrument := seq.EmptyInstrument
		if prof != nil {
			if cfg, ok := prof.Symbols[key]; ok && cfg.Instrument >= 0 {
				instrument = cfg.Instrument
			}
		}
		if err := reg.AssignBreakSet(key, &sets[i], instrument); err != nil {
			return err
		}
	}
	return nil
}

// parseCursor parses a "track:line" flag value.
func parseCursor(s string) (track, line int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("cursor %q is not track:line", s)
	}
	if track, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("cursor track %q: %w", parts[0], err)
	}
	if line, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("cursor line %q: %w", parts[1], err)
	}
	if track < 0 || line < 1 {
		return 0, 0, fmt.Errorf("cursor %q out of range", s)
	}
	return track, line, nil
}

// newFormatter builds the OutputFormatter for a command invocation.
// Verbose diagnostics go to the command's stderr so JSON output stays
// parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

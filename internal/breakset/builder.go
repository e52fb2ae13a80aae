// Package breakset partitions an analyzed sequence into break sets:
// contiguous runs of events split at user-marked boundary lines, each
// normalized to its own local timeline.
package breakset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/slabtone/rebeat/internal/seq"
)

// MaxBoundaries is the largest number of marked boundary lines a
// sequence may carry. Five boundaries partition the sequence into at
// most six sets, which is also the size of the break-string alphabet.
const MaxBoundaries = 5

// ConfigError reports an invalid boundary configuration. It is
// surfaced before any set is built; callers detect it with
// errors.As / IsConfigError.
type ConfigError struct {
	Code    string
	Message string
}

// Error codes for boundary configuration failures.
const (
	ErrCodeTooManyBoundaries = "CONFIG_TOO_MANY_BOUNDARIES"
)

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// BoundarySet is the caller-supplied set of channel values that mark
// section boundaries.
type BoundarySet map[int]bool

// Build partitions the analyzed sequence at every line whose event
// channel matches the boundary set and returns the resulting break
// sets in line order.
//
// Boundaries are implicit at line 1 and at length+1: set k spans from
// one boundary to the line before the next. Spans that contain no
// events produce no set. More than MaxBoundaries marked lines is a
// configuration error and nothing is built.
func Build(a seq.AnalyzedSequence, boundaries BoundarySet) ([]seq.BreakSet, error) {
	if a.Empty() {
		return nil, nil
	}

	var marks []int
	for _, ev := range a.Events {
		if boundaries[ev.Channel] {
			marks = append(marks, ev.Line)
		}
	}
	if len(marks) > MaxBoundaries {
		return nil, &ConfigError{
			Code: ErrCodeTooManyBoundaries,
			Message: fmt.Sprintf("%d boundary lines marked, at most %d allowed",
				len(marks), MaxBoundaries),
		}
	}

	// Events arrive in line order, so marks are already ascending.
	// Close the partition with the implicit boundaries at 1 and
	// length+1.
	edges := make([]int, 0, len(marks)+2)
	if len(marks) == 0 || marks[0] != 1 {
		edges = append(edges, 1)
	}
	edges = append(edges, marks...)
	edges = append(edges, a.Length+1)

	var sets []seq.BreakSet
	for k := 0; k+1 < len(edges); k++ {
		set, ok := buildSet(a.Events, edges[k], edges[k+1]-1)
		if ok {
			sets = append(sets, set)
		}
	}

	slog.Debug("break sets built",
		"boundaries", len(marks),
		"sets", len(sets),
		"length", a.Length,
	)
	return sets, nil
}

// buildSet collects the events in [start, end] and computes the
// self-relative timing. Returns ok=false when the span holds no
// events.
func buildSet(events []seq.Event, start, end int) (seq.BreakSet, bool) {
	var span []seq.Event
	for _, ev := range events {
		if ev.Line >= start && ev.Line <= end {
			span = append(span, ev)
		}
	}
	if len(span) == 0 {
		return seq.BreakSet{}, false
	}

	return seq.BreakSet{
		StartLine: start,
		EndLine:   end,
		Events:    span,
		Relative:  relativize(span),
	}, true
}

// relativize converts absolute event timing to the set-local
// representation: the first event maps to (line 1, delay 0) and every
// later event keeps its tick offset from it. A delay that would go
// negative after subtracting the first event's delay borrows one line.
func relativize(span []seq.Event) []seq.RelativeEvent {
	base := span[0].Line
	adjustment := span[0].Delay

	rel := make([]seq.RelativeEvent, len(span))
	for i, ev := range span {
		entry := seq.RelativeEvent{
			Channel:     ev.Channel,
			Distance:    ev.Distance,
			Note:        ev.Note,
			Instrument:  ev.Instrument,
			Volume:      ev.Volume,
			Panning:     ev.Panning,
			EffectID:    ev.EffectID,
			EffectValue: ev.EffectValue,
		}
		if i == 0 {
			entry.Line = 1
			entry.Delay = 0
		} else {
			delay := ev.Delay - adjustment
			line := ev.Line
			if delay < 0 {
				line--
				delay += seq.TicksPerLine
			}
			entry.Line = line + 1 - base
			entry.Delay = delay
		}
		rel[i] = entry
	}
	return rel
}

package stitch

import (
	"errors"
	"fmt"
)

// BreakStringError reports an invalid break-string character. It is a
// user-facing validation error: the message names the offending
// character and the valid alphabet for the current set count.
type BreakStringError struct {
	Char     rune
	Position int
	SetCount int
}

func (e *BreakStringError) Error() string {
	if e.SetCount == 0 {
		return "break string given but no break sets are defined"
	}
	if e.Char == 0 {
		return "empty break string"
	}
	return fmt.Sprintf("invalid break-string character %q at position %d: valid range is A-%c for %d sets",
		e.Char, e.Position+1, 'A'+rune(e.SetCount-1), e.SetCount)
}

// IsBreakStringError reports whether err is (or wraps) a
// BreakStringError.
func IsBreakStringError(err error) bool {
	var be *BreakStringError
	return errors.As(err, &be)
}

// ParsePermutation parses a break string over an alphabet sized to the
// current break-set count ('A' for set 0 up to at most 'E' plus one
// for six sets) and returns the 0-based set indices in playback order.
// Characters may repeat: "ABA" plays the first set twice.
//
// An empty string or an out-of-alphabet character is rejected without
// partial results.
func ParsePermutation(s string, setCount int) ([]int, error) {
	if setCount == 0 {
		return nil, &BreakStringError{SetCount: 0}
	}
	if s == "" {
		return nil, &BreakStringError{Char: 0, Position: 0, SetCount: setCount}
	}

	order := make([]int, 0, len(s))
	for i, r := range s {
		idx := int(r - 'A')
		if idx < 0 || idx >= setCount {
			return nil, &BreakStringError{Char: r, Position: i, SetCount: setCount}
		}
		order = append(order, idx)
	}
	return order, nil
}

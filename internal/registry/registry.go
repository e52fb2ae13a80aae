package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/slabtone/rebeat/internal/breakset"
	"github.com/slabtone/rebeat/internal/seq"
	"github.com/slabtone/rebeat/internal/timing"
)

// Error codes for registry operations.
const (
	ErrCodeInvalidKey         = "CONFIG_INVALID_SYMBOL_KEY"
	ErrCodeNamespaceExhausted = "CONFIG_NAMESPACE_EXHAUSTED"
	ErrCodeNoSymbol           = "RESOURCE_NO_SYMBOL"
	ErrCodeEmptyEntry         = "RESOURCE_EMPTY_ENTRY"
	ErrCodeEmptyRange         = "RESOURCE_EMPTY_RANGE"
)

// Error reports a registry failure with a stable code for callers to
// branch on.
type Error struct {
	Code    string
	Key     rune
	Message string
}

func (e *Error) Error() string {
	if e.Key != 0 {
		return fmt.Sprintf("%s: %s (key=%c)", e.Code, e.Message, e.Key)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRegistryError reports whether err is (or wraps) a registry Error.
func IsRegistryError(err error) bool {
	var re *Error
	return errors.As(err, &re)
}

// symbolKeys is the full symbol namespace in assignment order:
// letters A-T, then digits 0-9.
const symbolKeys = "ABCDEFGHIJKLMNOPQRST0123456789"

// ValidKey reports whether r names a registry slot.
func ValidKey(r rune) bool {
	return (r >= 'A' && r <= 'T') || (r >= '0' && r <= '9')
}

// Registry maps single-character symbol names to symbols. It is
// process-wide mutable state with no concurrent writers by
// construction: the host is single-threaded, so no locking.
type Registry struct {
	symbols map[rune]*Symbol
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{symbols: make(map[rune]*Symbol)}
}

// Get returns the symbol for key, or a typed resource error when the
// key is unassigned or the entry holds no timing.
func (r *Registry) Get(key rune) (*Symbol, error) {
	if !ValidKey(key) {
		return nil, &Error{Code: ErrCodeInvalidKey, Key: key,
			Message: "symbol keys are A-T and 0-9"}
	}
	sym, ok := r.symbols[key]
	if !ok {
		return nil, &Error{Code: ErrCodeNoSymbol, Key: key,
			Message: "no symbol assigned"}
	}
	if sym.Empty() {
		return nil, &Error{Code: ErrCodeEmptyEntry, Key: key,
			Message: "symbol has no timing entries"}
	}
	return sym, nil
}

// Put assigns a symbol to key, replacing any previous entry.
func (r *Registry) Put(key rune, sym *Symbol) error {
	if !ValidKey(key) {
		return &Error{Code: ErrCodeInvalidKey, Key: key,
			Message: "symbol keys are A-T and 0-9"}
	}
	r.symbols[key] = sym
	slog.Debug("symbol stored", "key", string(key), "kind", sym.Kind.String(),
		"entries", len(sym.Set.Relative))
	return nil
}

// Remove deletes the entry for key. Removing an unassigned key is a
// no-op.
func (r *Registry) Remove(key rune) {
	delete(r.symbols, key)
}

// Len returns the number of assigned symbols.
func (r *Registry) Len() int {
	return len(r.symbols)
}

// Keys returns the assigned keys in namespace order.
func (r *Registry) Keys() []rune {
	keys := make([]rune, 0, len(r.symbols))
	for k := range r.symbols {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b rune) int {
		return keyRank(a) - keyRank(b)
	})
	return keys
}

func keyRank(r rune) int {
	for i, k := range symbolKeys {
		if k == r {
			return i
		}
	}
	return len(symbolKeys)
}

// NextFreeKey returns the first unassigned key in namespace order, or
// a configuration error when all thirty slots are taken.
func (r *Registry) NextFreeKey() (rune, error) {
	for _, k := range symbolKeys {
		if _, taken := r.symbols[k]; !taken {
			return k, nil
		}
	}
	return 0, &Error{Code: ErrCodeNamespaceExhausted,
		Message: "all symbol slots (A-T, 0-9) are assigned"}
}

// AssignBreakSet stores a breakpoint-derived symbol under key.
func (r *Registry) AssignBreakSet(key rune, set *seq.BreakSet, instrument int) error {
	return r.Put(key, &Symbol{
		Kind:       KindBreakpointDerived,
		Instrument: instrument,
		Set:        set,
	})
}

// CaptureRange analyzes the given source rows (the cells of
// [startLine, endLine] on one track) and stores them as a
// range-captured symbol under key. The captured range is normalized
// like a single break set: its first event becomes the symbol origin.
func (r *Registry) CaptureRange(key rune, cells []seq.Cell, instrument int, cap Capture) error {
	analyzed := timing.Analyze(cells)
	sets, err := breakset.Build(analyzed, nil)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return &Error{Code: ErrCodeEmptyRange, Key: key,
			Message: "captured range holds no events"}
	}
	set := sets[0]
	return r.Put(key, &Symbol{
		Kind:       KindRangeCaptured,
		Instrument: instrument,
		Set:        &set,
		Capture:    &cap,
	})
}

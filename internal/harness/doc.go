// Package harness runs declarative placement scenarios: YAML files
// describing a source sequence, a target grid, a list of steps
// (assign, place, cursor moves, resets), and the expected grid and
// result state afterwards. Scenarios double as regression fixtures
// via canonical-JSON golden snapshots.
package harness

// Package fault defines the internal-consistency errors of the inference engine.
//
// Three tiers of trouble exist in the engine:
//
//   - delays are values ([lattice.DV], [components.Status]) and never errors
//   - user-code contradictions are diagnostic messages
//   - internal-consistency violations are [Error] values defined here
//
// An [Error] aborts the analysis of the whole package: once monotonicity is
// broken there is no safe partial result.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrOverwrite is returned when a done property is set to a different value.
	ErrOverwrite = errors.New("overwriting done property with a different value")

	// ErrRegression is returned when a done property is set back to a delay.
	ErrRegression = errors.New("done property regressed to a delay")

	// ErrFrozen is returned when a frozen analysis is written to.
	ErrFrozen = errors.New("analysis is frozen")

	// ErrIterationCap is returned when the orchestrator exceeds its iteration budget.
	ErrIterationCap = errors.New("iteration cap exceeded")

	// ErrNoProgress is returned when a full iteration delays without any progress.
	ErrNoProgress = errors.New("no progress")

	// ErrUnsupported marks analyser states the engine considers impossible.
	ErrUnsupported = errors.New("unsupported analyser state")
)

// Error is an internal-consistency violation attributed to one entity.
type Error struct {
	Op     string // operation, e.g. "set property" or "analyse"
	Entity string // fully qualified name of the offending entity
	Err    error
}

func (e *Error) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as an internal-consistency [Error].
// Wrapping an existing [Error] returns it unchanged so the innermost entity is kept.
func New(op, entity string, err error) error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}
	return &Error{Op: op, Entity: entity, Err: err}
}

// Errorf creates an internal-consistency [Error] wrapping a formatted message.
// Use %w in format to keep a sentinel reachable through [errors.Is].
func Errorf(op, entity, format string, args ...any) error {
	return &Error{Op: op, Entity: entity, Err: fmt.Errorf(format, args...)}
}

// IsInternal reports whether err carries an internal-consistency [Error].
func IsInternal(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

// Package components implements the fixed-point driver shared by every entity analyser.
//
// An analyser is a named, ordered pipeline of steps. Each outer iteration runs
// the pipeline once:
//
//	iteration n:  step1 ─► step2 ─► step3 ─► ... ─► folded Status
//	                 │        │
//	                 │        └─ DELAYS (retried in iteration n+1)
//	                 └─ DONE   (skipped from now on)
//
// Steps are idempotent and resumable. A step that once reported DONE is never
// run again.
package components

import (
	"fmt"
	"log/slog"
)

// Step is one computation of an analyser over its shared state.
type Step[S any] func(shared S) (Status, error)

type entry[S any] struct {
	name   string
	step   Step[S]
	status Status
	ran    bool
}

// Components is the ordered pipeline of one entity analyser.
// It is owned by exactly one analyser and is not safe for concurrent use.
type Components[S any] struct {
	owner   string
	logger  *slog.Logger
	entries []*entry[S]
}

// Builder assembles a [Components] pipeline.
type Builder[S any] struct {
	c *Components[S]
}

// NewBuilder starts a pipeline for the entity with the given qualified name.
func NewBuilder[S any](owner string, logger *slog.Logger) *Builder[S] {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Builder[S]{c: &Components[S]{owner: owner, logger: logger}}
}

// Add appends a named step.
func (b *Builder[S]) Add(name string, step Step[S]) *Builder[S] {
	b.c.entries = append(b.c.entries, &entry[S]{name: name, step: step})
	return b
}

// Build returns the pipeline. The builder must not be used afterwards.
func (b *Builder[S]) Build() *Components[S] {
	c := b.c
	b.c = nil
	return c
}

// Owner returns the qualified name of the owning entity.
func (c *Components[S]) Owner() string { return c.owner }

// Run executes every step that is not yet done and folds their statuses.
//
// The folded status is DONE only when every step is done. It is PROGRESS when
// at least one step is new, reports progress of its own, or changed its status
// since the previous run, and DELAYS otherwise. An error from a step is logged with the owner's name and
// returned; a panic is logged and re-raised.
func (c *Components[S]) Run(shared S) (Status, error) {
	overall := Done
	changed := false
	for _, e := range c.entries {
		if e.ran && e.status.IsDone() {
			continue
		}
		s, err := c.runStep(e, shared)
		if err != nil {
			c.logger.Error("analyser step failed",
				slog.String("entity", c.owner),
				slog.String("step", e.name),
				slog.Any("error", err))
			return Status{}, fmt.Errorf("%s: step %s: %w", c.owner, e.name, err)
		}
		if !e.ran || s.IsProgress() || !s.Same(e.status) {
			changed = true
		}
		e.status, e.ran = s, true
		overall = overall.Combine(s)
	}
	if overall.IsDelayed() && changed {
		return Progress(overall.Causes()), nil
	}
	if overall.IsDelayed() {
		return Delays(overall.Causes()), nil
	}
	return overall, nil
}

func (c *Components[S]) runStep(e *entry[S], shared S) (Status, error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("analyser step panicked",
				slog.String("entity", c.owner),
				slog.String("step", e.name),
				slog.Any("panic", r))
			panic(r)
		}
	}()
	return e.step(shared)
}

// StepStatus is the last recorded status of one step.
type StepStatus struct {
	Name   string
	Status Status
	Ran    bool
}

// Statuses returns the last status of every step, in pipeline order.
func (c *Components[S]) Statuses() []StepStatus {
	out := make([]StepStatus, len(c.entries))
	for i, e := range c.entries {
		out[i] = StepStatus{Name: e.name, Status: e.status, Ran: e.ran}
	}
	return out
}

// Done reports whether every step has reported DONE.
func (c *Components[S]) Done() bool {
	for _, e := range c.entries {
		if !e.ran || !e.status.IsDone() {
			return false
		}
	}
	return true
}

// Package input resolves key presses to configured actions, including
// multi-step chords with a timeout.
package input

import (
	"time"

	"github.com/zafkar/oxwm/internal/config"
)

// Result is the outcome of feeding one key press to the resolver.
type Result struct {
	// Action is non-nil when the press completed a binding.
	Action *config.Action
	// Pending is set while a chord prefix is armed; Prefix holds the steps
	// seen so far for the bar indicator.
	Pending bool
	Prefix  []config.KeyStep
	// Consumed reports whether the press matched anything at all. An
	// unconsumed press should be replayed to the focused client.
	Consumed bool
}

// Resolver matches key presses against a binding table. Single-step
// bindings win immediately; a press that starts at least one chord arms a
// prefix that must be completed before the deadline.
type Resolver struct {
	bindings []config.Binding
	timeout  time.Duration

	prefix   []config.KeyStep
	deadline time.Time
	now      func() time.Time
}

// NewResolver builds a resolver over the configured bindings.
func NewResolver(bindings []config.Binding, timeout time.Duration) *Resolver {
	return &Resolver{
		bindings: bindings,
		timeout:  timeout,
		now:      time.Now,
	}
}

// Replace swaps the binding table after a reload; an armed prefix is
// dropped.
func (r *Resolver) Replace(bindings []config.Binding, timeout time.Duration) {
	r.bindings = bindings
	r.timeout = timeout
	r.reset()
}

// Pending reports whether a chord prefix is armed and, if so, the steps
// entered so far.
func (r *Resolver) Pending() ([]config.KeyStep, bool) {
	if len(r.prefix) == 0 {
		return nil, false
	}
	return r.prefix, true
}

// Deadline returns the time the armed prefix expires; ok is false when no
// prefix is armed.
func (r *Resolver) Deadline() (time.Time, bool) {
	if len(r.prefix) == 0 {
		return time.Time{}, false
	}
	return r.deadline, true
}

// Expire aborts the armed prefix if its deadline has passed, returning
// whether anything changed.
func (r *Resolver) Expire() bool {
	if len(r.prefix) == 0 || r.now().Before(r.deadline) {
		return false
	}
	r.reset()
	return true
}

// Press feeds one key press. Escape aborts an armed prefix without
// matching anything.
func (r *Resolver) Press(step config.KeyStep) Result {
	if len(r.prefix) > 0 && !r.now().Before(r.deadline) {
		r.reset()
	}

	if len(r.prefix) > 0 && step.Mods == 0 && step.Key == "Escape" {
		r.reset()
		return Result{Consumed: true}
	}

	candidate := append(append([]config.KeyStep(nil), r.prefix...), step)
	if b := r.exactMatch(candidate); b != nil {
		r.reset()
		action := b.Action
		return Result{Action: &action, Consumed: true}
	}
	if r.hasPrefix(candidate) {
		r.prefix = candidate
		r.deadline = r.now().Add(r.timeout)
		return Result{Pending: true, Prefix: candidate, Consumed: true}
	}

	// The step broke the armed prefix. Abort and re-evaluate it as a
	// fresh press so a plain binding on the same key still fires.
	if len(r.prefix) > 0 {
		r.reset()
		return r.Press(step)
	}
	return Result{}
}

func (r *Resolver) reset() {
	r.prefix = nil
	r.deadline = time.Time{}
}

// exactMatch returns the binding whose step sequence equals the candidate.
// An exact match always beats arming a longer chord with the same prefix.
func (r *Resolver) exactMatch(steps []config.KeyStep) *config.Binding {
	for i := range r.bindings {
		if stepsEqual(r.bindings[i].Steps, steps) {
			return &r.bindings[i]
		}
	}
	return nil
}

// hasPrefix reports whether any chord starts with the candidate steps.
func (r *Resolver) hasPrefix(steps []config.KeyStep) bool {
	for i := range r.bindings {
		b := r.bindings[i].Steps
		if len(b) <= len(steps) {
			continue
		}
		if stepsEqual(b[:len(steps)], steps) {
			return true
		}
	}
	return false
}

func stepsEqual(a, b []config.KeyStep) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

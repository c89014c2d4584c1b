// Package registry holds the best-so-far registries of the state machine:
// the difficulty-gated solution registry, the sealed-offer registry, and the
// proposal vote tally.
//
// The solution and offer registries share one shape: a Best container keeps
// the current best candidate under a strict comparison, and a submission
// either replaces it, is accepted without replacing it, or is rejected with
// a reason. Rejections never modify state.
package registry

// Best keeps the best candidate seen so far under a strict ordering.
type Best[T any] struct {
	cur    T
	ok     bool
	better func(cand, cur T) bool
}

// NewBest returns an empty Best. better must report whether cand strictly
// improves on cur; ties keep the incumbent.
func NewBest[T any](better func(cand, cur T) bool) *Best[T] {
	return &Best[T]{better: better}
}

// Consider replaces the current best with cand when there is none yet or
// cand is strictly better, and reports whether it did.
func (b *Best[T]) Consider(cand T) bool {
	if b.ok && !b.better(cand, b.cur) {
		return false
	}
	b.cur, b.ok = cand, true
	return true
}

// Get returns the current best and whether one exists.
func (b *Best[T]) Get() (T, bool) { return b.cur, b.ok }

// Reset forgets the current best.
func (b *Best[T]) Reset() {
	var zero T
	b.cur, b.ok = zero, false
}

// Set installs v as the current best unconditionally. Used when restoring.
func (b *Best[T]) Set(v T) { b.cur, b.ok = v, true }

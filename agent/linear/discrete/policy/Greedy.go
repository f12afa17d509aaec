package policy

import "golang.org/x/exp/rand"

// NewGreedy creates a new greedy policy. Since ε = 0 the source is never
// drawn from.
func NewGreedy(values ActionValuer, numActions int) (*EGreedy, error) {
	return NewEGreedy(values, numActions, 0.0, rand.NewSource(0))
}

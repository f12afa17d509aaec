// Package policy implements policies using linear function
// approximation
package policy

import (
	"fmt"

	"github.com/samuelfneumann/tilesarsa/utils/matutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// ActionValuer computes the value of each action in a state. The
// returned vector has one element per action, in action order.
type ActionValuer interface {
	ActionValues(obs mat.Vector) *mat.VecDense
}

// EGreedy implements an ε-greedy policy using linear function
// approximation. With probability ε a uniformly random action is
// selected, otherwise the action with the largest value is selected.
// Ties between greedy actions are broken in favour of the lowest
// action index.
//
// When ε = 0 no random numbers are drawn, so a greedy EGreedy never
// advances its source.
type EGreedy struct {
	values     ActionValuer
	numActions int
	epsilon    float64

	source rand.Source
	rng    *rand.Rand
}

// NewEGreedy constructs a new EGreedy policy, where e=epislon is the
// probability with which a random action is selected, values computes
// the action values, and numActions is the number of actions in the
// environment. All randomness is drawn from source.
func NewEGreedy(values ActionValuer, numActions int, e float64,
	source rand.Source) (*EGreedy, error) {
	if values == nil {
		return nil, fmt.Errorf("policy: action valuer cannot be nil")
	}
	if numActions < 1 {
		return nil, fmt.Errorf("policy: must have at least one action "+
			"(actions = %d)", numActions)
	}
	if err := validEpsilon(e); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("policy: random source cannot be nil")
	}

	return &EGreedy{
		values:     values,
		numActions: numActions,
		epsilon:    e,
		source:     source,
		rng:        rand.New(source),
	}, nil
}

// SelectAction selects an action from the ε-greedy policy
func (p *EGreedy) SelectAction(obs mat.Vector) int {
	if p.epsilon > 0 && p.rng.Float64() < p.epsilon {
		return p.rng.Intn(p.numActions)
	}
	return p.Greedy(obs)
}

// Greedy returns the greedy action in a state, breaking ties by the
// lowest action index
func (p *EGreedy) Greedy(obs mat.Vector) int {
	return matutils.MaxVec(p.values.ActionValues(obs))
}

// Epsilon returns the probability of selecting a random action
func (p *EGreedy) Epsilon() float64 {
	return p.epsilon
}

// SetEpsilon sets the probability of selecting a random action
func (p *EGreedy) SetEpsilon(e float64) error {
	if err := validEpsilon(e); err != nil {
		return err
	}
	p.epsilon = e
	return nil
}

// NumActions returns the number of actions the policy selects between
func (p *EGreedy) NumActions() int {
	return p.numActions
}

// Source returns the source of randomness of the policy
func (p *EGreedy) Source() rand.Source {
	return p.source
}

func validEpsilon(e float64) error {
	if !(e >= 0 && e <= 1) {
		return fmt.Errorf("policy: epsilon must be in [0, 1] (epsilon = %v)",
			e)
	}
	return nil
}

package sarsalambda

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/tilesarsa/timestep"
	"gonum.org/v1/gonum/mat"
)

// ErrInvalidTransition is returned when a Transition does not satisfy
// the SARSA contract: a next action must be given exactly when the
// transition does not end the episode.
var ErrInvalidTransition = errors.New("invalid transition")

// Learner implements the update of the online SARSA(λ) algorithm with
// replacing eligibility traces over the features of an ActionValues.
//
// The trace vector has one element per feature and is never negative.
// It is decayed by γλ on each non-terminal update, the features of the
// current state-action pair are set to exactly 1, and it is reset to
// zero after a terminal update.
type Learner struct {
	values       *ActionValues
	traces       *mat.VecDense
	learningRate float64
	gamma        float64
	lambda       float64
}

// NewLearner returns a new Learner which updates the weights of values.
// Traces start at zero.
func NewLearner(values *ActionValues, learningRate, gamma,
	lambda float64) (*Learner, error) {
	if values == nil {
		return nil, fmt.Errorf("sarsalambda: action values cannot be nil")
	}
	traces := mat.NewVecDense(values.Weights().Len(), nil)

	return &Learner{
		values:       values,
		traces:       traces,
		learningRate: learningRate,
		gamma:        gamma,
		lambda:       lambda,
	}, nil
}

// Update performs a single SARSA(λ) update on the transition t:
//
//	u = r + γ Q(s', a')		(u = r if t is the last transition)
//	z = γλz; z[i] = 1 for each i in x(s, a)	(non-terminal only)
//	δ = u - Q(s, a)
//	w = w + αδz
//	z = 0		(terminal only)
//
// The target is estimated before the current state is encoded. A
// malformed transition returns an error wrapping ErrInvalidTransition
// and leaves the Learner unchanged.
func (l *Learner) Update(t timestep.Transition) error {
	if t.Last && t.HasNextAction() {
		return fmt.Errorf("sarsalambda: next action %d given on last "+
			"transition: %w", t.NextAction, ErrInvalidTransition)
	}
	if !t.Last && !t.HasNextAction() {
		return fmt.Errorf("sarsalambda: no next action given on "+
			"non-terminal transition: %w", ErrInvalidTransition)
	}

	target := t.Reward
	if !t.Last {
		target += l.gamma * l.values.Value(t.NextState, t.NextAction)

		l.traces.ScaleVec(l.gamma*l.lambda, l.traces)
		for _, i := range l.values.Features(t.State, t.Action) {
			l.traces.SetVec(i, 1.0)
		}
	}

	tdError := target - l.values.Value(t.State, t.Action)

	weights := l.values.Weights()
	weights.AddScaledVec(weights, l.learningRate*tdError, l.traces)

	if t.Last {
		l.traces.Zero()
	}
	return nil
}

// TdError returns the TD error of a transition under the current
// weights without performing an update. Like Update, it may grow the
// tile coder's table.
func (l *Learner) TdError(t timestep.Transition) float64 {
	target := t.Reward
	if !t.Last {
		target += l.gamma * l.values.Value(t.NextState, t.NextAction)
	}
	return target - l.values.Value(t.State, t.Action)
}

// Traces returns the eligibility traces of the Learner
func (l *Learner) Traces() *mat.VecDense {
	return l.traces
}

// Weights returns the weights updated by the Learner
func (l *Learner) Weights() *mat.VecDense {
	return l.values.Weights()
}

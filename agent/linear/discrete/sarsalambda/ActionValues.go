package sarsalambda

import (
	"fmt"

	"github.com/samuelfneumann/tilesarsa/utils/matutils"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/tilecoder"
	"gonum.org/v1/gonum/mat"
)

// ActionValues is a linear action-value function over tile-coded
// features. The value of an action in a state is the sum of the
// weights at the feature indices of the tile-coded (state, action)
// pair:
//
//	Q(s, a) = Σ w[i]	for each i in Features(s, a)
//
// Observations are normalized to [0, 1] per dimension before being tile
// coded using the low and width of each dimension. Observations outside
// the bounds are not clamped.
type ActionValues struct {
	coder      *tilecoder.TileCoder
	weights    *mat.VecDense
	low        []float64
	width      []float64
	numActions int

	// Scratch space
	normalized []float64
	indices    []int
}

// NewActionValues returns a new ActionValues. The weights are shared,
// not copied, and must have length coder.Features().
func NewActionValues(coder *tilecoder.TileCoder, weights *mat.VecDense,
	low, width []float64, numActions int) (*ActionValues, error) {
	if coder == nil {
		return nil, fmt.Errorf("sarsalambda: tile coder cannot be nil")
	}
	if weights == nil || weights.Len() != coder.Features() {
		return nil, fmt.Errorf("sarsalambda: weights must have length %d",
			coder.Features())
	}
	if len(low) != len(width) {
		return nil, fmt.Errorf("sarsalambda: %d lower bounds for %d widths",
			len(low), len(width))
	}
	if numActions < 1 {
		return nil, fmt.Errorf("sarsalambda: must have at least one action "+
			"(actions = %d)", numActions)
	}

	return &ActionValues{
		coder:      coder,
		weights:    weights,
		low:        low,
		width:      width,
		numActions: numActions,
		normalized: make([]float64, len(low)),
		indices:    make([]int, coder.Layers()),
	}, nil
}

// Features returns the active feature indices of an action in a state.
// The returned slice is only valid until the next call on the
// ActionValues. Encoding may grow the tile coder's table.
func (a *ActionValues) Features(obs mat.Vector, action int) []int {
	if obs.Len() != len(a.low) {
		panic(fmt.Sprintf("features: observation should have %d dimensions "+
			"(dimensions = %d)", len(a.low), obs.Len()))
	}
	for i := range a.normalized {
		a.normalized[i] = (obs.AtVec(i) - a.low[i]) / a.width[i]
	}
	return a.coder.EncodeInto(a.indices, a.normalized, action)
}

// Value returns the estimated value of an action in a state
func (a *ActionValues) Value(obs mat.Vector, action int) float64 {
	return matutils.SumAt(a.weights, a.Features(obs, action))
}

// ActionValues returns the estimated value of each action in a state.
// Actions are encoded in increasing order.
func (a *ActionValues) ActionValues(obs mat.Vector) *mat.VecDense {
	values := mat.NewVecDense(a.numActions, nil)
	for action := 0; action < a.numActions; action++ {
		values.SetVec(action, a.Value(obs, action))
	}
	return values
}

// NumActions returns the number of actions
func (a *ActionValues) NumActions() int {
	return a.numActions
}

// Coder returns the tile coder used to construct features
func (a *ActionValues) Coder() *tilecoder.TileCoder {
	return a.coder
}

// Weights returns the weights of the action-value function
func (a *ActionValues) Weights() *mat.VecDense {
	return a.weights
}

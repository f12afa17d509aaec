package environment

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// SpecType determines what kind of specification a Spec is. A Spec can
// specify the layout of an acion, an observation, a discount, or a reward
type SpecType int

const (
	Action SpecType = iota
	Observation
	Discount
	Reward
)

// Cardinality determines the cardinality of a number (discrete or continuous)
type Cardinality string

const (
	Continuous Cardinality = "Continuous"
	Discrete   Cardinality = "Discrete"
)

// Spec implements an environment specification, which tells the type,
// shape, and bounds of an action, observation, discount, or reward in
// an environment
type Spec struct {
	Shape      mat.Vector
	Type       SpecType
	LowerBound mat.Vector
	UpperBound mat.Vector
	Cardinality
}

// NewSpec constructs a new environment specification
// The shape argument outlines the shape of the data described by the
// specification. The argument t outlines what the specification is
// describing (e.g. actions, observations, etc.). The cardinality
// arguments describes whether the values that the spec describes are
// continuous or discrete.
func NewSpec(shape mat.Vector, t SpecType, lowerBound,
	upperBound mat.Vector, cardinality Cardinality) Spec {
	if shape.Len() != lowerBound.Len() {
		panic(fmt.Sprintf("shape length %v must match lower bounds length %v",
			shape.Len(), lowerBound.Len()))
	}
	if shape.Len() != upperBound.Len() {
		panic(fmt.Sprintf("shape length %v must match uuper bounds length %v",
			shape.Len(), upperBound.Len()))
	}
	return Spec{shape, t, lowerBound, upperBound, cardinality}
}

// NumActions returns the number of actions described by a discrete,
// 1-dimensional action Spec whose actions are enumerated starting
// from 0.
func (s Spec) NumActions() (int, error) {
	if s.Cardinality != Discrete {
		return 0, fmt.Errorf("numActions: cannot use non-discrete actions")
	}
	if s.LowerBound.Len() != 1 {
		return 0, fmt.Errorf("numActions: actions must be 1-dimensional")
	}
	if s.LowerBound.AtVec(0) != 0.0 {
		return 0, fmt.Errorf("numActions: actions must be enumerated " +
			"starting from 0")
	}

	upper := s.UpperBound.AtVec(0)
	if upper < 0 || upper != math.Trunc(upper) {
		return 0, fmt.Errorf("numActions: illegal upper bound %v", upper)
	}
	return int(upper) + 1, nil
}

// Ranges returns the lower bound and the width of each dimension of the
// Spec. An error is returned if any dimension has a non-positive or
// infinite width.
func (s Spec) Ranges() (low, width []float64, err error) {
	n := s.LowerBound.Len()
	low = make([]float64, n)
	width = make([]float64, n)

	for i := 0; i < n; i++ {
		low[i] = s.LowerBound.AtVec(i)
		width[i] = s.UpperBound.AtVec(i) - low[i]

		if !(width[i] > 0) || math.IsInf(width[i], 0) {
			return nil, nil, fmt.Errorf("ranges: dimension %d has illegal "+
				"bounds [%v, %v]", i, low[i], s.UpperBound.AtVec(i))
		}
	}
	return low, width, nil
}

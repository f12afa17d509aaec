package weights

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LinearUV initializes the weights of a linear function approximator,
// drawing each weight independently from a univariate distribution
type LinearUV struct {
	distuv.Rander
}

// NewLinearUV  creates and returns a new LinearUV
func NewLinearUV(rand distuv.Rander) LinearUV {
	if rand == nil {
		panic("rand cannot be nil")
	}
	return LinearUV{rand}
}

// Initialize initializes a vector of weights using values drawn from
// a univariate distribution
func (l LinearUV) Initialize(weights *mat.VecDense) {
	if weights == nil {
		return
	}

	for i := 0; i < weights.Len(); i++ {
		weights.SetVec(i, l.Rand())
	}
}

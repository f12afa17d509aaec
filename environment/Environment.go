// Package environment outlines the interfaces and sturcts needed to implement
// concrete environments
package environment

import (
	"github.com/samuelfneumann/tilesarsa/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples starting
// states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when episodes end
type Ender interface {
	// End returns whether t is the last timestep in the episode. If so,
	// End marks t as the last timestep with the appropriate EndType.
	End(t *timestep.TimeStep) bool
}

// Task implements the reward scheme for taking actions in some
// environment, as well as the starting state distribution and the
// conditions under which episodes end
type Task interface {
	Starter
	Ender
	GetReward(state mat.Vector, action int, nextState mat.Vector) float64
	AtGoal(state mat.Vector) bool
	RewardSpec() Spec
}

// Environment implements a simualted environment, which includes a Task to
// complete. Actions are enumerated as 0, 1, ..., N where N is the upper
// bound of the ActionSpec.
type Environment interface {
	Task
	Reset() timestep.TimeStep // Resets between episodes
	Step(action int) (timestep.TimeStep, bool)
	LastTimeStep() timestep.TimeStep
	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec
}

// Package agent defines an agent interface
package agent

import (
	"github.com/samuelfneumann/tilesarsa/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how weights are
// updated.
//
// A Learner determines how weights are changed, and therefore how a Policy
// changes over time. The Learner and Policy of an Agent should have pointers
// to the same weights so that the Learner can use the transitions chosen by
// the Policy to update the weights appropriately.
type Learner interface {
	// Update performs a single update given a transition. An error is
	// returned if the transition is malformed, in which case the Learner
	// is left unchanged.
	Update(t timestep.Transition) error
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions. For a given agent, the
// Policy and Learner should have pointers to the same weights so that
// any changes the learner makes to the weights are reflected in the
// actions the Policy chooses
type Policy interface {
	SelectAction(obs mat.Vector) int
}

// EGreedyPolicy is a Policy which acts randomly with probability
// epsilon and greedily otherwise. Epsilon can be changed between steps,
// for example to anneal exploration.
type EGreedyPolicy interface {
	Policy
	Epsilon() float64
	SetEpsilon(float64) error
}

// ValueEstimator estimates the value of taking an action in a state
type ValueEstimator interface {
	EstimateValue(obs mat.Vector, action int) float64
}

package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// NoAction is the NextAction of a Transition into a terminal state,
// where no next action is ever taken
const NoAction int = -1

// Transition is a single (S, A, R, S', A') transition used by on-policy
// control methods. A Transition is never stored; it is built by the
// training loop and handed to a learner.
//
// NextAction is NoAction exactly when Last is true.
type Transition struct {
	State      mat.Vector
	Action     int
	Reward     float64
	NextState  mat.Vector
	NextAction int
	Last       bool
}

// NewTransition returns a transition into a non-terminal state
func NewTransition(state mat.Vector, action int, reward float64,
	nextState mat.Vector, nextAction int) Transition {
	return Transition{
		State:      state,
		Action:     action,
		Reward:     reward,
		NextState:  nextState,
		NextAction: nextAction,
	}
}

// NewLastTransition returns a transition which ends the episode
func NewLastTransition(state mat.Vector, action int, reward float64,
	nextState mat.Vector) Transition {
	return Transition{
		State:      state,
		Action:     action,
		Reward:     reward,
		NextState:  nextState,
		NextAction: NoAction,
		Last:       true,
	}
}

// HasNextAction returns whether a next action was recorded
func (t Transition) HasNextAction() bool {
	return t.NextAction != NoAction
}

func (t Transition) String() string {
	return fmt.Sprintf("Transition | Action: %d  |  Reward: %.2f  |  "+
		"Next Action: %d  |  Last: %v", t.Action, t.Reward, t.NextAction,
		t.Last)
}

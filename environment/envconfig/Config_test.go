package envconfig

import (
	"testing"

	"github.com/samuelfneumann/tilesarsa/environment/classiccontrol/mountaincar"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		conf  Config
		valid bool
	}{
		{"default", NewConfig(MountainCar, Goal, 200, 1.0), true},
		{"discounted", NewConfig(MountainCar, Goal, 1000, 0.99), true},
		{"unknown environment", NewConfig("Pendulum", Goal, 200, 1.0), false},
		{"unknown task", NewConfig(MountainCar, "SwingUp", 200, 1.0), false},
		{"zero cutoff", NewConfig(MountainCar, Goal, 0, 1.0), false},
		{"discount above one", NewConfig(MountainCar, Goal, 200, 1.5), false},
		{"negative discount", NewConfig(MountainCar, Goal, 200, -0.1), false},
	}

	for _, test := range tests {
		err := test.conf.Validate()
		if test.valid && err != nil {
			t.Errorf("%v: unexpected error: %v", test.name, err)
		} else if !test.valid && err == nil {
			t.Errorf("%v: expected an error", test.name)
		}
	}
}

func TestCreate(t *testing.T) {
	c := NewConfig(MountainCar, Goal, 200, 1.0)
	e, step, err := c.Create(1)
	if err != nil {
		t.Fatal(err)
	}

	if !step.First() {
		t.Errorf("first timestep should have step type First, has %v",
			step.StepType)
	}
	x := step.Observation.AtVec(0)
	if x < -0.6 || x > -0.4 {
		t.Errorf("starting position %v outside [-0.6, -0.4]", x)
	}

	n, err := e.ActionSpec().NumActions()
	if err != nil {
		t.Fatal(err)
	}
	if n != mountaincar.MaxDiscreteAction+1 {
		t.Errorf("want %d actions, have %d", mountaincar.MaxDiscreteAction+1,
			n)
	}

	if _, _, err := NewConfig(MountainCar, "", 200, 1.0).Create(1); err == nil {
		t.Errorf("expected an error creating an environment with no task")
	}
}

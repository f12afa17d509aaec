// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	env "github.com/samuelfneumann/tilesarsa/environment"
	"github.com/samuelfneumann/tilesarsa/environment/classiccontrol/mountaincar"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
	"gonum.org/v1/gonum/spatial/r1"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	MountainCar EnvName = "MountainCar"
)

// TaskName stores the tasks that can be configured with this package
type TaskName string

// Tasks available for configuration
const (
	Goal TaskName = "Goal"
)

// Config implements a specific configuration of a specific environment
// and specific task
type Config struct {
	Environment   EnvName
	Task          TaskName
	EpisodeCutoff uint
	Discount      float64
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, taskName TaskName, episodeCutoff uint,
	discount float64) Config {
	return Config{
		Environment:   envName,
		Task:          taskName,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,
	}
}

// Validate returns an error if the Config cannot create an environment
func (c Config) Validate() error {
	if c.Environment != MountainCar {
		return fmt.Errorf("envconfig: no such environment %q", c.Environment)
	}
	if c.Task != Goal {
		return fmt.Errorf("envconfig: %v environment has no task %q",
			c.Environment, c.Task)
	}
	if c.EpisodeCutoff < 1 {
		return fmt.Errorf("envconfig: episode cutoff must be positive")
	}
	if !(c.Discount >= 0 && c.Discount <= 1) {
		return fmt.Errorf("envconfig: discount must be in [0, 1] "+
			"(discount = %v)", c.Discount)
	}
	return nil
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, ts.TimeStep{}, err
	}

	e, step := CreateMountainCar(c.Task, int(c.EpisodeCutoff), seed,
		c.Discount)
	return e, step, nil
}

// CreateMountainCar is a factory for creating the MountainCar
// environment with default physical parameters and default task
// parameters. Starting positions are uniform in [-0.6, -0.4] with zero
// velocity.
func CreateMountainCar(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep) {
	position := r1.Interval{Min: -0.6, Max: -0.4}
	velocity := r1.Interval{Min: 0.0, Max: 0.0}

	s := env.NewUniformStarter([]r1.Interval{position, velocity}, seed)

	var task env.Task
	switch taskName {
	case Goal:
		task = mountaincar.NewGoal(s, cutoff, mountaincar.GoalPosition)

	default:
		panic(fmt.Sprintf("createMountainCar: MountainCar environment has "+
			"no task %v", taskName))
	}

	return mountaincar.NewDiscrete(task, discount)
}

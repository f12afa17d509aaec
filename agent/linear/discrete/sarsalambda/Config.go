package sarsalambda

import (
	"fmt"
	"math"
	"reflect"

	"github.com/samuelfneumann/tilesarsa/agent"
	"github.com/samuelfneumann/tilesarsa/environment"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/initializers/weights"
)

func init() {
	// Register ConfigList type so that it can be typed using
	// agent.TypedConfigList to help with serialization/deserialization.
	agent.Register(agent.EGreedySarsaLambdaLinear, ConfigList{})
}

// ConfigList implements functionality for storing a number of Config's
// in a simple manner. Instead of storing a slice of Configs, the
// ConfigList stores each field's values and constructs the list by
// every combination of field values.
type ConfigList struct {
	Layers       []int
	Features     []int
	Gamma        []float64
	LearningRate []float64
	Epsilon      []float64
	Lambda       []float64
}

// NewConfigList returns a new ConfigList as an agent.TypedConfigList
// so that it can easily be JSON serialized/deserialized without
// knowing the underlying concrete type.
func NewConfigList(layers, features []int, gamma, learningRate, ɛ,
	lambda []float64) agent.TypedConfigList {
	config := ConfigList{
		Layers:       layers,
		Features:     features,
		Gamma:        gamma,
		LearningRate: learningRate,
		Epsilon:      ɛ,
		Lambda:       lambda,
	}
	return agent.NewTypedConfigList(config)
}

// Config returns an empty Config that is of the type stored by
// ConfigList
func (c ConfigList) Config() agent.Config {
	return Config{}
}

// Type returns the type of agent that can be constructed by Config's
// stored by the list
func (c ConfigList) Type() agent.Type {
	return c.Config().Type()
}

// NumFields returns the number of settable fields for the ConfigList
func (c ConfigList) NumFields() int {
	rValue := reflect.ValueOf(c)
	return rValue.NumField()
}

// Len returns the number of Configs stored by the list
func (c ConfigList) Len() int {
	return len(c.Layers) * len(c.Features) * len(c.Gamma) *
		len(c.LearningRate) * len(c.Epsilon) * len(c.Lambda)
}

// At returns the Config at index i in the list
func (c ConfigList) At(i int) Config {
	return agent.ConfigAt(i, c).(Config)
}

// Config represents a configuration for the SarsaLambda agent
type Config struct {
	Layers       int     // Number of tilings
	Features     int     // Capacity of the tile coder's table
	Gamma        float64 // Discount
	LearningRate float64
	Epsilon      float64 // epislon for behaviour policy
	Lambda       float64 // Trace decay
}

// CreateAgent creates the agent from the Config. Agent weights are
// always initialized to zero using this function. To initialize from
// some other distribution, use the agent's constructor manually.
func (c Config) CreateAgent(env environment.Environment,
	seed uint64) (agent.Agent, error) {
	return New(env, c, weights.NewZero(), seed)
}

// ValidAgent returns whether the argument agent is a valid agent for
// construction with the Config
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*SarsaLambda)
	return ok
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Layers < 1 {
		return fmt.Errorf("sarsalambda: must have at least 1 layer "+
			"(layers = %d)", c.Layers)
	}
	if c.Features < 1 {
		return fmt.Errorf("sarsalambda: must have at least 1 feature "+
			"(features = %d)", c.Features)
	}
	if !(c.Gamma >= 0 && c.Gamma <= 1) {
		return fmt.Errorf("sarsalambda: gamma must be in [0, 1] "+
			"(gamma = %v)", c.Gamma)
	}
	if !(c.Epsilon >= 0 && c.Epsilon <= 1) {
		return fmt.Errorf("sarsalambda: epsilon must be in [0, 1] "+
			"(epsilon = %v)", c.Epsilon)
	}
	if !(c.Lambda >= 0 && c.Lambda <= 1) {
		return fmt.Errorf("sarsalambda: lambda must be in [0, 1] "+
			"(lambda = %v)", c.Lambda)
	}
	if !(c.LearningRate >= 0) || math.IsInf(c.LearningRate, 0) {
		return fmt.Errorf("sarsalambda: learning rate must be finite and "+
			"non-negative (learning rate = %v)", c.LearningRate)
	}
	return nil
}

// Type returns the type of the agent constructed by the Config
func (c Config) Type() agent.Type {
	return agent.EGreedySarsaLambdaLinear
}

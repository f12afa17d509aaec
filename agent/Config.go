package agent

import (
	"fmt"
	"reflect"

	"github.com/samuelfneumann/tilesarsa/environment"
)

// Config represents a configuration for creating an agent
type Config interface {
	// CreateAgent creates the agent that the config describes
	CreateAgent(env environment.Environment, seed uint64) (Agent, error)

	// ValidAgent returns whether the argument agent is valid for the
	// Config
	ValidAgent(Agent) bool

	// Validate returns an error describing whether or not the
	// configuration is valid or not.
	Validate() error

	// Type returns the Type of agent constructed by the Config
	Type() Type
}

// ConfigList stores a number of Configs as one slice of values per
// Config field. The Configs in the list are every combination of field
// values, so that a ConfigList describes a hyperparameter sweep.
type ConfigList interface {
	// Config returns an empty Config of the type stored in the list
	Config() Config

	// Type returns the Type of agent constructed by the Configs
	Type() Type

	// NumFields returns the number of settable fields of each Config
	NumFields() int

	// Len returns the number of Configs in the list
	Len() int
}

// ConfigAt returns the Config at index i of a ConfigList. Each exported
// slice field of the ConfigList sets the field of the same name in the
// Config. The first field varies fastest, so that consecutive indices
// differ in the first field.
//
// ConfigAt panics if i is outside [0, list.Len()) or if the ConfigList
// has a field which the Config does not.
func ConfigAt(i int, list ConfigList) Config {
	if i < 0 || i >= list.Len() {
		panic(fmt.Sprintf("configAt: index %d out of range [0, %d)", i,
			list.Len()))
	}

	listValue := reflect.ValueOf(list)
	listType := listValue.Type()

	config := reflect.New(reflect.TypeOf(list.Config())).Elem()

	for f := 0; f < listValue.NumField(); f++ {
		name := listType.Field(f).Name
		values := listValue.Field(f)

		field := config.FieldByName(name)
		if !field.IsValid() {
			panic(fmt.Sprintf("configAt: config %T has no field %v",
				list.Config(), name))
		}

		field.Set(values.Index(i % values.Len()))
		i /= values.Len()
	}

	return config.Interface().(Config)
}

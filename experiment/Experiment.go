// Package experiment implements functionality for running an experiment
package experiment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samuelfneumann/tilesarsa/agent"
	"github.com/samuelfneumann/tilesarsa/environment/envconfig"
	"github.com/samuelfneumann/tilesarsa/experiment/checkpointer"
	"github.com/samuelfneumann/tilesarsa/experiment/trackers"
	"github.com/samuelfneumann/tilesarsa/utils/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Interface Experiment outlines structs that can run experiments.
// Experiments will track environment TimeSteps, caching each TimeStep
// in RAM to be later saved to disk. The Save() function
// will then take all cached data and save it to disk. This is usually
// performed after an experiment has been run. The Run() method will
// run all episodes util the episode or timestep limit is reached, or
// the context is cancelled. The RunEpisode() function will run a single
// episode.
//
// In order to save data, Experiments use Trackers. Trackers determine
// which data generated during the experiment is saved. Experiments will
// send each TimeStep to Trackers using the Tracker's Track() method.
// New Trackers can be registered with an Experiment through the
// consturctor or through an Experiment's Register() function.
type Experiment interface {
	Run(ctx context.Context) error

	// Returns whether or not the experiment has finished
	RunEpisode(ctx context.Context) (bool, error)

	// Save all tracked data to disk
	Save() error

	// Adds a new trackers.Tracker to the (possibly already running)
	// experiment. Useful if you want to track data only after a
	// specified event.
	Register(t trackers.Tracker)
}

// Type is a type of experiment
type Type string

const (
	OnlineExp Type = "OnlineExperiment"
)

// EnvPrefix is the prefix of environment variables which override
// scalar settings of a Config file, for example SARSA_MAXEPISODES or
// SARSA_ENVCONF_DISCOUNT
const EnvPrefix string = "SARSA"

// Config represents a configuration of an experiment. An experiment
// runs until MaxEpisodes episodes have finished or MaxSteps steps have
// been taken, whichever happens first. A zero limit is no limit, but at
// least one limit must be set.
type Config struct {
	Type
	MaxEpisodes uint
	MaxSteps    uint
	EnvConf     envconfig.Config
	AgentConf   agent.TypedConfigList
	Log         logger.Config
}

// LoadConfig loads a Config from a JSON, YAML, or TOML file. Scalar
// settings can be overridden by environment variables prefixed with
// EnvPrefix.
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("type", string(OnlineExp))
	v.SetDefault("envconf.environment", string(envconfig.MountainCar))
	v.SetDefault("envconf.task", string(envconfig.Goal))
	v.SetDefault("envconf.discount", 1.0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}

	c := Config{
		Type:        Type(v.GetString("type")),
		MaxEpisodes: v.GetUint("maxepisodes"),
		MaxSteps:    v.GetUint("maxsteps"),
		EnvConf: envconfig.NewConfig(
			envconfig.EnvName(v.GetString("envconf.environment")),
			envconfig.TaskName(v.GetString("envconf.task")),
			v.GetUint("envconf.episodecutoff"),
			v.GetFloat64("envconf.discount"),
		),
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	// Agent configurations are typed, so they are decoded through JSON
	// to reach their concrete ConfigList type
	agentConf, err := json.Marshal(v.Get("agentconf"))
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %w", err)
	}
	if err := json.Unmarshal(agentConf, &c.AgentConf); err != nil {
		return Config{}, fmt.Errorf("loadConfig: agent config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate returns an error if the Config cannot create an experiment
func (c Config) Validate() error {
	if c.Type != OnlineExp {
		return fmt.Errorf("experiment: no such experiment type %q", c.Type)
	}
	if c.MaxEpisodes == 0 && c.MaxSteps == 0 {
		return fmt.Errorf("experiment: at least one of MaxEpisodes and " +
			"MaxSteps must be positive")
	}
	if err := c.EnvConf.Validate(); err != nil {
		return err
	}
	if c.AgentConf.ConfigList == nil || c.AgentConf.Len() == 0 {
		return fmt.Errorf("experiment: no agent configurations")
	}
	return nil
}

// CreateExp creates the experiment for the agent Config at index i of
// the Config's agent configurations. The environment and agent are both
// seeded with seed.
func (c Config) CreateExp(i int, seed uint64, log logrus.FieldLogger,
	t []trackers.Tracker, check []checkpointer.Checkpointer) (*Online,
	error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if i < 0 || i >= c.AgentConf.Len() {
		return nil, fmt.Errorf("createExp: agent index %d out of range "+
			"[0, %d)", i, c.AgentConf.Len())
	}

	env, _, err := c.EnvConf.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create environment: %w",
			err)
	}

	agentConf := c.AgentConf.At(i)
	if err := agentConf.Validate(); err != nil {
		return nil, fmt.Errorf("createExp: %w", err)
	}
	a, err := agentConf.CreateAgent(env, seed)
	if err != nil {
		return nil, fmt.Errorf("createExp: could not create agent: %w", err)
	}

	switch c.Type {
	case OnlineExp:
		return NewOnline(env, a, c.MaxEpisodes, c.MaxSteps, log, t, check)
	}

	return nil, fmt.Errorf("createExp: no such experiment type %v", c.Type)
}

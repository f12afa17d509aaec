package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/tilesarsa/agent/linear/discrete/sarsalambda"
	"github.com/samuelfneumann/tilesarsa/environment/envconfig"
	"github.com/samuelfneumann/tilesarsa/experiment/checkpointer"
	"github.com/samuelfneumann/tilesarsa/experiment/trackers"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
	"gonum.org/v1/gonum/mat"
)

const jsonConfig = `{
	"Type": "OnlineExperiment",
	"MaxEpisodes": 50,
	"EnvConf": {
		"Environment": "MountainCar",
		"Task": "Goal",
		"EpisodeCutoff": 1000,
		"Discount": 1.0
	},
	"AgentConf": {
		"Type": "EGreedySarsaLambda-Linear",
		"ConfigList": {
			"Layers": [8],
			"Features": [4096],
			"Gamma": [1.0],
			"LearningRate": [0.0625, 0.0125],
			"Epsilon": [0.0],
			"Lambda": [0.9]
		}
	},
	"Log": {"Level": "debug"}
}`

const yamlConfig = `
type: OnlineExperiment
maxsteps: 300
envconf:
  environment: MountainCar
  task: Goal
  episodecutoff: 100
agentconf:
  type: EGreedySarsaLambda-Linear
  configlist:
    layers: [4]
    features: [512]
    gamma: [0.99]
    learningrate: [0.1]
    epsilon: [0.1]
    lambda: [0.5]
`

func writeConfig(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func config(episodes, steps, cutoff uint) Config {
	return Config{
		Type:        OnlineExp,
		MaxEpisodes: episodes,
		MaxSteps:    steps,
		EnvConf:     envconfig.NewConfig(envconfig.MountainCar, envconfig.Goal, cutoff, 1.0),
		AgentConf: sarsalambda.NewConfigList([]int{8}, []int{4096},
			[]float64{1.0}, []float64{0.5 / 8}, []float64{0.0},
			[]float64{0.9}),
	}
}

func TestLoadConfigJSON(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "exp.json", jsonConfig))
	if err != nil {
		t.Fatal(err)
	}

	if c.Type != OnlineExp || c.MaxEpisodes != 50 || c.MaxSteps != 0 {
		t.Errorf("unexpected experiment settings %+v", c)
	}
	if c.EnvConf.EpisodeCutoff != 1000 || c.EnvConf.Environment !=
		envconfig.MountainCar {
		t.Errorf("unexpected environment config %+v", c.EnvConf)
	}
	if c.AgentConf.Len() != 2 {
		t.Fatalf("want 2 agent configs, have %d", c.AgentConf.Len())
	}
	agentConf := c.AgentConf.At(1).(sarsalambda.Config)
	if agentConf.LearningRate != 0.0125 || agentConf.Layers != 8 {
		t.Errorf("unexpected agent config %+v", agentConf)
	}
	if c.Log.Level != "debug" || c.Log.Format != "text" {
		t.Errorf("unexpected log config %+v", c.Log)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	c, err := LoadConfig(writeConfig(t, "exp.yaml", yamlConfig))
	if err != nil {
		t.Fatal(err)
	}

	if c.MaxSteps != 300 || c.EnvConf.Discount != 1.0 {
		t.Errorf("unexpected config %+v", c)
	}
	agentConf := c.AgentConf.At(0).(sarsalambda.Config)
	want := sarsalambda.Config{Layers: 4, Features: 512, Gamma: 0.99,
		LearningRate: 0.1, Epsilon: 0.1, Lambda: 0.5}
	if agentConf != want {
		t.Errorf("want agent config %+v, have %+v", want, agentConf)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SARSA_MAXEPISODES", "7")
	t.Setenv("SARSA_ENVCONF_DISCOUNT", "0.5")

	c, err := LoadConfig(writeConfig(t, "exp.json", jsonConfig))
	if err != nil {
		t.Fatal(err)
	}
	if c.MaxEpisodes != 7 {
		t.Errorf("want 7 episodes from the environment, have %d",
			c.MaxEpisodes)
	}
	if c.EnvConf.Discount != 0.5 {
		t.Errorf("want discount 0.5 from the environment, have %v",
			c.EnvConf.Discount)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	noLimits := `{"EnvConf": {"EpisodeCutoff": 10}, "AgentConf": {
		"Type": "EGreedySarsaLambda-Linear", "ConfigList": {"Layers": [1],
		"Features": [1], "Gamma": [1], "LearningRate": [0.1],
		"Epsilon": [0], "Lambda": [0]}}}`
	if _, err := LoadConfig(writeConfig(t, "a.json", noLimits)); err == nil {
		t.Errorf("a config without limits should be rejected")
	}

	noAgent := `{"MaxEpisodes": 3, "EnvConf": {"EpisodeCutoff": 10}}`
	if _, err := LoadConfig(writeConfig(t, "b.json", noAgent)); err == nil {
		t.Errorf("a config without agents should be rejected")
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "none.json")); err == nil {
		t.Errorf("a missing config file should be rejected")
	}
}

func TestOnlineEpisodeLimit(t *testing.T) {
	returns := trackers.NewReturn("")
	lengths := trackers.NewEpisodeLength("")

	exp, err := config(5, 0, 50).CreateExp(0, 1, nil,
		[]trackers.Tracker{returns, lengths}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if exp.Episodes() != 5 {
		t.Errorf("want 5 episodes, have %d", exp.Episodes())
	}
	if len(returns.Data()) != 5 || len(lengths.Data()) != 5 {
		t.Fatalf("want 5 tracked episodes, have %d returns and %d lengths",
			len(returns.Data()), len(lengths.Data()))
	}

	var total float64
	for i, length := range lengths.Data() {
		if length < 1 || length > 50 {
			t.Errorf("episode %d: length %v outside [1, 50]", i, length)
		}
		if returns.Data()[i] > -length+1 {
			t.Errorf("episode %d: return %v too large for length %v", i,
				returns.Data()[i], length)
		}
		total += length
	}
	if uint(total) != exp.Steps() {
		t.Errorf("episode lengths sum to %v, took %d steps", total,
			exp.Steps())
	}
}

func TestOnlineStepLimit(t *testing.T) {
	lengths := trackers.NewEpisodeLength("")
	exp, err := config(0, 120, 50).CreateExp(0, 2, nil,
		[]trackers.Tracker{lengths}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if exp.Steps() != 120 {
		t.Errorf("want 120 steps, have %d", exp.Steps())
	}
	// With no learning signal yet, the first episodes time out
	if exp.Episodes() != 2 {
		t.Errorf("want 2 finished episodes, have %d", exp.Episodes())
	}
}

func TestOnlineCancel(t *testing.T) {
	exp, err := config(10, 0, 1000).CreateExp(0, 3, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := exp.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("want context.Canceled, have %v", err)
	}
	if exp.Steps() != 0 {
		t.Errorf("cancelled experiment took %d steps", exp.Steps())
	}
}

func TestOnlineCheckpoints(t *testing.T) {
	dir := t.TempDir()
	c := config(4, 0, 30)

	exp, err := c.CreateExp(0, 4, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	agent := exp.Agent.(*sarsalambda.SarsaLambda)
	check := checkpointer.NewNEpisode(2, agent,
		checkpointer.FilenameEnumerator(0, filepath.Join(dir, "agent"),
			".bin"))

	exp, err = NewOnline(exp.Environment, agent, 4, 0, nil, nil,
		[]checkpointer.Checkpointer{check})
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"agent-1.bin", "agent-2.bin"} {
		if _, err := sarsalambda.Load(filepath.Join(dir, name)); err != nil {
			t.Errorf("checkpoint %v: %v", name, err)
		}
	}
}

func TestNewOnlineRequiresLimit(t *testing.T) {
	if _, err := NewOnline(nil, nil, 0, 0, nil, nil, nil); err == nil {
		t.Errorf("an unlimited experiment should be rejected")
	}
}

func TestOnlineLearnsMountainCar(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping learning test in short mode")
	}

	lengths := trackers.NewEpisodeLength("")
	exp, err := config(50, 0, 1000).CreateExp(0, 5, nil,
		[]trackers.Tracker{lengths}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := exp.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	data := lengths.Data()
	var mean float64
	for _, length := range data[len(data)-10:] {
		mean += length / 10
	}
	if mean > 400 {
		t.Errorf("mean length of the last 10 episodes is %v, want at most "+
			"400", mean)
	}
}

// pump accelerates in the direction the car is moving, which builds
// enough momentum to reach the goal
type pump struct{}

func (pump) SelectAction(obs mat.Vector) int {
	if obs.AtVec(1) < 0 {
		return 0
	}
	return 2
}

func TestEvaluate(t *testing.T) {
	e, _, err := envconfig.NewConfig(envconfig.MountainCar, envconfig.Goal,
		1000, 1.0).Create(6)
	if err != nil {
		t.Fatal(err)
	}

	result, err := Evaluate(context.Background(), e, pump{})
	if err != nil {
		t.Fatal(err)
	}
	if result.EndType != ts.TerminalStateReached {
		t.Fatalf("pumping policy did not reach the goal: %+v", result)
	}
	if result.Return != -float64(result.Length-1) {
		t.Errorf("want return %v for length %d, have %v",
			-float64(result.Length-1), result.Length, result.Return)
	}
}

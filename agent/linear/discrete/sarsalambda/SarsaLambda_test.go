package sarsalambda

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/tilesarsa/environment"
	"github.com/samuelfneumann/tilesarsa/timestep"
	"github.com/samuelfneumann/tilesarsa/utils/matutils"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/initializers/weights"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	obsLow  = []float64{-1.2, -0.07}
	obsHigh = []float64{0.6, 0.07}

	obsSpec = environment.NewSpec(mat.NewVecDense(2, nil),
		environment.Observation, mat.NewVecDense(2, obsLow),
		mat.NewVecDense(2, obsHigh), environment.Continuous)

	actionSpec = environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Action, mat.NewVecDense(1, []float64{0}),
		mat.NewVecDense(1, []float64{2}), environment.Discrete)
)

func defaultConfig() Config {
	return Config{
		Layers:       8,
		Features:     4096,
		Gamma:        1.0,
		LearningRate: 0.1 / 8,
		Epsilon:      0.1,
		Lambda:       0.9,
	}
}

func newAgent(t testing.TB, c Config, seed uint64) *SarsaLambda {
	s, err := NewFromSpecs(obsSpec, actionSpec, c, weights.NewZero(),
		rand.NewSource(seed))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func randomObs(rng *rand.Rand) *mat.VecDense {
	obs := make([]float64, len(obsLow))
	for i := range obs {
		obs[i] = obsLow[i] + rng.Float64()*(obsHigh[i]-obsLow[i])
	}
	return mat.NewVecDense(len(obs), obs)
}

// run performs steps updates on random observations, ending an episode
// every episodeLength steps. It returns the actions selected.
func run(t testing.TB, s *SarsaLambda, rng *rand.Rand, steps,
	episodeLength int) []int {
	actions := make([]int, 0, steps)

	obs := randomObs(rng)
	action := s.SelectAction(obs)
	for i := 1; i <= steps; i++ {
		next := randomObs(rng)
		reward := -1.0

		var tr timestep.Transition
		var nextAction int
		if i%episodeLength == 0 {
			tr = timestep.NewLastTransition(obs, action, reward, next)
			next = randomObs(rng)
			nextAction = s.SelectAction(next)
		} else {
			nextAction = s.SelectAction(next)
			tr = timestep.NewTransition(obs, action, reward, next, nextAction)
		}

		if err := s.Update(tr); err != nil {
			t.Fatal(err)
		}
		actions = append(actions, action)
		obs, action = next, nextAction
	}
	return actions
}

func BenchmarkUpdate(b *testing.B) {
	s := newAgent(b, defaultConfig(), 1)
	rng := rand.New(rand.NewSource(2))

	obs := randomObs(rng)
	next := randomObs(rng)
	tr := timestep.NewTransition(obs, 0, -1, next, 1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Update(tr); err != nil {
			b.Fatal(err)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	valid := defaultConfig()

	tests := []struct {
		name   string
		modify func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"boundary values", func(c *Config) {
			c.Layers, c.Features = 1, 1
			c.Gamma, c.Epsilon, c.Lambda, c.LearningRate = 0, 1, 0, 0
		}, true},
		{"zero layers", func(c *Config) { c.Layers = 0 }, false},
		{"zero features", func(c *Config) { c.Features = 0 }, false},
		{"gamma above one", func(c *Config) { c.Gamma = 1.01 }, false},
		{"negative gamma", func(c *Config) { c.Gamma = -0.1 }, false},
		{"NaN gamma", func(c *Config) { c.Gamma = math.NaN() }, false},
		{"negative epsilon", func(c *Config) { c.Epsilon = -0.5 }, false},
		{"epsilon above one", func(c *Config) { c.Epsilon = 2 }, false},
		{"negative lambda", func(c *Config) { c.Lambda = -1 }, false},
		{"lambda above one", func(c *Config) { c.Lambda = 1.5 }, false},
		{"negative learning rate", func(c *Config) {
			c.LearningRate = -0.1
		}, false},
		{"infinite learning rate", func(c *Config) {
			c.LearningRate = math.Inf(1)
		}, false},
		{"NaN learning rate", func(c *Config) {
			c.LearningRate = math.NaN()
		}, false},
	}

	for _, test := range tests {
		c := valid
		test.modify(&c)

		err := c.Validate()
		if test.valid && err != nil {
			t.Errorf("%v: unexpected error: %v", test.name, err)
		} else if !test.valid && err == nil {
			t.Errorf("%v: expected an error", test.name)
		}

		_, err = NewFromSpecs(obsSpec, actionSpec, c, nil, rand.NewSource(1))
		if !test.valid && err == nil {
			t.Errorf("%v: construction should fail", test.name)
		}
	}
}

func TestNewRejectsIllegalSpecs(t *testing.T) {
	continuous := environment.NewSpec(mat.NewVecDense(1, nil),
		environment.Action, mat.NewVecDense(1, []float64{-1}),
		mat.NewVecDense(1, []float64{1}), environment.Continuous)
	if _, err := NewFromSpecs(obsSpec, continuous, defaultConfig(), nil,
		rand.NewSource(1)); err == nil {
		t.Errorf("continuous actions should be rejected")
	}

	flat := environment.NewSpec(mat.NewVecDense(2, nil),
		environment.Observation, mat.NewVecDense(2, []float64{0, 1}),
		mat.NewVecDense(2, []float64{1, 1}), environment.Continuous)
	if _, err := NewFromSpecs(flat, actionSpec, defaultConfig(), nil,
		rand.NewSource(1)); err == nil {
		t.Errorf("zero width observation bounds should be rejected")
	}
}

func TestDeterminism(t *testing.T) {
	s1 := newAgent(t, defaultConfig(), 42)
	s2 := newAgent(t, defaultConfig(), 42)

	a1 := run(t, s1, rand.New(rand.NewSource(9)), 2000, 50)
	a2 := run(t, s2, rand.New(rand.NewSource(9)), 2000, 50)

	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("step %d: same seed selected %d and %d", i, a1[i], a2[i])
		}
	}
	if !mat.Equal(s1.Weights(), s2.Weights()) {
		t.Errorf("same seed produced different weights")
	}
	if !mat.Equal(s1.Traces(), s2.Traces()) {
		t.Errorf("same seed produced different traces")
	}
}

func TestTracesStayInUnitInterval(t *testing.T) {
	s := newAgent(t, defaultConfig(), 3)
	rng := rand.New(rand.NewSource(4))

	for i := 0; i < 20; i++ {
		run(t, s, rng, 37, 1000)

		if min := matutils.VecMin(s.Traces()); min < 0 {
			t.Fatalf("iteration %d: negative trace %v", i, min)
		}
		if max := mat.Max(s.Traces()); max > 1 {
			t.Fatalf("iteration %d: trace %v above 1", i, max)
		}
	}
}

func TestTracesResetAfterTerminal(t *testing.T) {
	s := newAgent(t, defaultConfig(), 5)
	rng := rand.New(rand.NewSource(6))

	run(t, s, rng, 25, 1000)
	if mat.Max(s.Traces()) != 1 {
		t.Fatalf("non-terminal updates should set active traces to 1")
	}

	obs, next := randomObs(rng), randomObs(rng)
	if err := s.Update(timestep.NewLastTransition(obs, 1, -1, next)); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < s.Traces().Len(); i++ {
		if z := s.Traces().AtVec(i); z != 0 {
			t.Fatalf("trace %d = %v after terminal update", i, z)
		}
	}
}

func TestSingleStepEpisode(t *testing.T) {
	s := newAgent(t, defaultConfig(), 7)

	obs := mat.NewVecDense(2, []float64{0.45, 0.06})
	next := mat.NewVecDense(2, []float64{0.52, 0.07})
	if err := s.Update(timestep.NewLastTransition(obs, 2, -1, next)); err != nil {
		t.Fatal(err)
	}

	// Traces of the terminal pair are never set, so nothing is learned
	for i := 0; i < s.Weights().Len(); i++ {
		if w := s.Weights().AtVec(i); w != 0 {
			t.Fatalf("weight %d = %v after single step episode", i, w)
		}
	}
	if mat.Max(s.Traces()) != 0 || matutils.VecMin(s.Traces()) != 0 {
		t.Errorf("traces should be zero after single step episode")
	}
}

func TestUpdate(t *testing.T) {
	c := Config{Layers: 4, Features: 1024, Gamma: 1, LearningRate: 0.5,
		Epsilon: 0, Lambda: 0}
	s := newAgent(t, c, 1)

	obs := mat.NewVecDense(2, []float64{-0.5, 0})
	next := mat.NewVecDense(2, []float64{-0.49, 0.001})
	tr := timestep.NewTransition(obs, 1, -1, next, 1)
	if err := s.Update(tr); err != nil {
		t.Fatal(err)
	}

	// u = -1, δ = -1, each of the 4 active weights moves by αδ = -0.5
	if q := s.EstimateValue(obs, 1); q != -2 {
		t.Errorf("Q(s, a): want -2, have %v", q)
	}

	// Other actions use separate tilings
	if q := s.EstimateValue(obs, 0); q != 0 {
		t.Errorf("Q(s, 0): want 0, have %v", q)
	}
}

func TestTraceDecay(t *testing.T) {
	const (
		gamma  = 0.9
		lambda = 0.5
	)
	c := Config{Layers: 4, Features: 1024, Gamma: gamma, LearningRate: 0.1,
		Epsilon: 0, Lambda: lambda}
	s := newAgent(t, c, 1)

	s1 := mat.NewVecDense(2, []float64{-0.5, 0})
	s2 := mat.NewVecDense(2, []float64{-0.45, 0.01})
	s3 := mat.NewVecDense(2, []float64{-0.4, 0.02})

	if err := s.Update(timestep.NewTransition(s1, 0, -1, s2, 2)); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(timestep.NewTransition(s2, 2, -1, s3, 2)); err != nil {
		t.Fatal(err)
	}

	first := append([]int(nil), s.values.Features(s1, 0)...)
	second := append([]int(nil), s.values.Features(s2, 2)...)

	for _, i := range first {
		if z := s.Traces().AtVec(i); math.Abs(z-gamma*lambda) > 1e-12 {
			t.Errorf("decayed trace %d: want %v, have %v", i, gamma*lambda, z)
		}
	}
	for _, i := range second {
		if z := s.Traces().AtVec(i); z != 1 {
			t.Errorf("replaced trace %d: want 1, have %v", i, z)
		}
	}

	nonZero := 0
	for i := 0; i < s.Traces().Len(); i++ {
		if s.Traces().AtVec(i) != 0 {
			nonZero++
		}
	}
	if nonZero != len(first)+len(second) {
		t.Errorf("want %d non-zero traces, have %d", len(first)+len(second),
			nonZero)
	}
}

func TestLambdaZeroIsOneStep(t *testing.T) {
	c := defaultConfig()
	c.Lambda = 0
	s := newAgent(t, c, 11)
	rng := rand.New(rand.NewSource(12))

	for i := 0; i < 50; i++ {
		obs, next := randomObs(rng), randomObs(rng)
		tr := timestep.NewTransition(obs, i%3, -1, next, (i+1)%3)
		if err := s.Update(tr); err != nil {
			t.Fatal(err)
		}

		active := s.values.Features(obs, i%3)
		nonZero := 0
		for j := 0; j < s.Traces().Len(); j++ {
			if s.Traces().AtVec(j) != 0 {
				nonZero++
			}
		}
		if nonZero > len(active) {
			t.Fatalf("update %d: %d non-zero traces, at most %d features "+
				"are active", i, nonZero, len(active))
		}
	}
}

func TestEstimateValueIsSumOfWeights(t *testing.T) {
	init := weights.NewLinearUV(distuv.Uniform{Min: -1, Max: 1,
		Src: rand.NewSource(13)})
	s, err := NewFromSpecs(obsSpec, actionSpec, defaultConfig(), init,
		rand.NewSource(1))
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(14))

	for i := 0; i < 200; i++ {
		obs := randomObs(rng)
		action := rng.Intn(3)

		want := matutils.SumAt(s.Weights(), s.values.Features(obs, action))
		if have := s.EstimateValue(obs, action); have != want {
			t.Fatalf("Q(s, %d): want %v, have %v", action, want, have)
		}
	}
}

func TestGreedyTieBreak(t *testing.T) {
	c := defaultConfig()
	c.Epsilon = 0
	s := newAgent(t, c, 1)
	rng := rand.New(rand.NewSource(15))

	// All action values are 0, so the lowest action is chosen
	for i := 0; i < 100; i++ {
		if a := s.SelectAction(randomObs(rng)); a != 0 {
			t.Fatalf("want action 0 on ties, have %d", a)
		}
	}

	// Make action 2 better than actions 0 and 1, which remain tied
	obs := mat.NewVecDense(2, []float64{-0.3, 0.01})
	for _, i := range s.values.Features(obs, 2) {
		s.Weights().SetVec(i, 1)
	}
	if a := s.SelectAction(obs); a != 2 {
		t.Errorf("want greedy action 2, have %d", a)
	}
}

func TestInvalidTransition(t *testing.T) {
	s := newAgent(t, defaultConfig(), 1)
	rng := rand.New(rand.NewSource(16))
	run(t, s, rng, 30, 1000)

	weightsBefore := mat.VecDenseCopyOf(s.Weights())
	tracesBefore := mat.VecDenseCopyOf(s.Traces())
	countBefore := s.TileCoder().Table().Count()

	obs, next := randomObs(rand.New(rand.NewSource(100))),
		randomObs(rand.New(rand.NewSource(101)))

	bad := []timestep.Transition{
		{State: obs, Action: 0, Reward: -1, NextState: next,
			NextAction: 1, Last: true},
		{State: obs, Action: 0, Reward: -1, NextState: next,
			NextAction: timestep.NoAction, Last: false},
	}

	for i, tr := range bad {
		err := s.Update(tr)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("transition %d: want ErrInvalidTransition, have %v", i,
				err)
		}
	}

	if !mat.Equal(weightsBefore, s.Weights()) {
		t.Errorf("invalid transitions should not change weights")
	}
	if !mat.Equal(tracesBefore, s.Traces()) {
		t.Errorf("invalid transitions should not change traces")
	}
	if count := s.TileCoder().Table().Count(); count != countBefore {
		t.Errorf("invalid transitions should not grow the table: %d -> %d",
			countBefore, count)
	}
}

func TestSetEpsilon(t *testing.T) {
	s := newAgent(t, defaultConfig(), 1)

	if err := s.SetEpsilon(0.0); err != nil {
		t.Fatal(err)
	}
	if s.Epsilon() != 0 {
		t.Errorf("want epsilon 0, have %v", s.Epsilon())
	}
	if err := s.SetEpsilon(-1); err == nil {
		t.Errorf("epsilon -1 should be rejected")
	}
}

func TestCheckpoint(t *testing.T) {
	s := newAgent(t, defaultConfig(), 21)
	rng := rand.New(rand.NewSource(22))
	run(t, s, rng, 500, 40)

	if err := s.SetEpsilon(0.3); err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(t.TempDir(), "agent.bin")
	if err := s.Save(filename); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(filename)
	if err != nil {
		t.Fatal(err)
	}

	if loaded.Config() != s.Config() {
		t.Errorf("config: want %+v, have %+v", s.Config(), loaded.Config())
	}
	if loaded.Epsilon() != 0.3 {
		t.Errorf("epsilon: want 0.3, have %v", loaded.Epsilon())
	}
	if !mat.Equal(loaded.Weights(), s.Weights()) {
		t.Errorf("loaded weights differ")
	}
	if !mat.Equal(loaded.Traces(), s.Traces()) {
		t.Errorf("loaded traces differ")
	}
	if loaded.TileCoder().Table().Count() != s.TileCoder().Table().Count() {
		t.Errorf("loaded table count differs")
	}

	// Both agents continue identically
	a1 := run(t, s, rand.New(rand.NewSource(23)), 300, 40)
	a2 := run(t, loaded, rand.New(rand.NewSource(23)), 300, 40)
	for i := range a1 {
		if a1[i] != a2[i] {
			t.Fatalf("step %d after reload: want action %d, have %d", i,
				a1[i], a2[i])
		}
	}
	if !mat.Equal(loaded.Weights(), s.Weights()) {
		t.Errorf("weights diverged after reload")
	}
}

func TestConfigList(t *testing.T) {
	list := ConfigList{
		Layers:       []int{8},
		Features:     []int{1024, 4096},
		Gamma:        []float64{1},
		LearningRate: []float64{0.01, 0.1},
		Epsilon:      []float64{0.1},
		Lambda:       []float64{0.9},
	}

	if list.Len() != 4 {
		t.Fatalf("want 4 configs, have %d", list.Len())
	}
	if list.NumFields() != 6 {
		t.Errorf("want 6 fields, have %d", list.NumFields())
	}

	want := Config{Layers: 8, Features: 4096, Gamma: 1, LearningRate: 0.1,
		Epsilon: 0.1, Lambda: 0.9}
	if c := list.At(3); c != want {
		t.Errorf("config 3: want %+v, have %+v", want, c)
	}

	typed := NewConfigList(list.Layers, list.Features, list.Gamma,
		list.LearningRate, list.Epsilon, list.Lambda)
	if c := typed.At(1).(Config); c.Features != 4096 || c.LearningRate != 0.01 {
		t.Errorf("typed config 1: have %+v", c)
	}
}

// Package sarsalambda implements the online SARSA(λ) algorithm with
// replacing eligibility traces, using linear function approximation
// over hashed tile-coded features.
package sarsalambda

import (
	"fmt"

	"github.com/samuelfneumann/tilesarsa/agent/linear/discrete/policy"
	"github.com/samuelfneumann/tilesarsa/environment"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/initializers/weights"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/tilecoder"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// SarsaLambda implements the online SARSA(λ) algorithm. Actions
// selected by this algorithm will always be enumerated as
// (0, 1, 2, ... N) where N is the maximum possible action.
//
// The behaviour policy is ε-greedy with respect to the learned action
// values, and the Learner and Policy share the same weights. Each
// SarsaLambda owns its tile coder, weights, traces, and source of
// randomness; it is not safe for concurrent use.
type SarsaLambda struct {
	*Learner
	*policy.EGreedy

	values *ActionValues
	config Config
	seed   uint64
}

// New creates a new SarsaLambda agent for the environment env. Weights
// are initialized with init and action selection draws from a source
// seeded with seed.
func New(env environment.Environment, c Config, init weights.Initializer,
	seed uint64) (*SarsaLambda, error) {
	s, err := NewFromSpecs(env.ObservationSpec(), env.ActionSpec(), c, init,
		rand.NewSource(seed))
	if err != nil {
		return nil, err
	}
	s.seed = seed
	return s, nil
}

// NewFromSpecs creates a new SarsaLambda agent from observation and
// action specifications. The action specification must be discrete,
// 1-dimensional, and enumerated from 0. Every dimension of the
// observation specification must have finite, non-zero width, since
// observations are normalized by these bounds before tile coding.
func NewFromSpecs(obs, action environment.Spec, c Config,
	init weights.Initializer, source rand.Source) (*SarsaLambda, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	numActions, err := action.NumActions()
	if err != nil {
		return nil, fmt.Errorf("sarsalambda: illegal action spec: %w", err)
	}

	low, width, err := obs.Ranges()
	if err != nil {
		return nil, fmt.Errorf("sarsalambda: illegal observation spec: %w",
			err)
	}

	coder, err := tilecoder.New(c.Layers, c.Features)
	if err != nil {
		return nil, fmt.Errorf("sarsalambda: %w", err)
	}

	w := mat.NewVecDense(coder.Features(), nil)
	if init != nil {
		init.Initialize(w)
	}

	return build(c, coder, w, low, width, numActions, c.Epsilon, source)
}

// build assembles a SarsaLambda from its parts
func build(c Config, coder *tilecoder.TileCoder, w *mat.VecDense, low,
	width []float64, numActions int, e float64,
	source rand.Source) (*SarsaLambda, error) {
	values, err := NewActionValues(coder, w, low, width, numActions)
	if err != nil {
		return nil, err
	}

	learner, err := NewLearner(values, c.LearningRate, c.Gamma, c.Lambda)
	if err != nil {
		return nil, err
	}

	behaviour, err := policy.NewEGreedy(values, numActions, e, source)
	if err != nil {
		return nil, fmt.Errorf("sarsalambda: invalid behaviour policy: %w",
			err)
	}

	return &SarsaLambda{
		Learner: learner,
		EGreedy: behaviour,
		values:  values,
		config:  c,
	}, nil
}

// EstimateValue returns the estimated value of taking action in the
// observed state. Estimating a value may grow the tile coder's table.
func (s *SarsaLambda) EstimateValue(obs mat.Vector, action int) float64 {
	return s.values.Value(obs, action)
}

// ActionValues returns the estimated value of each action in the
// observed state
func (s *SarsaLambda) ActionValues(obs mat.Vector) *mat.VecDense {
	return s.values.ActionValues(obs)
}

// Config returns the Config the agent was created with
func (s *SarsaLambda) Config() Config {
	return s.config
}

// TileCoder returns the tile coder which constructs the agent's
// features
func (s *SarsaLambda) TileCoder() *tilecoder.TileCoder {
	return s.values.Coder()
}

// Bounds returns the lower bound and width of each observation
// dimension used to normalize observations
func (s *SarsaLambda) Bounds() (low, width []float64) {
	return append([]float64(nil), s.values.low...),
		append([]float64(nil), s.values.width...)
}

// String returns a string representation of a *SarsaLambda
func (s *SarsaLambda) String() string {
	return fmt.Sprintf("SarsaLambda | %+v  |  ε: %v  |  %v", s.config,
		s.Epsilon(), s.values.Coder())
}

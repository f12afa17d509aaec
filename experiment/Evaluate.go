package experiment

import (
	"context"

	"github.com/samuelfneumann/tilesarsa/agent"
	env "github.com/samuelfneumann/tilesarsa/environment"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
)

// EpisodeResult summarises a single episode
type EpisodeResult struct {
	Return  float64
	Length  int
	EndType ts.EndType
}

// Evaluate runs a single episode on e, selecting actions with p without
// learning. The episode ends when the environment ends it or when ctx
// is cancelled, in which case the unfinished episode is returned along
// with the context's error.
func Evaluate(ctx context.Context, e env.Environment,
	p agent.Policy) (EpisodeResult, error) {
	var result EpisodeResult

	step := e.Reset()
	for !step.Last() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		step, _ = e.Step(p.SelectAction(step.Observation))
		result.Return += step.Reward
	}

	result.Length = step.Number
	result.EndType = step.EndType
	return result, nil
}

package experiment

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/samuelfneumann/tilesarsa/agent"
	env "github.com/samuelfneumann/tilesarsa/environment"
	"github.com/samuelfneumann/tilesarsa/experiment/checkpointer"
	"github.com/samuelfneumann/tilesarsa/experiment/trackers"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
	"github.com/samuelfneumann/tilesarsa/utils/matutils/tilecoder"
	"github.com/sirupsen/logrus"
)

// tileCoded is an agent whose features come from a tile coder
type tileCoded interface {
	TileCoder() *tilecoder.TileCoder
}

// Online is an Experiment that runs an agent online only, using the
// SARSA control loop. No offline evaluation is performed.
//
// On each step, the agent selects the next action in the next state
// before being updated on the (S, A, R, S', A') transition. A timestep
// which ends the episode, whether by reaching a terminal state or by
// the step cutoff, is given to the agent as a terminal transition.
type Online struct {
	env.Environment
	agent.Agent

	maxEpisodes     uint
	maxSteps        uint
	currentEpisodes uint
	currentSteps    uint

	trackers      []trackers.Tracker
	checkpointers []checkpointer.Checkpointer
	log           logrus.FieldLogger
	tableFull     bool
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The experiment runs until episodes
// episodes have finished or steps timesteps have been taken; a zero
// limit is no limit, but one of the limits must be set. The t parameter
// is a slice of trackers.Tracker which determine what data is saved,
// and the check parameter determines when the agent is checkpointed.
// If log is nil, logs are discarded.
func NewOnline(e env.Environment, a agent.Agent, episodes, steps uint,
	log logrus.FieldLogger, t []trackers.Tracker,
	check []checkpointer.Checkpointer) (*Online, error) {
	if episodes == 0 && steps == 0 {
		return nil, fmt.Errorf("newOnline: the number of episodes or steps " +
			"must be limited")
	}
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = discard
	}

	return &Online{
		Environment:   e,
		Agent:         a,
		maxEpisodes:   episodes,
		maxSteps:      steps,
		trackers:      t,
		checkpointers: check,
		log:           log,
	}, nil
}

// Register registers a trackers.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RegisterCheckpointer adds a checkpointer.Checkpointer to the
// experiment, for example one which checkpoints the experiment's own
// agent
func (o *Online) RegisterCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// RunEpisode runs a single episode of the experiment. It returns
// whether the experiment has finished, either because a limit was
// reached or because ctx was cancelled. If the step limit is reached
// mid-episode, the episode is left unfinished.
func (o *Online) RunEpisode(ctx context.Context) (bool, error) {
	step := o.Environment.Reset()
	o.track(step)
	action := o.Agent.SelectAction(step.Observation)

	for !step.Last() {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		if o.stepLimitReached() {
			return true, nil
		}

		// Step in environment
		nextStep, last := o.Environment.Step(action)
		o.currentSteps++
		o.track(nextStep)

		// Select the next action and update on the transition
		var transition ts.Transition
		nextAction := ts.NoAction
		if last {
			transition = ts.NewLastTransition(step.Observation, action,
				nextStep.Reward, nextStep.Observation)
		} else {
			nextAction = o.Agent.SelectAction(nextStep.Observation)
			transition = ts.NewTransition(step.Observation, action,
				nextStep.Reward, nextStep.Observation, nextAction)
		}
		if err := o.Agent.Update(transition); err != nil {
			return true, fmt.Errorf("runEpisode: step %d: %w",
				nextStep.Number, err)
		}

		if err := o.checkpoint(nextStep); err != nil {
			return true, err
		}

		step, action = nextStep, nextAction
	}

	o.currentEpisodes++
	o.log.WithFields(logrus.Fields{
		"episode": o.currentEpisodes,
		"length":  step.Number,
		"end":     step.EndType.String(),
		"steps":   o.currentSteps,
	}).Debug("episode finished")
	o.warnTableFull()

	return o.episodeLimitReached() || o.stepLimitReached(), nil
}

// Run runs the entire experiment until a limit is reached or ctx is
// cancelled
func (o *Online) Run(ctx context.Context) error {
	for {
		ended, err := o.RunEpisode(ctx)
		if err != nil {
			return err
		}
		if ended {
			return nil
		}
	}
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	var errs []error
	for _, tracker := range o.trackers {
		if err := tracker.Save(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Episodes returns the number of finished episodes
func (o *Online) Episodes() uint {
	return o.currentEpisodes
}

// Steps returns the number of steps taken
func (o *Online) Steps() uint {
	return o.currentSteps
}

// MaxEpisodes returns the episode limit of the experiment, which is 0
// if episodes are unlimited
func (o *Online) MaxEpisodes() uint {
	return o.maxEpisodes
}

func (o *Online) episodeLimitReached() bool {
	return o.maxEpisodes > 0 && o.currentEpisodes >= o.maxEpisodes
}

func (o *Online) stepLimitReached() bool {
	return o.maxSteps > 0 && o.currentSteps >= o.maxSteps
}

// track tracks the current timestep by caching its data in each Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tracker := range o.trackers {
		tracker.Track(t)
	}
}

// checkpoint passes the current timestep to each Checkpointer
func (o *Online) checkpoint(t ts.TimeStep) error {
	for _, check := range o.checkpointers {
		if err := check.Checkpoint(t); err != nil {
			return err
		}
	}
	return nil
}

// warnTableFull logs a warning the first time the agent's feature table
// fills, after which features are shared through hashing
func (o *Online) warnTableFull() {
	coded, ok := o.Agent.(tileCoded)
	if o.tableFull || !ok || !coded.TileCoder().Table().Full() {
		return
	}
	o.tableFull = true
	o.log.WithFields(logrus.Fields{
		"episode":  o.currentEpisodes,
		"features": coded.TileCoder().Features(),
	}).Warn("feature table is full, new features will share indices")
}

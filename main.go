package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/logrusorgru/aurora"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samuelfneumann/tilesarsa/agent/linear/discrete/policy"
	"github.com/samuelfneumann/tilesarsa/agent/linear/discrete/sarsalambda"
	"github.com/samuelfneumann/tilesarsa/experiment"
	"github.com/samuelfneumann/tilesarsa/experiment/checkpointer"
	"github.com/samuelfneumann/tilesarsa/experiment/plot"
	"github.com/samuelfneumann/tilesarsa/experiment/trackers"
	ts "github.com/samuelfneumann/tilesarsa/timestep"
	"github.com/samuelfneumann/tilesarsa/utils/floatutils"
	"github.com/samuelfneumann/tilesarsa/utils/logger"
	"github.com/samuelfneumann/tilesarsa/utils/progressbar"
	"github.com/sirupsen/logrus"
)

type options struct {
	config          string
	index           int
	seed            uint64
	out             string
	metrics         string
	checkpointEvery int
	evalEpisodes    int
	color           bool
}

func main() {
	var opt options
	flag.StringVar(&opt.config, "config", "configs/mountaincar.json",
		"experiment configuration file (JSON, YAML, or TOML)")
	flag.IntVar(&opt.index, "index", 0,
		"index of the agent hyperparameter setting to run")
	flag.Uint64Var(&opt.seed, "seed", 1, "seed for the agent and environment")
	flag.StringVar(&opt.out, "out", "results", "directory to write results to")
	flag.StringVar(&opt.metrics, "metrics", "",
		"address to serve Prometheus metrics on, e.g. :2112")
	flag.IntVar(&opt.checkpointEvery, "checkpoint", 0,
		"checkpoint the agent every n episodes, 0 to disable")
	flag.IntVar(&opt.evalEpisodes, "eval", 10,
		"number of greedy evaluation episodes after learning")
	flag.BoolVar(&opt.color, "color", true, "colour the summary")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opt); err != nil {
		fmt.Fprintln(os.Stderr, aurora.NewAurora(opt.color).Red(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opt options) error {
	cfg, err := experiment.LoadConfig(opt.config)
	if err != nil {
		return err
	}

	log, closer := logger.New(cfg.Log)
	defer closer.Close()

	if err := os.MkdirAll(opt.out, 0o755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}

	// Trackers
	returns := trackers.NewReturn(filepath.Join(opt.out, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(opt.out,
		"lengths.bin"))

	db, err := trackers.OpenSQLite(filepath.Join(opt.out, "runs.db"))
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := trackers.NewSQLite(db, struct {
		Seed        uint64
		Index       int
		MaxEpisodes uint
		MaxSteps    uint
		Env         interface{}
		Agent       interface{}
	}{opt.seed, opt.index, cfg.MaxEpisodes, cfg.MaxSteps, cfg.EnvConf,
		cfg.AgentConf.At(opt.index)})
	if err != nil {
		return err
	}

	exp, err := cfg.CreateExp(opt.index, opt.seed, log,
		[]trackers.Tracker{returns, lengths, store}, nil)
	if err != nil {
		return err
	}

	agent, ok := exp.Agent.(*sarsalambda.SarsaLambda)
	if !ok {
		return fmt.Errorf("unsupported agent type %T", exp.Agent)
	}
	log.WithFields(logrus.Fields{
		"run":   store.RunID(),
		"agent": agent.String(),
		"seed":  opt.seed,
	}).Info("starting run")

	// Metrics
	registry := prometheus.NewRegistry()
	exp.Register(trackers.NewMetrics(registry, func() float64 {
		table := agent.TileCoder().Table()
		return float64(table.Count()) / float64(table.Size())
	}))
	if opt.metrics != "" {
		srv := serveMetrics(opt.metrics, registry, log)
		defer shutdown(srv)
	}

	if opt.checkpointEvery > 0 {
		exp.RegisterCheckpointer(checkpointer.NewNEpisode(opt.checkpointEvery,
			agent, checkpointer.FilenameEnumerator(0,
				filepath.Join(opt.out, "agent"), ".gob")))
	}

	start := time.Now()
	runErr := runWithProgress(ctx, exp)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	if runErr != nil {
		log.Warn("run interrupted, saving partial results")
	}

	if err := exp.Save(); err != nil {
		return err
	}
	if err := agent.Save(filepath.Join(opt.out, "agent.gob")); err != nil {
		return err
	}

	if err := writeCharts(opt.out, agent, returns.Data(),
		lengths.Data()); err != nil {
		return err
	}

	results, err := evaluate(ctx, cfg, agent, opt.seed+1, opt.evalEpisodes)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	summarise(aurora.NewAurora(opt.color), exp, returns.Data(), results,
		time.Since(start))
	return nil
}

// runWithProgress runs the experiment one episode at a time, drawing a
// progress bar when the number of episodes is limited
func runWithProgress(ctx context.Context, exp *experiment.Online) error {
	if exp.MaxEpisodes() == 0 {
		return exp.Run(ctx)
	}

	bar := progressbar.NewManualProgressBar(os.Stdout, 40,
		int(exp.MaxEpisodes()))
	defer bar.Close()

	for {
		ended, err := exp.RunEpisode(ctx)
		bar.Increment()
		bar.Display()
		if err != nil {
			return err
		}
		if ended {
			return nil
		}
	}
}

func serveMetrics(addr string, registry *prometheus.Registry,
	log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry,
		promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")
	return srv
}

func shutdown(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

func writeCharts(dir string, agent *sarsalambda.SarsaLambda, returns,
	lengths []float64) error {
	if len(returns) == 0 {
		return nil
	}

	curves, err := os.Create(filepath.Join(dir, "learning.html"))
	if err != nil {
		return err
	}
	defer curves.Close()

	err = plot.LearningCurve(curves,
		plot.Series{Name: "Return", Data: returns, Window: 10},
		plot.Series{Name: "Episode Length", Data: lengths, Window: 10},
	)
	if err != nil {
		return err
	}

	low, width := agent.Bounds()
	if len(low) != 2 {
		return nil
	}
	high := make([]float64, len(low))
	for i := range low {
		high[i] = low[i] + width[i]
	}

	heat, err := os.Create(filepath.Join(dir, "policy.html"))
	if err != nil {
		return err
	}
	defer heat.Close()

	return plot.PolicyHeatmap(heat, agent, low, high, 50)
}

// evaluate runs greedy episodes of the learned agent on a freshly
// seeded environment
func evaluate(ctx context.Context, cfg experiment.Config,
	agent *sarsalambda.SarsaLambda, seed uint64,
	episodes int) ([]experiment.EpisodeResult, error) {
	if episodes < 1 {
		return nil, nil
	}

	env, _, err := cfg.EnvConf.Create(seed)
	if err != nil {
		return nil, err
	}
	greedy, err := policy.NewGreedy(agent, agent.NumActions())
	if err != nil {
		return nil, err
	}

	results := make([]experiment.EpisodeResult, 0, episodes)
	for i := 0; i < episodes; i++ {
		result, err := experiment.Evaluate(ctx, env, greedy)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

func summarise(au aurora.Aurora, exp *experiment.Online, returns []float64,
	results []experiment.EpisodeResult, elapsed time.Duration) {
	fmt.Println(au.Bold("Run summary"))
	fmt.Printf("  episodes: %v  steps: %v  time: %v\n",
		au.Cyan(exp.Episodes()), au.Cyan(exp.Steps()),
		elapsed.Truncate(time.Millisecond))

	if n := len(returns); n > 0 {
		window := 10
		if n < window {
			window = n
		}
		avg := floatutils.MovingAverage(returns, window)
		fmt.Printf("  final %d episode average return: %v\n", window,
			au.Yellow(fmt.Sprintf("%.2f", avg[n-1])))
	}

	if len(results) == 0 {
		return
	}
	total, successes := 0.0, 0
	for _, r := range results {
		total += r.Return
		if r.EndType == ts.TerminalStateReached {
			successes++
		}
	}
	mean := fmt.Sprintf("%.2f", total/float64(len(results)))
	rate := fmt.Sprintf("%d/%d", successes, len(results))

	colour := au.Green
	if successes < len(results) {
		colour = au.Red
	}
	fmt.Printf("  greedy evaluation: mean return %v, reached goal %v\n",
		au.Yellow(mean), colour(rate))
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/mural/internal/config"
	"github.com/signalsfoundry/mural/internal/logging"
	"github.com/signalsfoundry/mural/internal/observability"
	"github.com/signalsfoundry/mural/internal/planning"
	"github.com/signalsfoundry/mural/internal/report"
	"github.com/signalsfoundry/mural/internal/scheduler"
)

type options struct {
	configPath      string
	metricsAddr     string
	planOut         string
	requirementsOut string
	summary         bool
	metricsLinger   time.Duration
	stdout          io.Writer
	registerer      prometheus.Registerer
}

func main() {
	opts := options{stdout: os.Stdout}
	flag.StringVar(&opts.configPath, "config", "configs/planner.yaml", "Path to the planner configuration")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics; overrides metrics.addr")
	flag.StringVar(&opts.planOut, "plan-out", "", "Write the plan as YAML to this file (- for stdout)")
	flag.StringVar(&opts.requirementsOut, "requirements-out", "", "Write the final requirement listing to this file (- for stdout)")
	flag.BoolVar(&opts.summary, "summary", true, "Print a plan summary")
	flag.DurationVar(&opts.metricsLinger, "metrics-linger", 0, "Keep serving /metrics this long after planning finishes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	base := logging.New(cfg.LoggerConfig())
	ctx, log := logging.WithRunLogger(ctx, base)
	ctx = logging.ContextWithLogger(ctx, log)

	tracing, err := observability.StartRunTracing(ctx, cfg.TracerConfig(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	collector, err := observability.NewPlannerCollector(opts.registerer)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	addr := opts.metricsAddr
	if addr == "" {
		addr = cfg.Metrics.Addr
	}
	var metricsSrv *http.Server
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	}

	g, gctx := errgroup.WithContext(ctx)
	if metricsSrv != nil {
		g.Go(func() error {
			log.Info(gctx, "serving Prometheus metrics", logging.String("addr", addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		if metricsSrv != nil {
			defer shutdownServer(gctx, metricsSrv, opts.metricsLinger)
		}
		start := time.Now()
		plan, reqMap, err := buildAndRun(gctx, cfg, base, collector)
		if err != nil {
			return err
		}
		collector.ObserveRun(time.Since(start))
		log.Info(gctx, "planning run complete",
			logging.Float("requested_score", plan.RequestedScore()),
			logging.Float("allocated_score", plan.AllocatedScore()),
			logging.Int("gated_steps", plan.GatedSteps),
		)
		return writeOutputs(opts, plan, reqMap)
	})
	return g.Wait()
}

func shutdownServer(ctx context.Context, srv *http.Server, linger time.Duration) {
	if linger > 0 {
		select {
		case <-time.After(linger):
		case <-ctx.Done():
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func buildAndRun(ctx context.Context, cfg *config.Config, log logging.Logger, metrics scheduler.MetricsRecorder) (*scheduler.Plan, *planning.RequirementMap, error) {
	tp, err := cfg.TimePiece()
	if err != nil {
		return nil, nil, err
	}
	env, err := cfg.Environment(tp)
	if err != nil {
		return nil, nil, err
	}
	reqMap := planning.NewRequirementMap(env.Sensors)
	decks, err := loadDecks(ctx, cfg, env, reqMap)
	if err != nil {
		return nil, nil, err
	}
	fleet, err := cfg.Fleet()
	if err != nil {
		return nil, nil, err
	}

	s, err := scheduler.New(scheduler.Input{
		TimePiece:       tp,
		Environment:     env,
		Requirements:    reqMap,
		Decks:           decks,
		Regions:         cfg.Regions(),
		CrisisAreas:     cfg.CrisisAreas(),
		Fleet:           fleet,
		SensorElevation: cfg.SensorElevation(),
		ValidMissions:   cfg.ValidMissions(),
		SwitchThreshold: cfg.Assignment.SwitchThreshold,
	}, scheduler.WithLogger(log), scheduler.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}
	plan, err := s.Run(ctx)
	if err != nil {
		return nil, nil, err
	}
	return plan, reqMap, nil
}

func loadDecks(ctx context.Context, cfg *config.Config, env *planning.Environment, reqMap *planning.RequirementMap) ([]*planning.TargetDeck, error) {
	log := logging.FromContext(ctx)
	settings := cfg.DeckSettings()
	decks := make([]*planning.TargetDeck, 0, len(settings))
	for i, s := range settings {
		path := cfg.DeckPath(i)
		records, err := readDeck(path, len(env.Sensors))
		if err != nil {
			return nil, err
		}
		deck, err := planning.NewTargetDeck(env, s, planning.WithDeckLogger(log))
		if err != nil {
			return nil, err
		}
		if err := deck.RetrieveTargetsAndBuildRequirements(ctx, records, reqMap); err != nil {
			return nil, fmt.Errorf("deck %s: %w", s.Name, err)
		}
		log.Debug(ctx, "read target deck", logging.String("deck", s.Name), logging.String("path", path))
		decks = append(decks, deck)
	}
	return decks, nil
}

func readDeck(path string, numberOfSensors int) ([]planning.DeckRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()
	records, err := planning.ReadDeckRecords(f, numberOfSensors)
	if err != nil {
		return nil, fmt.Errorf("deck %s: %w", path, err)
	}
	return records, nil
}

func writeOutputs(opts options, plan *scheduler.Plan, reqMap *planning.RequirementMap) error {
	if opts.summary {
		fmt.Fprintln(opts.stdout, report.RenderSummary(plan))
	}
	if opts.planOut != "" {
		if err := writeTo(opts.planOut, opts.stdout, func(w io.Writer) error {
			return report.WriteYAML(w, plan)
		}); err != nil {
			return err
		}
	}
	if opts.requirementsOut != "" {
		if err := writeTo(opts.requirementsOut, opts.stdout, reqMap.PrintRequirements); err != nil {
			return err
		}
	}
	return nil
}

func writeTo(path string, stdout io.Writer, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

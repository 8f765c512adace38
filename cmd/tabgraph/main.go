package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dd0wney/cluso-tabgraph/pkg/config"
	"github.com/dd0wney/cluso-tabgraph/pkg/health"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/server"
	"github.com/dd0wney/cluso-tabgraph/pkg/tabgraph"
)

type options struct {
	configPath  string
	tabsPath    string
	outPath     string
	metricsAddr string
	layout      string
	threshold   float64
	ticks       int
	wait        time.Duration
	serve       bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&opts.tabsPath, "tabs", "", "Path to a YAML or JSON tab list (required)")
	flag.StringVar(&opts.outPath, "out", "", "Write the visualization JSON here instead of stdout")
	flag.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve metrics and health on this address, e.g. :9090")
	flag.StringVar(&opts.layout, "layout", tabgraph.LayoutForce, "Exported positions: force, circular or tree")
	flag.Float64Var(&opts.threshold, "threshold", -1, "Override the cluster threshold")
	flag.IntVar(&opts.ticks, "ticks", 300, "Layout frames to simulate before export")
	flag.DurationVar(&opts.wait, "wait", 30*time.Second, "How long to wait for cluster summaries")
	flag.BoolVar(&opts.serve, "serve", false, "Keep running after the export; SIGHUP reloads the config")
	flag.Parse()

	if opts.tabsPath == "" {
		fmt.Fprintln(os.Stderr, "tabgraph: -tabs is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "tabgraph: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger := logging.NewJSONLogger(os.Stderr, logging.ParseLevel(cfg.LogLevel))
	logging.SetDefaultLogger(logger)

	tabs, err := tabgraph.LoadTabs(opts.tabsPath)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	engine, err := tabgraph.New(tabgraph.Options{
		Config:   cfg,
		Provider: tabgraph.NewStaticProvider(tabs),
		Logger:   logger,
		Metrics:  reg,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checker := health.NewChecker()
	engine.RegisterHealthChecks(checker)
	telemetry := server.New(opts.metricsAddr, server.NewMux(reg, checker), logger)
	telemetry.SetReloadFunc(func() error {
		next, err := loadConfig(opts)
		if err != nil {
			return err
		}
		logger.SetLevel(logging.ParseLevel(next.LogLevel))
		engine.ApplyConfig(next)
		return nil
	})
	go telemetry.HandleSignals(ctx, cancel)

	if opts.metricsAddr != "" {
		go func() {
			if err := telemetry.Serve(ctx); err != nil {
				logger.Error("Telemetry server failed", logging.Error(err))
			}
		}()
	}

	logger.Info("Computing tab graph", logging.Count(len(tabs)), logging.Path(opts.tabsPath))
	if err := engine.Recompute(ctx); err != nil {
		return fmt.Errorf("recompute failed: %w", err)
	}
	settle(ctx, engine, cfg.Layout.TickInterval, opts.ticks, opts.wait)

	if err := export(engine, opts); err != nil {
		return err
	}

	if opts.serve {
		logger.Info("Serving until interrupted")
		animate(ctx, engine, cfg.Layout.TickInterval)
	}
	return nil
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.threshold >= 0 {
		cfg.Graph.ClusterThreshold = opts.threshold
	}
	return cfg, nil
}

func export(engine *tabgraph.Engine, opts options) error {
	v := engine.Visualization()
	if opts.layout != tabgraph.LayoutForce {
		positions, err := engine.StaticLayout(opts.layout)
		if err != nil {
			return err
		}
		v.Positions = positions
	}

	data, err := v.ExportJSON()
	if err != nil {
		return fmt.Errorf("failed to export visualization: %w", err)
	}
	data = append(data, '\n')

	if opts.outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.outPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.outPath, err)
	}
	logging.DefaultLogger().Info("Visualization written", logging.Path(opts.outPath))
	return nil
}

// settle runs the layout for the requested frames and keeps requesting and
// draining summaries until every cluster has one or wait has passed.
func settle(ctx context.Context, engine *tabgraph.Engine, interval time.Duration, ticks int, wait time.Duration) {
	for i := 0; i < ticks; i++ {
		engine.Tick(1)
	}

	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(tickInterval(interval))
	defer ticker.Stop()

	for {
		engine.Drain()
		pending := engine.RequestSummaries()
		if pending == 0 {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			logging.DefaultLogger().Warn("Gave up waiting for cluster summaries",
				logging.Count(pending))
			return
		case <-ticker.C:
		}
	}
}

// animate keeps the engine live for the telemetry endpoint until ctx ends.
func animate(ctx context.Context, engine *tabgraph.Engine, interval time.Duration) {
	ticker := time.NewTicker(tickInterval(interval))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			engine.Tick(1)
			engine.Drain()
		}
	}
}

func tickInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return 16 * time.Millisecond
	}
	return d
}

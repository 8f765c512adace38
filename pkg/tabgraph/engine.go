// Package tabgraph is the tab similarity graph engine. It snapshots the open
// tabs, scores every pair, clusters them, builds the hybrid spanning tree
// and its centrality, keeps a force layout running and asks for cluster
// summaries in the background. A renderer polls it from a single UI loop.
package tabgraph

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dd0wney/cluso-tabgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-tabgraph/pkg/backend"
	"github.com/dd0wney/cluso-tabgraph/pkg/config"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/parallel"
	"github.com/dd0wney/cluso-tabgraph/pkg/scoring"
	"github.com/dd0wney/cluso-tabgraph/pkg/search"
	"github.com/dd0wney/cluso-tabgraph/pkg/simcache"
	"github.com/dd0wney/cluso-tabgraph/pkg/summary"
	"github.com/dd0wney/cluso-tabgraph/pkg/visualization"
)

// ErrInvalidThreshold is returned for a threshold outside [0, 1].
var ErrInvalidThreshold = errors.New("threshold must be within [0, 1]")

// Backend is a remote model that can both score pairs and summarize.
type Backend interface {
	backend.Completer
	backend.PairScorer
}

// Options configures an Engine. A nil Backend is built from the config when
// a backend URL is set; otherwise the engine runs offline with heuristic
// scores and statistical summaries.
type Options struct {
	Config   *config.Config
	Provider TabProvider
	Backend  Backend
	Logger   logging.Logger
	Metrics  *metrics.Registry
}

// Engine owns the graph state. Exported methods are safe for concurrent use;
// Tick and Drain are meant to be called from the UI loop.
type Engine struct {
	provider  TabProvider
	cache     *simcache.Cache
	scorer    *scoring.Scorer
	layout    *visualization.LayoutEngine
	summaries *summary.Service
	pool      *parallel.WorkerPool
	passes    *parallel.ResultQueue[*passResult]
	searcher  *search.Searcher
	logger    logging.Logger
	metrics   *metrics.Registry

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	graph      config.GraphConfig
	tabs       []Tab
	byID       map[string]Tab
	clusters   algorithms.ClusterAssignment
	members    [][]string
	result     *algorithms.MSTResult
	generation uint64
	deferred   *pendingPass
	selection  Selection
	closeOnce  sync.Once
}

// New builds an engine from opts.
func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Provider == nil {
		return nil, errors.New("tab provider is required")
	}

	logger := logging.OrDefault(opts.Logger)
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}

	b := opts.Backend
	if b == nil && cfg.Scoring.BackendURL != "" {
		client, err := backend.NewClient(backend.Config{
			BaseURL: cfg.Scoring.BackendURL,
			APIKey:  cfg.Scoring.APIKey,
			Model:   cfg.Scoring.Model,
			Timeout: cfg.Scoring.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create backend client: %w", err)
		}
		b = client
	}

	pool, err := parallel.NewWorkerPool(cfg.Workers, logger, reg)
	if err != nil {
		return nil, err
	}

	cache := simcache.Open(cfg.Cache.ResolvedPath(), logger)
	reg.CacheEntries.Set(float64(cache.Len()))

	scorerOpts := scoring.Options{
		MaxChars: cfg.Scoring.MaxChars,
		Breaker: scoring.BreakerSettings{
			MaxRequests:  cfg.Scoring.Breaker.MaxRequests,
			Interval:     cfg.Scoring.Breaker.Interval,
			Timeout:      cfg.Scoring.Breaker.Timeout,
			MinRequests:  cfg.Scoring.Breaker.MinRequests,
			FailureRatio: cfg.Scoring.Breaker.FailureRatio,
		},
		Logger:  logger,
		Metrics: reg,
	}

	var summarizer summary.ClusterSummarizer = summary.NewStatisticalSummarizer()
	if b != nil {
		scorerOpts.Backend = b
		summarizer = summary.NewSummarizer(b, summary.Config{
			BatchSize:       cfg.Summary.BatchSize,
			MaxRetries:      cfg.Summary.MaxRetries,
			RetryDelay:      cfg.Summary.RetryDelay,
			MaxContentChars: cfg.Summary.MaxContentChars,
			MinContentChars: cfg.Summary.MinContentChars,
			Model:           cfg.Scoring.Model,
		}, logger, reg)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		provider:  opts.Provider,
		cache:     cache,
		scorer:    scoring.New(cache, scorerOpts),
		layout:    visualization.NewLayoutEngine(layoutConfig(cfg.Layout), logger, reg),
		summaries: summary.NewService(summarizer, pool, summary.ServiceOptions{Logger: logger, Metrics: reg}),
		pool:      pool,
		passes:    parallel.NewResultQueue[*passResult](),
		searcher:  search.NewSearcher(),
		logger:    logger.With(logging.Component("engine")),
		metrics:   reg,
		ctx:       ctx,
		cancel:    cancel,
		graph:     cfg.Graph,
		byID:      make(map[string]Tab),
		clusters:  make(algorithms.ClusterAssignment),
		selection: Selection{Cluster: -1},
	}

	e.logger.Info("Engine created",
		logging.Bool("backend", b != nil),
		logging.Float64("cluster_threshold", cfg.Graph.ClusterThreshold),
		logging.Int("workers", pool.Workers()),
		logging.Path(cache.Path()),
	)
	return e, nil
}

func layoutConfig(c config.LayoutConfig) visualization.LayoutConfig {
	lc := visualization.DefaultLayoutConfig()
	lc.Width = c.Width
	lc.Height = c.Height
	lc.Repulsion = c.Repulsion
	lc.AttractionStrength = c.AttractionStrength
	lc.AttractionThreshold = c.AttractionThreshold
	lc.TargetBase = c.TargetBase
	lc.TargetFloor = c.TargetFloor
	lc.SimilarityCap = c.SimilarityCap
	lc.MinSeparation = c.MinSeparation
	lc.SeparationStrength = c.SeparationStrength
	lc.Damping = c.Damping
	lc.MaxDisplacement = c.MaxDisplacement
	return lc
}

// Close stops background work and writes the similarity cache.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.cancel()
		e.pool.Close()
		err = e.cache.Flush()
		e.logger.Info("Engine closed")
	})
	return err
}

// pendingPass is a recompute that found the worker queue full. Drain
// submits it again.
type pendingPass struct {
	ctx        context.Context
	generation uint64
	tabs       []Tab
	graph      config.GraphConfig
}

// snapshot copies the provider's tab list, drops duplicate ids and seeds the
// layout with new tabs. The tab records themselves are installed with the
// pass computed from them.
func (e *Engine) snapshot() []Tab {
	listed := e.provider.ListTabs()
	tabs := make([]Tab, 0, len(listed))
	seen := make(map[string]bool, len(listed))
	for _, t := range listed {
		if t.ID == "" || seen[t.ID] {
			e.logger.Warn("Skipping tab without a unique id", logging.Tab(t.ID), logging.URL(t.URL))
			continue
		}
		seen[t.ID] = true
		tabs = append(tabs, t)
	}

	ids := make([]string, len(tabs))
	for i, t := range tabs {
		ids[i] = t.ID
	}
	e.layout.Sync(ids)
	return tabs
}

// Refresh snapshots the tabs and starts a background recompute pass. The
// result is applied by a later Drain. Refresh never waits for a worker: if
// the queue is full the pass is held and resubmitted by Drain.
func (e *Engine) Refresh(ctx context.Context) error {
	tabs := e.snapshot()

	e.mu.Lock()
	e.generation++
	pending := &pendingPass{ctx: ctx, generation: e.generation, tabs: tabs, graph: e.graph}
	e.deferred = nil
	e.mu.Unlock()

	return e.schedule(pending)
}

func (e *Engine) schedule(p *pendingPass) error {
	err := e.pool.TrySubmit(func() {
		e.passes.Push(e.runPass(p.ctx, p.generation, p.tabs, p.graph))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, parallel.ErrQueueFull):
		e.mu.Lock()
		if p.generation == e.generation {
			e.deferred = p
		}
		e.mu.Unlock()
		e.logger.Debug("Worker queue full, deferring recompute", logging.Count(len(p.tabs)))
		return nil
	default:
		return fmt.Errorf("failed to schedule recompute: %w", err)
	}
}

// Recompute snapshots the tabs and runs a pass on the calling goroutine. A
// pass cut short by ctx is discarded.
func (e *Engine) Recompute(ctx context.Context) error {
	tabs := e.snapshot()

	e.mu.Lock()
	e.generation++
	gen := e.generation
	graph := e.graph
	e.deferred = nil
	e.mu.Unlock()

	pass := e.runPass(ctx, gen, tabs, graph)
	if pass.err != nil {
		return pass.err
	}
	e.apply(pass)
	return nil
}

// Tick advances the layout by dt frames.
func (e *Engine) Tick(dt float64) {
	e.layout.Tick(dt)
}

// Drain applies finished passes and summary jobs. It reports whether the
// renderer should redraw.
func (e *Engine) Drain() bool {
	changed := false

	e.mu.Lock()
	deferred := e.deferred
	e.deferred = nil
	e.mu.Unlock()
	if deferred != nil {
		if err := e.schedule(deferred); err != nil {
			e.logger.Warn("Deferred recompute dropped", logging.Error(err))
		}
	}

	for _, pass := range e.passes.Drain() {
		if pass.err != nil {
			e.logger.Warn("Recompute pass abandoned", logging.Error(pass.err))
			continue
		}
		if e.apply(pass) {
			changed = true
		}
	}

	for _, c := range e.summaries.Drain() {
		if c.Err != nil {
			e.logger.Warn("Cluster summary unavailable", logging.String("job_id", c.JobID), logging.Error(c.Err))
		}
		changed = true
	}
	return changed
}

// SetThreshold changes the clustering threshold and starts a recompute.
func (e *Engine) SetThreshold(t float64) error {
	if t < 0 || t > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}

	e.mu.Lock()
	changed := e.graph.ClusterThreshold != t
	e.graph.ClusterThreshold = t
	e.mu.Unlock()

	if !changed {
		return nil
	}
	e.logger.Info("Cluster threshold changed", logging.Float64("threshold", t))
	return e.Refresh(e.ctx)
}

// Threshold returns the clustering threshold.
func (e *Engine) Threshold() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.graph.ClusterThreshold
}

// ApplyConfig adopts the graph and layout sections of cfg. Graph changes
// start a recompute. Cache, backend and worker settings need a restart.
func (e *Engine) ApplyConfig(cfg *config.Config) {
	e.layout.SetConfig(layoutConfig(cfg.Layout))

	e.mu.Lock()
	changed := e.graph != cfg.Graph
	e.graph = cfg.Graph
	e.mu.Unlock()

	if !changed {
		return
	}
	e.logger.Info("Graph configuration changed",
		logging.Float64("cluster_threshold", cfg.Graph.ClusterThreshold),
		logging.Float64("min_edge_weight", cfg.Graph.MinEdgeWeight),
		logging.String("centrality_basis", cfg.Graph.CentralityBasis),
	)
	if err := e.Refresh(e.ctx); err != nil {
		e.logger.Warn("Failed to recompute after config change", logging.Error(err))
	}
}

// WatchConfig applies every valid configuration the watcher reloads.
func (e *Engine) WatchConfig(w *config.Watcher) {
	w.OnChange(e.ApplyConfig)
}

// Layout exposes the layout engine for dragging and hit testing.
func (e *Engine) Layout() *visualization.LayoutEngine {
	return e.layout
}

// Scorer exposes the similarity scorer.
func (e *Engine) Scorer() *scoring.Scorer {
	return e.scorer
}

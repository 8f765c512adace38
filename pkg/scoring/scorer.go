// Package scoring computes pairwise similarity between tabs. Scores are
// memoized in a simcache.Cache; remote scoring goes through a circuit breaker
// and always degrades to a heuristic, so Score never fails.
package scoring

import (
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dd0wney/cluso-tabgraph/pkg/backend"
	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/simcache"
	"github.com/dd0wney/cluso-tabgraph/pkg/validation"
)

// Score sources, used as the metrics label.
const (
	SourceCache     = "cache"
	SourceMissing   = "missing"
	SourceHeuristic = "heuristic"
	SourceBackend   = "backend"
	SourceFallback  = "fallback"
)

const (
	DefaultMaxChars    = 3000
	DefaultConcurrency = 4
)

// Item is one side of a similarity lookup. The URL keys the cache.
type Item struct {
	URL     string
	Content string
}

// BreakerSettings configures the circuit breaker around the backend.
type BreakerSettings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	MinRequests  uint32
	FailureRatio float64
}

// Options configures a Scorer. A nil Backend selects the heuristic.
type Options struct {
	Backend     backend.PairScorer
	MaxChars    int
	Concurrency int
	Breaker     BreakerSettings
	Logger      logging.Logger
	Metrics     *metrics.Registry
}

// Scorer memoizes pair scores and decides how to compute missing ones.
type Scorer struct {
	cache       *simcache.Cache
	backend     backend.PairScorer
	breaker     *gobreaker.CircuitBreaker
	maxChars    int
	concurrency int
	logger      logging.Logger
	metrics     *metrics.Registry

	inflight singleflight.Group
	saveMu   sync.Mutex
	saveErr  error

	// pairs waiting for content; kept out of the cache so they never persist
	pendingMu sync.Mutex
	pending   map[string]struct{}
}

// New creates a scorer over cache.
func New(cache *simcache.Cache, opts Options) *Scorer {
	s := &Scorer{
		cache:       cache,
		backend:     opts.Backend,
		maxChars:    validation.DefaultOrInt(opts.MaxChars, DefaultMaxChars),
		concurrency: validation.DefaultOrInt(opts.Concurrency, DefaultConcurrency),
		logger:      logging.OrDefault(opts.Logger).With(logging.Component("scorer")),
		metrics:     opts.Metrics,
		pending:     make(map[string]struct{}),
	}
	if s.backend != nil {
		s.breaker = s.newBreaker(opts.Breaker)
	}
	return s
}

func (s *Scorer) newBreaker(cfg BreakerSettings) *gobreaker.CircuitBreaker {
	minRequests := validation.DefaultOr(cfg.MinRequests, uint32(3))
	failureRatio := validation.DefaultOr(cfg.FailureRatio, 0.6)

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "scoring-backend",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= failureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn("Circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
			if s.metrics != nil {
				s.metrics.SetBreakerState(int(to))
			}
		},
	})
}

// Cache returns the backing cache.
func (s *Scorer) Cache() *simcache.Cache {
	return s.cache
}

// HasBackend reports whether a remote backend is configured.
func (s *Scorer) HasBackend() bool {
	return s.backend != nil
}

// BreakerState returns the backend circuit breaker state, or "" when the
// scorer runs offline.
func (s *Scorer) BreakerState() string {
	if s.breaker == nil {
		return ""
	}
	return s.breaker.State().String()
}

// SaveError returns the error of the most recent cache snapshot, if any.
func (s *Scorer) SaveError() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.saveErr
}

// Score returns the similarity of a and b in [0, 1]. Concurrent calls for the
// same pair share one computation. A pair with missing content scores 0 and
// is remembered in memory until both sides have content.
func (s *Scorer) Score(ctx context.Context, a, b Item) float64 {
	start := time.Now()

	if score, ok := s.cache.Get(a.URL, b.URL); ok {
		s.record(SourceCache, start)
		return score
	}

	key := simcache.Key(a.URL, b.URL)
	if a.Content == "" || b.Content == "" {
		s.pendingMu.Lock()
		_, seen := s.pending[key]
		s.pending[key] = struct{}{}
		s.pendingMu.Unlock()
		if seen {
			s.record(SourceCache, start)
		} else {
			s.record(SourceMissing, start)
		}
		return 0.0
	}
	s.pendingMu.Lock()
	delete(s.pending, key)
	s.pendingMu.Unlock()

	v, _, _ := s.inflight.Do(key, func() (any, error) {
		if score, ok := s.cache.Get(a.URL, b.URL); ok {
			return score, nil
		}
		score, source := s.compute(ctx, a, b)
		if source == SourceFallback && ctx.Err() != nil {
			// cancelled mid-call; retry the pair on the next pass
			s.record(source, start)
			return score, nil
		}
		s.cache.Put(a.URL, b.URL, score)
		s.persist()
		s.record(source, start)
		return score, nil
	})
	return v.(float64)
}

// PendingPairs returns the number of pairs scored 0 while content is missing.
func (s *Scorer) PendingPairs() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

func (s *Scorer) compute(ctx context.Context, a, b Item) (float64, string) {
	if s.backend == nil {
		return Heuristic(a, b), SourceHeuristic
	}

	textA := truncateRunes(a.Content, s.maxChars)
	textB := truncateRunes(b.Content, s.maxChars)

	raw, err := s.breaker.Execute(func() (any, error) {
		return s.backend.ScoreTextPair(ctx, textA, textB)
	})
	if err != nil {
		s.countBackend("error")
		s.logger.Warn("Backend scoring failed, using domain fallback",
			logging.Pair(a.URL, b.URL),
			logging.Error(newScoreError("backend", a.URL, b.URL, err)),
		)
		return DomainFallback(a, b), SourceFallback
	}
	s.countBackend("ok")

	score, ok := ParseScore(raw.(string))
	if !ok {
		s.logger.Warn("Unparseable backend score, using domain fallback",
			logging.Pair(a.URL, b.URL),
			logging.Error(newScoreError("parse", a.URL, b.URL, ErrUnparseableScore)),
			logging.String("response", truncateRunes(raw.(string), 80)),
		)
		return DomainFallback(a, b), SourceFallback
	}

	s.logger.Debug("Pair scored", logging.Pair(a.URL, b.URL), logging.Score(score))
	return score, SourceBackend
}

// persist snapshots the cache after a newly computed score. Failures leave the
// scorer in memory-only mode for this write.
func (s *Scorer) persist() {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	if s.metrics != nil {
		s.metrics.CacheEntries.Set(float64(s.cache.Len()))
	}
	s.saveErr = s.cache.Flush()
	if err := s.saveErr; err != nil {
		s.logger.Warn("Failed to save similarity cache", logging.Path(s.cache.Path()), logging.Error(err))
		if s.metrics != nil {
			s.metrics.CacheSaveFailuresTotal.Inc()
		}
	}
}

func (s *Scorer) record(source string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordScore(source, time.Since(start))
	}
}

func (s *Scorer) countBackend(status string) {
	if s.metrics != nil {
		s.metrics.RecordBackendCall("score", status)
	}
}

var numberPattern = regexp.MustCompile(`[-+]?(?:\d+\.?\d*|\.\d+)`)

// ParseScore extracts the first number in raw and clamps it to [0, 1].
func ParseScore(raw string) (float64, bool) {
	m := numberPattern.FindString(raw)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return validation.ClampFloat(f, 0, 1), true
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// Matrix is a symmetric pairwise score table for a fixed item order.
type Matrix struct {
	n      int
	scores []float64
}

// Len returns the number of items.
func (m *Matrix) Len() int {
	return m.n
}

// At returns the score between items i and j. The diagonal is 1.
func (m *Matrix) At(i, j int) float64 {
	if i == j {
		return 1.0
	}
	return m.scores[i*m.n+j]
}

// ScoreAll scores every unordered pair of items with bounded concurrency.
func (s *Scorer) ScoreAll(ctx context.Context, items []Item) *Matrix {
	n := len(items)
	m := &Matrix{n: n, scores: make([]float64, n*n)}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			g.Go(func() error {
				score := s.Score(gctx, items[i], items[j])
				m.scores[i*n+j] = score
				m.scores[j*n+i] = score
				return nil
			})
		}
	}
	_ = g.Wait()

	if s.metrics != nil {
		s.metrics.PairEvaluation.Add(float64(n * (n - 1) / 2))
	}
	return m
}

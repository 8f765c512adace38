package summary

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
	"github.com/dd0wney/cluso-tabgraph/pkg/parallel"
)

// DefaultJobTimeout bounds one background summary job.
const DefaultJobTimeout = 2 * time.Minute

// ClusterSummarizer computes a summary for a member set.
type ClusterSummarizer interface {
	Summarize(ctx context.Context, documents []Document) (*ClusterSummary, error)
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	JobTimeout time.Duration
	Logger     logging.Logger
	Metrics    *metrics.Registry
}

// Service answers Describe immediately from its cache and computes misses on
// the worker pool. Completed jobs are queued for the UI loop to drain.
type Service struct {
	summarizer ClusterSummarizer
	pool       *parallel.WorkerPool
	results    *parallel.ResultQueue[Completion]
	jobTimeout time.Duration
	logger     logging.Logger
	metrics    *metrics.Registry

	mu       sync.Mutex
	cache    map[string]*ClusterSummary
	inflight map[string]string // key -> job id
}

// NewService creates a service that runs jobs on pool.
func NewService(summarizer ClusterSummarizer, pool *parallel.WorkerPool, opts ServiceOptions) *Service {
	jobTimeout := opts.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}
	return &Service{
		summarizer: summarizer,
		pool:       pool,
		results:    parallel.NewResultQueue[Completion](),
		jobTimeout: jobTimeout,
		logger:     logging.OrDefault(opts.Logger).With(logging.Component("summary")),
		metrics:    opts.Metrics,
		cache:      make(map[string]*ClusterSummary),
		inflight:   make(map[string]string),
	}
}

// Describe returns the cached summary for members, or a pending placeholder
// after making sure at most one job for this member set is running. It never
// waits for the pool: when the queue is full no job is started and the next
// Describe for the same members tries again.
func (s *Service) Describe(members []Document) Result {
	if len(members) == 0 {
		return Result{Summary: emptyCluster()}
	}

	key := Key(members)
	docs := append([]Document(nil), members...)

	s.mu.Lock()
	if summary, ok := s.cache[key]; ok {
		s.mu.Unlock()
		return Result{Summary: summary}
	}
	if _, ok := s.inflight[key]; ok {
		s.mu.Unlock()
		return Result{Summary: Placeholder(docs), Pending: true}
	}
	jobID := uuid.NewString()
	s.inflight[key] = jobID
	s.setInFlightGauge()
	s.mu.Unlock()

	// s.mu is released first: finishing jobs need it.
	err := s.pool.TrySubmit(func() { s.run(key, jobID, docs) })
	if err != nil {
		s.mu.Lock()
		delete(s.inflight, key)
		s.setInFlightGauge()
		s.mu.Unlock()

		if errors.Is(err, parallel.ErrQueueFull) {
			// the caller asks again on a later frame
			s.logger.Debug("Summary queue full, deferring job", logging.Count(len(docs)))
			s.recordJob("deferred")
		} else {
			s.logger.Warn("Failed to submit summary job", logging.String("job_id", jobID), logging.Error(err))
			s.recordJob("rejected")
		}
	} else {
		s.logger.Debug("Summary job submitted", logging.String("job_id", jobID), logging.Count(len(docs)))
	}

	return Result{Summary: Placeholder(docs), Pending: true}
}

func (s *Service) run(key, jobID string, docs []Document) {
	ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
	defer cancel()

	summary, err := s.summarizer.Summarize(ctx, docs)

	s.mu.Lock()
	delete(s.inflight, key)
	if err == nil {
		s.cache[key] = summary
	}
	s.setInFlightGauge()
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Summary job failed", logging.String("job_id", jobID), logging.Count(len(docs)), logging.Error(err))
		s.recordJob("error")
		s.results.Push(Completion{Key: key, JobID: jobID, Err: err})
		return
	}

	s.logger.Info("Summary job finished", logging.String("job_id", jobID), logging.String("title", summary.Title))
	s.recordJob("ok")
	s.results.Push(Completion{Key: key, JobID: jobID, Summary: summary})
}

// Drain returns the jobs finished since the last call.
func (s *Service) Drain() []Completion {
	return s.results.Drain()
}

// Lookup returns a cached summary by key.
func (s *Service) Lookup(key string) (*ClusterSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.cache[key]
	return summary, ok
}

// InFlight returns the number of running jobs.
func (s *Service) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

// Len returns the number of cached summaries.
func (s *Service) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cache)
}

// Invalidate drops every cached summary. Running jobs still land in the cache.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cache = make(map[string]*ClusterSummary)
	s.mu.Unlock()
}

// called with s.mu held
func (s *Service) setInFlightGauge() {
	if s.metrics != nil {
		s.metrics.SummaryInFlight.Set(float64(len(s.inflight)))
	}
}

func (s *Service) recordJob(status string) {
	if s.metrics != nil {
		s.metrics.RecordSummaryJob(status)
	}
}

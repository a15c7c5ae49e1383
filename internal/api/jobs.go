package api

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/sitesniffer/internal/application/report"
	sherrors "github.com/khanhnv2901/sitesniffer/internal/shared/errors"
	"go.uber.org/zap"
)

// Job states.
const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobError   = "error"
)

// MaxJobURLs bounds the URLs accepted in one job request.
const MaxJobURLs = 100

var (
	// ErrJobNotFound is returned for unknown job IDs.
	ErrJobNotFound = errors.New("job not found")
	// ErrManagerClosed is returned by StartJob once Close has begun.
	ErrManagerClosed = errors.New("job manager closed")
)

// Job is a batch inspection running in the background.
type Job struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	URLs       []string        `json:"urls"`
	Facets     []report.Facet  `json:"facets"`
	Total      int             `json:"total"`
	Completed  int             `json:"completed"`
	Failed     int             `json:"failed"`
	CreatedAt  time.Time       `json:"created_at"`
	StartedAt  *time.Time      `json:"started_at,omitempty"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Results    []report.Result `json:"results,omitempty"`
	Error      string          `json:"error,omitempty"`
}

func (j *Job) clone() Job {
	c := *j
	c.URLs = append([]string(nil), j.URLs...)
	c.Facets = append([]report.Facet(nil), j.Facets...)
	c.Results = append([]report.Result(nil), j.Results...)
	return c
}

// JobRequest is the body of POST /api/v1/jobs.
type JobRequest struct {
	URLs   []string `json:"urls"`
	Facets []string `json:"facets"`
}

// JobManager keeps jobs in memory and runs them with a report.Runner.
type JobManager struct {
	mu          sync.RWMutex
	jobs        map[string]*Job
	subscribers map[chan Job]struct{}
	maxJobs     int  // Maximum number of jobs to keep in memory
	closed      bool // Set by Close; no job starts afterwards

	orchestrator *report.Orchestrator
	runner       *report.Runner
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewJobManager starts a manager whose jobs run on runner. Close stops the
// background work.
func NewJobManager(orchestrator *report.Orchestrator, runner *report.Runner, logger *zap.Logger) *JobManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &JobManager{
		jobs:         make(map[string]*Job),
		subscribers:  make(map[chan Job]struct{}),
		maxJobs:      1000,
		orchestrator: orchestrator,
		runner:       runner,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}
	m.wg.Add(1)
	go m.cleanupLoop(5 * time.Minute)
	return m
}

// Close cancels running jobs and waits for every background goroutine.
func (m *JobManager) Close() {
	m.mu.Lock()
	m.closed = true
	m.cancel()
	m.mu.Unlock()
	m.wg.Wait()
}

// StartJob validates req and starts the inspection in the background. The
// returned job is in the pending state.
func (m *JobManager) StartJob(_ context.Context, req JobRequest) (*Job, error) {
	if len(req.URLs) == 0 {
		return nil, fmt.Errorf("%w: urls required", sherrors.ErrInvalidInput)
	}
	if len(req.URLs) > MaxJobURLs {
		return nil, fmt.Errorf("%w: at most %d urls per job", sherrors.ErrInvalidInput, MaxJobURLs)
	}
	facets, err := report.ParseFacets(req.Facets)
	if err != nil {
		return nil, err
	}

	// The closed check and wg.Add share the lock with Close, so Close never
	// waits on a group that grows after it started waiting.
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	job := m.addJobLocked(req.URLs, facets)
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(job.ID, job.URLs, facets)
	return &job, nil
}

func (m *JobManager) createJob(urls []string, facets []report.Facet) Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addJobLocked(urls, facets)
}

// addJobLocked registers a pending job. m.mu must be held.
func (m *JobManager) addJobLocked(urls []string, facets []report.Facet) Job {
	job := &Job{
		ID:        "job_" + uuid.NewString(),
		Status:    JobPending,
		URLs:      append([]string(nil), urls...),
		Facets:    facets,
		Total:     len(urls),
		CreatedAt: time.Now().UTC(),
	}
	m.jobs[job.ID] = job
	m.broadcast(job.clone())
	return job.clone()
}

func (m *JobManager) run(id string, urls []string, facets []report.Facet) {
	defer m.wg.Done()

	started := time.Now().UTC()
	m.updateJob(id, func(j *Job) {
		j.Status = JobRunning
		j.StartedAt = &started
	})

	results := m.runner.Run(m.ctx, m.orchestrator, urls, facets, func(r report.Result) {
		m.updateJob(id, func(j *Job) {
			j.Completed++
			if r.Err != nil {
				j.Failed++
			}
		})
	})

	finished := time.Now().UTC()
	m.updateJob(id, func(j *Job) {
		j.Results = results
		j.FinishedAt = &finished
		j.Status = JobDone
		if err := m.ctx.Err(); err != nil {
			j.Status = JobError
			j.Error = "job canceled"
		}
	})
	m.logger.Info("job finished",
		zap.String("job_id", id),
		zap.Int("urls", len(urls)),
		zap.Duration("duration", finished.Sub(started)),
	)
}

func (m *JobManager) updateJob(id string, update func(*Job)) *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil
	}
	update(job)
	m.broadcast(job.clone())
	return job
}

// GetJob returns a copy of the job.
func (m *JobManager) GetJob(_ context.Context, id string) (*Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	c := job.clone()
	return &c, nil
}

// ListJobs returns up to limit jobs, newest first.
func (m *JobManager) ListJobs(_ context.Context, limit int) ([]Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.jobs) {
		limit = len(m.jobs)
	}
	jobs := make([]Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		c := job.clone()
		c.Results = nil
		jobs = append(jobs, c)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].CreatedAt.Equal(jobs[j].CreatedAt) {
			return jobs[i].ID > jobs[j].ID
		}
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs[:limit], nil
}

// Subscribe returns a channel of job updates and its cancel function.
// Updates are dropped for subscribers that fall behind.
func (m *JobManager) Subscribe() (chan Job, func()) {
	ch := make(chan Job, 16)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()
	return ch, func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
}

// broadcast must be called with m.mu held.
func (m *JobManager) broadcast(job Job) {
	job.Results = nil
	for ch := range m.subscribers {
		select {
		case ch <- job:
		default:
			m.logger.Debug("dropped job update for slow subscriber", zap.String("job_id", job.ID))
		}
	}
}

// cleanupLoop removes old finished jobs to prevent unbounded memory growth
func (m *JobManager) cleanupLoop(interval time.Duration) {
	defer m.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.prune()
		}
	}
}

func (m *JobManager) prune() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) <= m.maxJobs {
		return
	}

	type finishedJob struct {
		id  string
		end time.Time
	}
	var finished []finishedJob
	for id, job := range m.jobs {
		if job.FinishedAt != nil {
			finished = append(finished, finishedJob{id: id, end: *job.FinishedAt})
		}
	}

	// Oldest first
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].end.Before(finished[j].end)
	})

	toRemove := len(m.jobs) - m.maxJobs
	if toRemove > len(finished) {
		toRemove = len(finished)
	}
	for i := 0; i < toRemove; i++ {
		delete(m.jobs, finished[i].id)
	}
}

// SetMaxJobs configures the maximum number of jobs to retain in memory
func (m *JobManager) SetMaxJobs(max int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max > 0 {
		m.maxJobs = max
	}
}

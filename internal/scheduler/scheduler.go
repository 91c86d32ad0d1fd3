package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobFunc runs one iteration of a periodic job.
type JobFunc func(ctx context.Context) error

type Scheduler struct {
	jobs   map[string]*Job // job name -> job
	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Job struct {
	name     string
	interval time.Duration
	run      JobFunc
	ticker   *time.Ticker
	cancel   context.CancelFunc

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	runs    int
}

type JobStatus struct {
	Name      string    `json:"name"`
	Interval  string    `json:"interval"`
	Runs      int       `json:"runs"`
	LastRun   time.Time `json:"last_run"`
	LastError string    `json:"last_error,omitempty"`
}

// NewScheduler initializes a Scheduler whose jobs stop when parent is done
func NewScheduler(parent context.Context) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		jobs:   make(map[string]*Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Stop cancels every job and waits for running iterations to return.
func (s *Scheduler) Stop() {
	log.Println("[Scheduler] Stopping scheduler...")
	s.cancel()

	s.mu.Lock()
	for _, job := range s.jobs {
		job.ticker.Stop()
		job.cancel()
	}
	s.jobs = make(map[string]*Job)
	s.mu.Unlock()

	s.wg.Wait()
	log.Println("[Scheduler] Scheduler stopped")
}

// AddJob runs fn immediately and then every interval. Adding a name that is
// already scheduled replaces the old job.
func (s *Scheduler) AddJob(name string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, exists := s.jobs[name]; exists {
		existing.ticker.Stop()
		existing.cancel()
	}

	jobCtx, jobCancel := context.WithCancel(s.ctx)

	job := &Job{
		name:     name,
		interval: interval,
		run:      fn,
		ticker:   time.NewTicker(interval),
		cancel:   jobCancel,
	}

	s.jobs[name] = job
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		s.execute(jobCtx, job)
		s.runJob(jobCtx, job)
	}()

	log.Printf("[Scheduler] Added job %s every %v with immediate run", name, interval)
}

// RemoveJob stops and forgets a job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[name]; exists {
		job.ticker.Stop()
		job.cancel()
		delete(s.jobs, name)
		log.Printf("[Scheduler] Removed job %s", name)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *Job) {
	defer job.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-job.ticker.C:
			s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job *Job) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	err := job.run(ctx)

	job.mu.Lock()
	job.lastRun = start
	job.lastErr = err
	job.runs++
	job.mu.Unlock()

	if err != nil {
		log.Printf("[Scheduler] Job %s failed: %v", job.name, err)
	} else {
		log.Printf("[Scheduler] Job %s succeeded in %v", job.name, time.Since(start))
	}
}

// Status reports run counts and the last result of every job
func (s *Scheduler) Status() []JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]JobStatus, 0, len(s.jobs))

	for _, job := range s.jobs {
		job.mu.Lock()
		status := JobStatus{
			Name:     job.name,
			Interval: job.interval.String(),
			Runs:     job.runs,
			LastRun:  job.lastRun,
		}
		if job.lastErr != nil {
			status.LastError = job.lastErr.Error()
		}
		job.mu.Unlock()

		statuses = append(statuses, status)
	}

	return statuses
}

// Running reports whether Stop has not been called yet
func (s *Scheduler) Running() bool {
	return s.ctx.Err() == nil
}

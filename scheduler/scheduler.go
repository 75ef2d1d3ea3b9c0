// Package scheduler runs named jobs on fixed intervals with optional startup
// runs. A job never overlaps itself: a tick or manual trigger that arrives
// while the previous run is in progress is skipped and reported as such.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job already running")
)

type Trigger string

const (
	TriggerStartup Trigger = "startup"
	TriggerTimer   Trigger = "timer"
	TriggerManual  Trigger = "manual"
)

// Job is one unit of periodic work. Run returns a short human-readable
// detail on success.
type Job struct {
	Name         string
	Interval     time.Duration // 0 disables the timer
	Offset       time.Duration // delay before the first tick
	RunAtStartup bool
	StartupDelay time.Duration
	Run          func(ctx context.Context) (string, error)
}

// Result reports one run, or one skipped run.
type Result struct {
	RunID     uuid.UUID     `json:"run_id"`
	Job       string        `json:"job"`
	Trigger   Trigger       `json:"trigger"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Detail    string        `json:"detail,omitempty"`
	Err       error         `json:"-"`
	Skipped   bool          `json:"skipped"`
}

// Observer receives every Result. It is called from the job goroutine.
type Observer func(Result)

type JobStatus struct {
	Name     string        `json:"name"`
	Interval time.Duration `json:"interval_ns"`
	Running  bool          `json:"running"`
	LastRun  *Result       `json:"last_run,omitempty"`
}

type entry struct {
	job     Job
	running atomic.Bool
	last    atomic.Pointer[Result]
}

type Scheduler struct {
	observer Observer
	jobs     map[string]*entry
	order    []string

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(observer Observer) *Scheduler {
	if observer == nil {
		observer = func(Result) {}
	}
	return &Scheduler{observer: observer, jobs: make(map[string]*entry)}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(j Job) {
	if _, dup := s.jobs[j.Name]; !dup {
		s.order = append(s.order, j.Name)
	}
	s.jobs[j.Name] = &entry{job: j}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, name := range s.order {
		e := s.jobs[name]
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, e)
		}()
	}
	log.Printf("scheduler: started %d jobs", len(s.order))
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	log.Printf("scheduler: stopped")
}

// RunNow runs the named job synchronously.
func (s *Scheduler) RunNow(ctx context.Context, name string) (Result, error) {
	e, ok := s.jobs[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	res := s.execute(ctx, e, TriggerManual)
	if res.Skipped {
		return res, ErrJobRunning
	}
	return res, nil
}

func (s *Scheduler) Jobs() []JobStatus {
	out := make([]JobStatus, 0, len(s.order))
	for _, name := range s.order {
		e := s.jobs[name]
		out = append(out, JobStatus{
			Name:     name,
			Interval: e.job.Interval,
			Running:  e.running.Load(),
			LastRun:  e.last.Load(),
		})
	}
	return out
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	if e.job.RunAtStartup {
		if !wait(ctx, e.job.StartupDelay) {
			return
		}
		s.execute(ctx, e, TriggerStartup)
	}
	if e.job.Interval <= 0 {
		return
	}
	if !wait(ctx, e.job.Offset) {
		return
	}

	ticker := time.NewTicker(e.job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				s.execute(ctx, e, TriggerTimer)
			}()
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, e *entry, trigger Trigger) (res Result) {
	res = Result{RunID: uuid.New(), Job: e.job.Name, Trigger: trigger, StartedAt: time.Now()}
	if !e.running.CompareAndSwap(false, true) {
		res.Skipped = true
		s.observer(res)
		return res
	}
	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("panic: %v", r)
		}
		res.Duration = time.Since(res.StartedAt)
		e.running.Store(false)
		last := res
		e.last.Store(&last)
		s.observer(res)
	}()
	res.Detail, res.Err = e.job.Run(ctx)
	return res
}

func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

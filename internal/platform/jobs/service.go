package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"kiwipay/internal/domain/payroll"
	"kiwipay/internal/platform/apperror"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const defaultRetained = 256

var ErrQueueFull = apperror.New("queue_full", "payroll run queue is full, retry later", http.StatusServiceUnavailable)

// Runner executes one payroll run. *payroll.Runner satisfies it.
type Runner interface {
	Run(ctx context.Context, req payroll.RunRequest) (payroll.RunResult, error)
}

// Run is the tracked state of a queued or finished payroll run.
type Run struct {
	ID         string             `json:"id"`
	Status     Status             `json:"status"`
	Request    payroll.RunRequest `json:"request"`
	Result     *payroll.RunResult `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	QueuedAt   time.Time          `json:"queuedAt"`
	StartedAt  *time.Time         `json:"startedAt,omitempty"`
	FinishedAt *time.Time         `json:"finishedAt,omitempty"`
}

// Service queues payroll runs for a background worker and remembers the
// most recent outcomes so callers can poll for them.
type Service struct {
	runner   Runner
	queue    chan string
	logger   *slog.Logger
	retained int
	now      func() time.Time

	mu   sync.RWMutex
	runs map[string]*Run
}

func New(runner Runner, queueSize int, logger *slog.Logger) *Service {
	if queueSize <= 0 {
		queueSize = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		runner:   runner,
		queue:    make(chan string, queueSize),
		logger:   logger,
		retained: defaultRetained,
		now:      time.Now,
		runs:     map[string]*Run{},
	}
}

// Start runs the worker until ctx is done.
func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
}

// Enqueue validates req and queues it. The returned run carries the
// assigned run id.
func (s *Service) Enqueue(req payroll.RunRequest) (Run, error) {
	if err := req.Validate(); err != nil {
		return Run{}, err
	}
	run, err := s.register(req)
	if err != nil {
		return Run{}, err
	}

	select {
	case s.queue <- run.ID:
		return *run, nil
	default:
		s.mu.Lock()
		delete(s.runs, run.ID)
		s.mu.Unlock()
		s.logger.Warn("payroll run queue full", "runId", run.ID, "employees", len(req.EmployeeIDs))
		return Run{}, ErrQueueFull
	}
}

// RunNow executes req on the caller's goroutine and records the outcome.
func (s *Service) RunNow(ctx context.Context, req payroll.RunRequest) (payroll.RunResult, error) {
	if err := req.Validate(); err != nil {
		return payroll.RunResult{}, err
	}
	if _, err := s.register(req); err != nil {
		return payroll.RunResult{}, err
	}
	return s.execute(ctx, req.RunID)
}

// register records req as queued. A run id is accepted once for as long as
// its record is retained.
func (s *Service) register(req payroll.RunRequest) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[req.RunID]; ok {
		return nil, apperror.New("duplicate_run", "run "+req.RunID+" already exists", http.StatusConflict)
	}
	run := &Run{ID: req.RunID, Status: StatusQueued, Request: req, QueuedAt: s.now()}
	s.runs[run.ID] = run
	return run, nil
}

func (s *Service) Get(runID string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case runID := <-s.queue:
			if _, err := s.execute(ctx, runID); err != nil {
				s.logger.Warn("payroll run failed", "runId", runID, "err", err)
			}
		}
	}
}

func (s *Service) execute(ctx context.Context, runID string) (payroll.RunResult, error) {
	s.mu.Lock()
	run, ok := s.runs[runID]
	if !ok {
		s.mu.Unlock()
		return payroll.RunResult{}, errors.New("run " + runID + " is no longer tracked")
	}
	started := s.now()
	run.Status = StatusRunning
	run.StartedAt = &started
	req := run.Request
	s.mu.Unlock()

	result, err := s.runner.Run(ctx, req)

	s.mu.Lock()
	finished := s.now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = StatusFailed
		run.Error = apperror.From(err).Message
	} else {
		run.Status = StatusCompleted
		run.Result = &result
	}
	s.evictLocked()
	s.mu.Unlock()
	return result, err
}

// evictLocked drops the oldest finished runs beyond the retention limit.
func (s *Service) evictLocked() {
	var finished []*Run
	for _, run := range s.runs {
		if run.FinishedAt != nil {
			finished = append(finished, run)
		}
	}
	if len(finished) <= s.retained {
		return
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].FinishedAt.Before(*finished[j].FinishedAt)
	})
	for _, run := range finished[:len(finished)-s.retained] {
		delete(s.runs, run.ID)
	}
}

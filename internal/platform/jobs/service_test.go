package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kiwipay/internal/domain/payroll"
	"kiwipay/internal/platform/apperror"
)

type stubRunner struct {
	mu    sync.Mutex
	calls []string
	block chan struct{}
	err   error
}

func (s *stubRunner) Run(ctx context.Context, req payroll.RunRequest) (payroll.RunResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req.RunID)
	s.mu.Unlock()
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return payroll.RunResult{}, ctx.Err()
		}
	}
	if s.err != nil {
		return payroll.RunResult{RunID: req.RunID}, s.err
	}
	return payroll.RunResult{RunID: req.RunID, Payslips: []payroll.Payslip{{EmployeeID: req.EmployeeIDs[0]}}}, nil
}

func runRequest(id string) payroll.RunRequest {
	return payroll.RunRequest{
		RunID:       id,
		EmployeeIDs: []string{"emp-1"},
		Period:      payroll.PeriodWeekly,
		PeriodStart: time.Date(2024, time.May, 6, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, time.May, 12, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnqueueRunsInBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := New(&stubRunner{}, 4, nil)
	svc.Start(ctx)

	run, err := svc.Enqueue(runRequest("run-1"))
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, run.Status)
	assert.Equal(t, "run-1", run.ID)

	require.Eventually(t, func() bool {
		got, ok := svc.Get("run-1")
		return ok && got.Status == StatusCompleted
	}, time.Second, 5*time.Millisecond)

	got, _ := svc.Get("run-1")
	require.NotNil(t, got.Result)
	assert.Len(t, got.Result.Payslips, 1)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
}

func TestEnqueueRejectsInvalidAndDuplicateRuns(t *testing.T) {
	svc := New(&stubRunner{}, 4, nil)

	_, err := svc.Enqueue(payroll.RunRequest{Period: payroll.PeriodWeekly})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = svc.Enqueue(runRequest("run-1"))
	require.NoError(t, err)
	_, err = svc.Enqueue(runRequest("run-1"))
	assert.Equal(t, "duplicate_run", apperror.From(err).Code)
}

func TestRunNowRejectsDuplicateRuns(t *testing.T) {
	runner := &stubRunner{}
	svc := New(runner, 4, nil)

	_, err := svc.RunNow(context.Background(), runRequest("run-1"))
	require.NoError(t, err)
	first, ok := svc.Get("run-1")
	require.True(t, ok)

	_, err = svc.RunNow(context.Background(), runRequest("run-1"))
	appErr := apperror.From(err)
	assert.Equal(t, "duplicate_run", appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)

	_, err = svc.Enqueue(runRequest("run-1"))
	assert.Equal(t, "duplicate_run", apperror.From(err).Code)

	again, ok := svc.Get("run-1")
	require.True(t, ok)
	assert.Equal(t, first.FinishedAt, again.FinishedAt)
	assert.Equal(t, StatusCompleted, again.Status)
	assert.Len(t, runner.calls, 1)
}

func TestRunNowRejectsQueuedRunID(t *testing.T) {
	svc := New(&stubRunner{}, 4, nil)

	_, err := svc.Enqueue(runRequest("run-1"))
	require.NoError(t, err)
	_, err = svc.RunNow(context.Background(), runRequest("run-1"))
	assert.Equal(t, "duplicate_run", apperror.From(err).Code)
}

func TestEnqueueQueueFull(t *testing.T) {
	svc := New(&stubRunner{}, 1, nil)

	_, err := svc.Enqueue(runRequest("run-1"))
	require.NoError(t, err)
	_, err = svc.Enqueue(runRequest("run-2"))
	assert.ErrorIs(t, err, ErrQueueFull)

	_, ok := svc.Get("run-2")
	assert.False(t, ok, "rejected run must not be tracked")
}

func TestRunNowRecordsFailure(t *testing.T) {
	svc := New(&stubRunner{err: errors.New("database unavailable")}, 1, nil)

	_, err := svc.RunNow(context.Background(), runRequest("run-9"))
	require.Error(t, err)

	got, ok := svc.Get("run-9")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "an unexpected error occurred", got.Error)
	assert.Nil(t, got.Result)
}

func TestFinishedRunsAreEvicted(t *testing.T) {
	svc := New(&stubRunner{}, 1, nil)
	svc.retained = 2
	clock := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for i := 1; i <= 3; i++ {
		_, err := svc.RunNow(context.Background(), runRequest(fmt.Sprintf("run-%d", i)))
		require.NoError(t, err)
	}

	_, ok := svc.Get("run-1")
	assert.False(t, ok)
	_, ok = svc.Get("run-3")
	assert.True(t, ok)
}

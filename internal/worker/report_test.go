package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/darkbear/internal/domain"
)

type mockSnapshotGenerator struct {
	callCount atomic.Int32
	mu        sync.Mutex
	slug      string
	err       error
}

func (m *mockSnapshotGenerator) Generate(_ context.Context, slug string, _ time.Time) (domain.PortfolioValuation, error) {
	m.callCount.Add(1)
	m.mu.Lock()
	m.slug = slug
	m.mu.Unlock()
	return domain.PortfolioValuation{}, m.err
}

type mockHook struct {
	callCount atomic.Int32
}

func (m *mockHook) Export(_ context.Context, _ domain.PortfolioValuation) error {
	m.callCount.Add(1)
	return nil
}

func TestReportWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockSnapshotGenerator{}
	hook := &mockHook{}
	w := NewReportWorker(mock, "family", 50*time.Millisecond, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if got := hook.callCount.Load(); got != mock.callCount.Load() {
		t.Errorf("hook calls = %d, generations = %d", got, mock.callCount.Load())
	}
	mock.mu.Lock()
	defer mock.mu.Unlock()
	if mock.slug != "family" {
		t.Errorf("slug = %q, want family", mock.slug)
	}
}

func TestReportWorkerSkipsHookOnFailure(t *testing.T) {
	mock := &mockSnapshotGenerator{err: errors.New("valuation failed")}
	hook := &mockHook{}
	w := NewReportWorker(mock, "default", time.Hour, hook)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if mock.callCount.Load() != 1 {
		t.Errorf("call count = %d, want 1", mock.callCount.Load())
	}
	if hook.callCount.Load() != 0 {
		t.Error("hook must not run after a failed generation")
	}
}

func TestReportWorkerNilHook(t *testing.T) {
	mock := &mockSnapshotGenerator{}
	w := NewReportWorker(mock, "default", time.Hour, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if mock.callCount.Load() != 1 {
		t.Errorf("call count = %d, want 1", mock.callCount.Load())
	}
}

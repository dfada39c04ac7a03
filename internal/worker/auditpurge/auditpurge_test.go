package auditpurge

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/shop/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePurger struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakePurger) Purge(_ context.Context, daysToKeep int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, daysToKeep)

	return 3, f.err
}

func (f *fakePurger) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}

func discard() option {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewWorkerRejectsBadSchedule(t *testing.T) {
	_, err := NewWorker(&fakePurger{}, config.AuditConfig{PurgeSchedule: "every tuesday"}, discard())
	assert.Error(t, err)
}

func TestRunPassesRetention(t *testing.T) {
	p := &fakePurger{}
	w, err := NewWorker(p, config.AuditConfig{PurgeSchedule: "0 3 * * *", DaysToKeep: 30}, discard())
	require.NoError(t, err)

	w.run()
	p.err = errors.New("db down")
	w.run()

	assert.Equal(t, []int{30, 30}, p.calls)
}

func TestStartFiresOnSchedule(t *testing.T) {
	p := &fakePurger{}
	w, err := NewWorker(p, config.AuditConfig{PurgeSchedule: "@every 1s", DaysToKeep: 7}, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.count() > 0 }, 3*time.Second, 50*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}

package possync

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corray333/backend-labs/kitchen/internal/service/services/syncsvc"
	"github.com/stretchr/testify/assert"
)

type countingSyncer struct {
	calls atomic.Int32
}

func (s *countingSyncer) SyncOrders(context.Context) syncsvc.Result {
	s.calls.Add(1)

	return syncsvc.Result{Error: "pos down"}
}

func TestStartSyncsImmediately(t *testing.T) {
	s := &countingSyncer{}
	w := NewWorker(s)
	w.interval = time.Hour

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	w.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestStartSyncsOnTick(t *testing.T) {
	s := &countingSyncer{}
	w := NewWorker(s)
	w.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	assert.Eventually(t, func() bool { return s.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

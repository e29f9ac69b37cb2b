package async

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/youssef3092004/Spacefy/pkg/observability"
)

func TestSafeGo_RecoversPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, &buf)

	done := make(chan struct{})
	SafeGo(logger, "test-panic", func() {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for goroutine")
	}

	// log write races the panic recovery, give it a moment
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(buf.String(), "goroutine panic recovered") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("Expected panic to be logged")
}

func TestSafeGo_RunsFunction(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})

	done := make(chan struct{})
	SafeGo(logger, "test-run", func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Function was not executed")
	}
}

func TestWorkerPool_RunsTasks(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	pool := NewWorkerPool(4, 16, logger)

	var count int64
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		ok := pool.Submit(func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt64(&count, 1)
		})
		if !ok {
			wg.Done()
			t.Error("Expected submit to succeed")
		}
	}
	wg.Wait()
	pool.Stop()

	if got := atomic.LoadInt64(&count); got != 10 {
		t.Errorf("Expected 10 tasks executed, got %d", got)
	}
}

func TestWorkerPool_PanicDoesNotKillWorker(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	pool := NewWorkerPool(1, 4, logger)

	done := make(chan struct{})
	pool.Submit(func(ctx context.Context) { panic("task boom") })
	pool.Submit(func(ctx context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Worker did not survive a panicking task")
	}
	pool.Stop()
}

func TestWorkerPool_SubmitAfterStop(t *testing.T) {
	logger := observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{})
	pool := NewWorkerPool(1, 1, logger)
	pool.Stop()

	if pool.Submit(func(ctx context.Context) {}) {
		t.Error("Expected submit to fail after stop")
	}
}

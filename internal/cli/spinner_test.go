package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer lets the test read spinner output without racing the
// animation goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerWritesFrames(t *testing.T) {
	var out syncBuffer
	s := newSpinner("rendering flow.svg")
	s.out = &out

	s.Start()
	time.Sleep(5 * spinnerInterval)
	s.Stop()

	got := out.String()
	if !strings.Contains(got, "rendering flow.svg") {
		t.Errorf("spinner output missing message: %q", got)
	}
	if s.Cancelled() {
		t.Error("plain Stop must not count as cancellation")
	}
}

func TestSpinnerStopsOnContextCancel(t *testing.T) {
	var out syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	s := newSpinnerWithContext(ctx, "waiting")
	s.out = &out

	s.Start()
	cancel()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() should report the parent context ending")
	}
}

func TestSpinnerTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	s := newSpinnerWithContext(ctx, "waiting")
	s.out = &syncBuffer{}
	s.Start()
	<-ctx.Done()
	s.Stop()

	if !s.Cancelled() {
		t.Error("Cancelled() should report the timeout")
	}
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	s := newSpinner("once")
	s.out = &syncBuffer{}
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerStopWithoutStart(t *testing.T) {
	s := newSpinner("never started")
	s.out = &syncBuffer{}
	s.Stop()
}

func TestSpinnerStartIsIdempotent(t *testing.T) {
	s := newSpinner("twice")
	s.out = &syncBuffer{}
	s.Start()
	s.Start()
	s.Stop()
}

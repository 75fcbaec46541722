package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManual_RunsInRequestOrder(t *testing.T) {
	m := NewManual()
	var order []int
	m.RequestTick(func() { order = append(order, 1) })
	m.RequestTick(func() { order = append(order, 2) })

	assert.Equal(t, 2, m.Pending())
	assert.Equal(t, 2, m.Drain(0))
	assert.Equal(t, []int{1, 2}, order)
	assert.False(t, m.Step())
}

func TestManual_CancelIsIdempotent(t *testing.T) {
	m := NewManual()
	ran := false
	h := m.RequestTick(func() { ran = true })

	m.CancelTick(h)
	m.CancelTick(h)
	m.CancelTick(Handle(999))

	assert.Equal(t, 0, m.Drain(0))
	assert.False(t, ran)
}

func TestManual_CallbackMayRequestAgain(t *testing.T) {
	m := NewManual()
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 5 {
			m.RequestTick(tick)
		}
	}
	m.RequestTick(tick)

	assert.Equal(t, 3, m.Drain(3))
	assert.Equal(t, 2, m.Drain(0))
	assert.Equal(t, 5, count)
}

func TestManual_HandlesAreUnique(t *testing.T) {
	m := NewManual()
	a := m.RequestTick(nil)
	b := m.RequestTick(nil)

	assert.NotEqual(t, a, b)
	assert.NotZero(t, a)
	assert.True(t, m.Step(), "nil callbacks are skipped but consumed")
}

func TestFrame_RunsRequests(t *testing.T) {
	f := NewFrame(context.Background(), 1000)
	defer f.Close()

	var count atomic.Int32
	done := make(chan struct{})
	var tick func()
	tick = func() {
		if count.Add(1) == 10 {
			close(done)
			return
		}
		f.RequestTick(tick)
	}
	f.RequestTick(tick)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("frame scheduler did not run requests")
	}
	assert.Equal(t, int32(10), count.Load())
}

func TestFrame_CancelledRequestDoesNotRun(t *testing.T) {
	f := NewFrame(context.Background(), 1)
	defer f.Close()

	// the first frame is available immediately, so hold it with a blocking request
	release := make(chan struct{})
	started := make(chan struct{})
	f.RequestTick(func() {
		close(started)
		<-release
	})
	<-started

	var ran atomic.Bool
	h := f.RequestTick(func() { ran.Store(true) })
	f.CancelTick(h)
	close(release)

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestFrame_CloseStopsWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := NewFrame(ctx, 0)
	cancel()

	stopped := make(chan struct{})
	go func() {
		f.Close()
		f.Close()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		require.Fail(t, "Close did not return")
	}
}

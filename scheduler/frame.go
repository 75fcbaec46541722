package scheduler

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// DefaultFPS is the frame rate used when none is configured
const DefaultFPS = 60

// Frame runs requests on a single worker goroutine, no faster than the
// configured frame rate. Requests run one at a time in request order.
type Frame struct {
	q       queue
	limiter *rate.Limiter
	wake    chan struct{}

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewFrame starts a frame scheduler. fps <= 0 uses DefaultFPS. The worker
// stops when ctx is cancelled or Close is called.
func NewFrame(ctx context.Context, fps float64) *Frame {
	if fps <= 0 {
		fps = DefaultFPS
	}
	ctx, cancel := context.WithCancel(ctx)
	f := &Frame{
		limiter: rate.NewLimiter(rate.Limit(fps), 1),
		wake:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go f.loop(ctx)
	return f
}

// RequestTick implements Scheduler
func (f *Frame) RequestTick(fn func()) Handle {
	h := f.q.push(fn)
	select {
	case f.wake <- struct{}{}:
	default:
	}
	return h
}

// CancelTick implements Scheduler
func (f *Frame) CancelTick(h Handle) {
	f.q.cancel(h)
}

// Close stops the worker and waits for it to exit. Pending requests are
// dropped. Close is safe to call more than once.
func (f *Frame) Close() {
	f.closeOnce.Do(f.cancel)
	<-f.done
}

func (f *Frame) loop(ctx context.Context) {
	defer close(f.done)
	for {
		if f.q.len() == 0 {
			select {
			case <-ctx.Done():
				return
			case <-f.wake:
				continue
			}
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return
		}

		// the request may have been cancelled while waiting for the frame
		r, ok := f.q.pop()
		if !ok || r.fn == nil {
			continue
		}
		r.fn()
	}
}

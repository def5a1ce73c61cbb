package notify

// limiter.go bounds fire-and-forget deliveries (operations copies).
//
// Slots are a buffered-channel semaphore. Go never blocks the caller: when
// every slot is busy the job is dropped and reported as not started, so a
// slow mail relay cannot hold request goroutines. WaitForDrain lets shutdown
// wait for in-flight jobs.

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxBackground is the default number of concurrent background sends.
const DefaultMaxBackground = 4

// DefaultBackgroundTimeout bounds a single background job.
const DefaultBackgroundTimeout = 30 * time.Second

// Limiter runs background jobs with bounded concurrency.
type Limiter struct {
	semaphore chan struct{}
	timeout   time.Duration

	mu     sync.RWMutex
	active int
}

// NewLimiter creates a limiter allowing at most maxConcurrent jobs, each
// bounded by timeout.
func NewLimiter(maxConcurrent int, timeout time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxBackground
	}
	if timeout <= 0 {
		timeout = DefaultBackgroundTimeout
	}
	return &Limiter{
		semaphore: make(chan struct{}, maxConcurrent),
		timeout:   timeout,
	}
}

// Go starts fn in the background if a slot is free and reports whether it
// did. fn receives a context detached from ctx's cancellation (values such
// as the request ID are kept) and limited by the limiter's timeout.
func (l *Limiter) Go(ctx context.Context, fn func(context.Context)) bool {
	select {
	case l.semaphore <- struct{}{}:
	default:
		return false
	}

	l.mu.Lock()
	l.active++
	l.mu.Unlock()

	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
	go func() {
		defer l.release()
		defer cancel()
		fn(jobCtx)
	}()
	return true
}

func (l *Limiter) release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	<-l.semaphore
}

// ActiveCount returns the number of running jobs.
func (l *Limiter) ActiveCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.active
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.semaphore) - len(l.semaphore)
}

// WaitForDrain blocks until all running jobs finish or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

package presentation

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
)

// Sink receives directives in order. Apply is always called from the queue's
// single consumer goroutine, so sinks need no internal locking for ordering.
type Sink interface {
	Apply(d Directive)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(d Directive)

// Apply implements Sink
func (f SinkFunc) Apply(d Directive) { f(d) }

// Queue serializes all presentation mutations onto one consumer goroutine.
// Producers (the workflow controller, the session status path, scheduled
// jobs) push from any goroutine; sinks observe a single ordered stream.
type Queue struct {
	ch    chan Directive
	log   zerolog.Logger
	mu    sync.RWMutex
	next  int
	sinks map[int]Sink
	wg    sync.WaitGroup
}

// NewQueue creates a directive queue with the given buffer size.
func NewQueue(size int, log zerolog.Logger) *Queue {
	return &Queue{
		ch:    make(chan Directive, size),
		log:   log.With().Str("component", "presentation_queue").Logger(),
		sinks: make(map[int]Sink),
	}
}

// Attach registers a sink and returns a detach function. Sinks may attach and
// detach at any time (websocket renderers come and go).
func (q *Queue) Attach(sink Sink) (detach func()) {
	q.mu.Lock()
	id := q.next
	q.next++
	q.sinks[id] = sink
	q.mu.Unlock()

	return func() {
		q.mu.Lock()
		delete(q.sinks, id)
		q.mu.Unlock()
	}
}

// Push enqueues a directive. When the buffer is full the directive is dropped
// with a warning: presentation lag must never block protocol ingestion.
func (q *Queue) Push(d Directive) {
	select {
	case q.ch <- d:
	default:
		q.log.Warn().Str("op", string(d.Op)).Msg("Presentation queue full, dropping directive")
	}
}

// PushAll enqueues directives in order.
func (q *Queue) PushAll(ds []Directive) {
	for _, d := range ds {
		q.Push(d)
	}
}

// Start launches the consumer goroutine. It runs until ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for {
			select {
			case <-ctx.Done():
				q.log.Debug().Msg("Presentation queue stopped")
				return
			case d := <-q.ch:
				q.dispatch(d)
			}
		}
	}()
}

// Wait blocks until the consumer goroutine has exited.
func (q *Queue) Wait() {
	q.wg.Wait()
}

func (q *Queue) dispatch(d Directive) {
	q.mu.RLock()
	sinks := make([]Sink, 0, len(q.sinks))
	for _, s := range q.sinks {
		sinks = append(sinks, s)
	}
	q.mu.RUnlock()

	for _, s := range sinks {
		s.Apply(d)
	}
}

package presentation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collector is a Sink recording directives in arrival order.
type collector struct {
	mu   sync.Mutex
	seen []Directive
}

func (c *collector) Apply(d Directive) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, d)
}

func (c *collector) snapshot() []Directive {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Directive, len(c.seen))
	copy(out, c.seen)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueuePreservesOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(16, zerolog.Nop())
	sink := &collector{}
	q.Attach(sink)
	q.Start(ctx)

	q.PushAll([]Directive{OpenWheel(), HighlightSector(3, false), ShowPopup("Did you take Metformin?")})

	waitFor(t, func() bool { return len(sink.snapshot()) == 3 })
	seen := sink.snapshot()
	assert.Equal(t, OpOpenWheel, seen[0].Op)
	assert.Equal(t, OpHighlightSector, seen[1].Op)
	assert.Equal(t, 3, seen[1].Sector)
	assert.Equal(t, OpShowPopup, seen[2].Op)
}

func TestQueueDetach(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewQueue(16, zerolog.Nop())
	sink := &collector{}
	detach := q.Attach(sink)
	q.Start(ctx)

	q.Push(SetStatusText("Connected"))
	waitFor(t, func() bool { return len(sink.snapshot()) == 1 })

	detach()
	q.Push(SetStatusText("Disconnected"))
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, sink.snapshot(), 1)
}

func TestQueueFullDropsInsteadOfBlocking(t *testing.T) {
	// No consumer running: pushes beyond the buffer must return immediately.
	q := NewQueue(2, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			q.Push(AppendLogLine("line"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Push blocked on a full queue")
	}
}

func TestRenderSinkPostsDirectives(t *testing.T) {
	var mu sync.Mutex
	var got []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		got = append(got, r.URL.Path)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewRenderSink(srv.URL, zerolog.Nop())
	sink.Apply(OpenWheel()) // disabled: no push
	sink.Enable()
	sink.Apply(OpenWheel())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, "/api/directive", got[0])
}

func TestRenderSinkSwallowsFailures(t *testing.T) {
	sink := NewRenderSink("http://127.0.0.1:1", zerolog.Nop())
	sink.Enable()
	// Must not panic or block beyond the client timeout.
	sink.Apply(ShowPopup("x"))
}

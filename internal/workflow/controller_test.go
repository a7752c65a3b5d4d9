package workflow

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/protocol"
)

func testController(t *testing.T) (*Controller, *ledger.Ledger, *events.Bus, *presentation.Queue) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	bus := events.NewBus(zerolog.Nop())
	l := ledger.New(filepath.Join(t.TempDir(), "dose_history.json"), bus, zerolog.Nop())
	q := presentation.NewQueue(64, zerolog.Nop())
	q.Start(ctx)

	c := NewController(l, q, bus, zerolog.Nop())
	return c, l, bus, q
}

func TestControllerFullWheelFlowAppendsOneRecord(t *testing.T) {
	c, l, bus, _ := testController(t)

	recorded := 0
	bus.Subscribe(events.DoseRecorded, func(e *events.Event) { recorded++ })

	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	c.SetClock(func() time.Time { return at })

	c.HandleMessage(protocol.WheelOpen{})
	c.HandleMessage(protocol.WheelHover{Sector: 2, Medication: "Aspirin"})
	c.HandleMessage(protocol.WheelSelectConfirm{Sector: 2, Medication: "Aspirin"})
	c.HandleMessage(protocol.WheelSelectConfirm{Sector: 1, Medication: "Amoxicillin"})

	require.Equal(t, 1, l.Len())
	rec := l.Recent(1)[0]
	assert.Equal(t, "Aspirin", rec.MedicationName)
	assert.True(t, rec.Taken)
	require.NotNil(t, rec.NextDoseTime)
	assert.Equal(t, at.Add(12*time.Hour), *rec.NextDoseTime)
	assert.Equal(t, 1, recorded)

	state, pending := c.Snapshot()
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, "", pending)
}

func TestControllerExplicitConfirm(t *testing.T) {
	c, l, _, _ := testController(t)

	c.HandleMessage(protocol.MedicationSelected{Medication: "Metformin", SymbolID: 5})

	state, pending := c.Snapshot()
	assert.Equal(t, StateConfirming, state)
	assert.Equal(t, "Metformin", pending)

	require.True(t, c.Confirm(false))
	require.Equal(t, 1, l.Len())
	rec := l.Recent(1)[0]
	assert.False(t, rec.Taken)
	assert.Nil(t, rec.NextDoseTime)
}

func TestControllerConfirmWithoutPending(t *testing.T) {
	c, l, _, _ := testController(t)

	assert.False(t, c.Confirm(true))
	assert.Equal(t, 0, l.Len())
}

func TestControllerCancelWritesNothing(t *testing.T) {
	c, l, _, _ := testController(t)

	c.HandleMessage(protocol.MedicationSelected{Medication: "Metformin", SymbolID: 5})
	c.Cancel()

	state, pending := c.Snapshot()
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, "", pending)
	assert.Equal(t, 0, l.Len())
}

func TestControllerIgnoresUnknown(t *testing.T) {
	c, l, _, _ := testController(t)

	c.HandleMessage(protocol.Unknown{RawType: "tuio_obj"})

	state, _ := c.Snapshot()
	assert.Equal(t, StateIdle, state)
	assert.Equal(t, 0, l.Len())
}

func TestControllerRefreshesHistoryAfterDecision(t *testing.T) {
	c, _, _, q := testController(t)

	var mu sync.Mutex
	var seen []presentation.Op
	q.Attach(presentation.SinkFunc(func(d presentation.Directive) {
		mu.Lock()
		seen = append(seen, d.Op)
		mu.Unlock()
	}))

	c.HandleMessage(protocol.MedicationSelected{Medication: "Aspirin", SymbolID: 4})
	require.True(t, c.Confirm(true))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		for _, op := range seen {
			if op == presentation.OpRefreshHistory {
				mu.Unlock()
				return
			}
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("no history refresh directive observed")
}

package workflow

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/protocol"
)

// historyViewLimit is how many records the rendered history view shows.
const historyViewLimit = 10

// Controller owns the single live Machine instance and connects it to the
// ledger, the presentation queue and the event bus. It is the only writer of
// workflow state; messages may arrive from the session goroutine while
// explicit confirmations arrive from HTTP handlers, so every entry point
// takes the controller mutex.
type Controller struct {
	mu      sync.Mutex
	machine Machine

	ledger *ledger.Ledger
	queue  *presentation.Queue
	bus    *events.Bus
	log    zerolog.Logger
	now    func() time.Time
}

// NewController creates a controller over an idle machine.
func NewController(l *ledger.Ledger, q *presentation.Queue, bus *events.Bus, log zerolog.Logger) *Controller {
	return &Controller{
		machine: NewMachine(protocol.NumSectors()),
		ledger:  l,
		queue:   q,
		bus:     bus,
		log:     log.With().Str("component", "workflow").Logger(),
		now:     time.Now,
	}
}

// SetClock overrides the controller clock. Tests only.
func (c *Controller) SetClock(now func() time.Time) { c.now = now }

// HandleMessage applies one decoded protocol message.
func (c *Controller) HandleMessage(msg protocol.Message) {
	if u, ok := msg.(protocol.Unknown); ok {
		// Forward-compatibility: unknown types are logged and otherwise
		// ignored so a newer broadcaster cannot wedge the workflow.
		c.log.Debug().Str("raw_type", u.RawType).Msg("Ignoring unknown message type")
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	before := c.machine.State()
	next, res := c.machine.Apply(msg)
	c.machine = next

	if next.State() != before {
		c.log.Info().
			Stringer("from", before).
			Stringer("to", next.State()).
			Str("kind", string(msg.Kind())).
			Msg("Workflow transition")
	}

	c.finishLocked(res)
}

// Confirm resolves a pending confirmation from the renderer's explicit
// yes/no buttons. Returns false when nothing was awaiting confirmation.
func (c *Controller) Confirm(taken bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, res, ok := c.machine.Confirm(taken)
	if !ok {
		return false
	}
	c.machine = next
	c.finishLocked(res)
	return true
}

// Cancel discards any pending selection, exactly as a back_pressed message.
func (c *Controller) Cancel() {
	c.HandleMessage(protocol.BackPressed{})
}

// Snapshot returns the current state and pending medication for the API.
func (c *Controller) Snapshot() (State, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.machine.State(), c.machine.PendingMedication()
}

// finishLocked applies a transition result: at most one ledger append, then
// the transition's directives, then a history refresh when anything was
// recorded. Caller holds c.mu.
func (c *Controller) finishLocked(res Result) {
	if res.Dose != nil {
		at := c.now().UTC()
		rec := c.ledger.Append(res.Dose.Medication, res.Dose.Taken, at)
		c.bus.Publish(&events.DoseRecordedData{
			Medication:   rec.MedicationName,
			Taken:        rec.Taken,
			TimeTaken:    rec.TimeTaken,
			NextDoseTime: rec.NextDoseTime,
		})
	}

	c.queue.PushAll(res.Directives)

	if res.Dose != nil {
		now := c.now().UTC()
		c.queue.Push(presentation.RefreshHistory(
			c.ledger.Recent(historyViewLimit),
			c.ledger.NextUpcoming(now),
		))
	}
}

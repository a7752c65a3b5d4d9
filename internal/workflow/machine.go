// Package workflow implements the medication selection state machine: it
// consumes decoded protocol messages, tracks the selection workflow, and
// emits presentation directives plus dose intents for the ledger.
package workflow

import (
	"fmt"

	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/protocol"
)

// State is the workflow state
type State int

const (
	// StateIdle is the initial state: no wheel, no pending selection
	StateIdle State = iota
	// StateSelecting means the wheel is open and sectors are being hovered
	StateSelecting
	// StateConfirming means a medication is selected and awaits a
	// taken/not-taken decision
	StateConfirming
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateConfirming:
		return "confirming"
	default:
		return "unknown"
	}
}

// DoseIntent asks the controller to append exactly one ledger record.
type DoseIntent struct {
	Medication string
	Taken      bool
}

// Result is the output of one transition.
type Result struct {
	Directives []presentation.Directive
	Dose       *DoseIntent
}

// Machine is the pure workflow state. Apply and Confirm are value-in,
// value-out: no I/O, no clock, no shared state, so the full transition table
// is testable in isolation. The controller owns the single live instance.
type Machine struct {
	state             State
	pendingMedication string
	pendingSector     int // -1 when the selection did not come from the wheel
	sectors           int
}

// NewMachine creates an idle machine over a wheel with the given sector count.
func NewMachine(sectors int) Machine {
	return Machine{state: StateIdle, pendingSector: -1, sectors: sectors}
}

// State returns the current state
func (m Machine) State() State { return m.state }

// PendingMedication returns the medication awaiting confirmation, or "".
func (m Machine) PendingMedication() string { return m.pendingMedication }

// PendingSector returns the wheel sector of the pending selection, or -1.
func (m Machine) PendingSector() int { return m.pendingSector }

// Apply runs one transition. Messages that make no sense in the current
// state are accepted without transition or directive - the terminal must stay
// responsive to back_pressed no matter what arrives, so nothing is ever
// rejected with an error.
func (m Machine) Apply(msg protocol.Message) (Machine, Result) {
	// back_pressed cancels from any state, discarding any pending selection
	// without a ledger write.
	if _, ok := msg.(protocol.BackPressed); ok {
		return m.reset(), Result{Directives: []presentation.Directive{
			presentation.CloseWheel(),
			presentation.HidePopup(),
			presentation.ShowInstruction("Canceled"),
		}}
	}

	switch m.state {
	case StateIdle:
		return m.applyIdle(msg)
	case StateSelecting:
		return m.applySelecting(msg)
	case StateConfirming:
		return m.applyConfirming(msg)
	}
	return m, Result{}
}

// Confirm resolves a pending confirmation via the non-wheel path (the
// renderer's explicit yes/no buttons). Outside StateConfirming it is a no-op
// with ok=false.
func (m Machine) Confirm(taken bool) (Machine, Result, bool) {
	if m.state != StateConfirming {
		return m, Result{}, false
	}
	next, res := m.resolve(taken)
	return next, res, true
}

func (m Machine) applyIdle(msg protocol.Message) (Machine, Result) {
	switch e := msg.(type) {
	case protocol.WheelOpen:
		m.state = StateSelecting
		return m, Result{Directives: []presentation.Directive{
			presentation.SetMode("Select medication"),
			presentation.OpenWheel(),
		}}
	case protocol.MedicationSelected:
		return m.beginConfirmation(e.Medication, -1, true)
	}
	return m, Result{}
}

func (m Machine) applySelecting(msg protocol.Message) (Machine, Result) {
	switch e := msg.(type) {
	case protocol.WheelHover:
		return m, Result{Directives: []presentation.Directive{
			presentation.HighlightSector(e.Sector, false),
			presentation.SetSelectedText(fmt.Sprintf("Hovering: %s", e.Medication)),
		}}
	case protocol.WheelSelectConfirm:
		return m.beginConfirmation(e.Medication, e.Sector, false)
	case protocol.MedicationSelected:
		return m.beginConfirmation(e.Medication, -1, true)
	}
	return m, Result{}
}

func (m Machine) applyConfirming(msg protocol.Message) (Machine, Result) {
	if e, ok := msg.(protocol.WheelSelectConfirm); ok {
		// A confirm without a usable sector carries no yes/no answer.
		// Treat it as noise and stay on the confirmation screen.
		if e.Sector < 0 {
			return m, Result{}
		}
		// Wheel-based yes/no: the medication list is split at the midpoint
		// and the sector's side decides. This is a positional UI convention
		// over the fixed medication ordering, not a protocol guarantee - it
		// silently shifts if the list ever changes size, so it is preserved
		// exactly as shipped.
		taken := e.Sector < m.sectors/2
		return m.resolve(taken)
	}
	return m, Result{}
}

// beginConfirmation enters StateConfirming for the given medication. A
// selection without a medication name cannot be confirmed (the pending
// medication must stay non-empty for the whole confirmation), so it is
// dropped as a no-op.
func (m Machine) beginConfirmation(medication string, sector int, direct bool) (Machine, Result) {
	if medication == "" {
		return m, Result{}
	}

	m.state = StateConfirming
	m.pendingMedication = medication
	m.pendingSector = sector

	directives := []presentation.Directive{
		presentation.ShowPopup(fmt.Sprintf("Did you take %s?", medication)),
		presentation.SetSelectedText(medication),
	}
	if direct {
		directives = append(directives, presentation.CloseWheel())
	} else if sector >= 0 {
		directives = append([]presentation.Directive{
			presentation.HighlightSector(sector, true),
		}, directives...)
	}
	return m, Result{Directives: directives}
}

// resolve leaves StateConfirming with a decision, emitting exactly one dose
// intent. The pending medication is always cleared on the way out.
func (m Machine) resolve(taken bool) (Machine, Result) {
	medication := m.pendingMedication

	outcome := fmt.Sprintf("Recorded: %s not taken", medication)
	if taken {
		outcome = fmt.Sprintf("Recorded: %s taken", medication)
	}

	return m.reset(), Result{
		Directives: []presentation.Directive{
			presentation.ShowInstruction(outcome),
			presentation.HidePopup(),
			presentation.CloseWheel(),
		},
		Dose: &DoseIntent{Medication: medication, Taken: taken},
	}
}

// reset returns to idle, clearing the pending selection.
func (m Machine) reset() Machine {
	m.state = StateIdle
	m.pendingMedication = ""
	m.pendingSector = -1
	return m
}

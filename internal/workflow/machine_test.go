package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/protocol"
)

func ops(res Result) []presentation.Op {
	out := make([]presentation.Op, len(res.Directives))
	for i, d := range res.Directives {
		out[i] = d.Op
	}
	return out
}

func TestIdleWheelOpenStartsSelecting(t *testing.T) {
	m := NewMachine(10)

	m, res := m.Apply(protocol.WheelOpen{})

	assert.Equal(t, StateSelecting, m.State())
	assert.Nil(t, res.Dose)
	assert.Contains(t, ops(res), presentation.OpOpenWheel)
}

func TestIdleDirectSelectionStartsConfirming(t *testing.T) {
	m := NewMachine(10)

	m, res := m.Apply(protocol.MedicationSelected{Medication: "Aspirin", SymbolID: 4})

	assert.Equal(t, StateConfirming, m.State())
	assert.Equal(t, "Aspirin", m.PendingMedication())
	assert.Equal(t, -1, m.PendingSector())
	assert.Nil(t, res.Dose)
	assert.Contains(t, ops(res), presentation.OpShowPopup)
	assert.Contains(t, ops(res), presentation.OpCloseWheel)
	assert.Equal(t, "Did you take Aspirin?", res.Directives[0].Text)
}

func TestSelectingHoverHighlightsWithoutTransition(t *testing.T) {
	m := NewMachine(10)
	m, _ = m.Apply(protocol.WheelOpen{})

	m, res := m.Apply(protocol.WheelHover{Sector: 4, Medication: "Lisinopril"})

	assert.Equal(t, StateSelecting, m.State())
	require.Len(t, res.Directives, 2)
	assert.Equal(t, presentation.OpHighlightSector, res.Directives[0].Op)
	assert.Equal(t, 4, res.Directives[0].Sector)
	assert.False(t, res.Directives[0].Confirming)
	assert.Equal(t, "Hovering: Lisinopril", res.Directives[1].Text)
}

func TestSelectingWheelConfirmStartsConfirming(t *testing.T) {
	m := NewMachine(10)
	m, _ = m.Apply(protocol.WheelOpen{})

	m, res := m.Apply(protocol.WheelSelectConfirm{Sector: 7, Medication: "Salbutamol"})

	assert.Equal(t, StateConfirming, m.State())
	assert.Equal(t, "Salbutamol", m.PendingMedication())
	assert.Equal(t, 7, m.PendingSector())
	assert.Nil(t, res.Dose)
	assert.Contains(t, ops(res), presentation.OpShowPopup)
}

func TestSelectingDirectSelectionWins(t *testing.T) {
	m := NewMachine(10)
	m, _ = m.Apply(protocol.WheelOpen{})

	m, res := m.Apply(protocol.MedicationSelected{Medication: "Metformin", SymbolID: 5})

	assert.Equal(t, StateConfirming, m.State())
	assert.Equal(t, "Metformin", m.PendingMedication())
	assert.Contains(t, ops(res), presentation.OpCloseWheel)
}

func confirmingMachine(t *testing.T, med string) Machine {
	t.Helper()
	m := NewMachine(10)
	m, _ = m.Apply(protocol.WheelOpen{})
	m, _ = m.Apply(protocol.WheelSelectConfirm{Sector: 2, Medication: med})
	require.Equal(t, StateConfirming, m.State())
	return m
}

func TestTieBreakLowerHalfMeansTaken(t *testing.T) {
	m := confirmingMachine(t, "Aspirin")

	// 10 medications: sectors 0-4 resolve to taken.
	m, res := m.Apply(protocol.WheelSelectConfirm{Sector: 3, Medication: "Metformin"})

	assert.Equal(t, StateIdle, m.State())
	require.NotNil(t, res.Dose)
	assert.True(t, res.Dose.Taken)
	assert.Equal(t, "Aspirin", res.Dose.Medication)
	assert.Equal(t, "", m.PendingMedication())
}

func TestTieBreakMidpointAndAboveMeansNotTaken(t *testing.T) {
	m := confirmingMachine(t, "Aspirin")

	m, res := m.Apply(protocol.WheelSelectConfirm{Sector: 5})

	assert.Equal(t, StateIdle, m.State())
	require.NotNil(t, res.Dose)
	assert.False(t, res.Dose.Taken)
}

func TestConfirmingIgnoresSectorlessConfirm(t *testing.T) {
	m := confirmingMachine(t, "Aspirin")

	// The decoder reports a missing sector as -1. That carries no
	// answer, so nothing resolves.
	m, res := m.Apply(protocol.WheelSelectConfirm{Sector: -1})

	assert.Equal(t, StateConfirming, m.State())
	assert.Equal(t, "Aspirin", m.PendingMedication())
	assert.Nil(t, res.Dose)
	assert.Empty(t, res.Directives)

	// A usable sector afterwards still resolves normally.
	m, res = m.Apply(protocol.WheelSelectConfirm{Sector: 1})
	assert.Equal(t, StateIdle, m.State())
	require.NotNil(t, res.Dose)
	assert.True(t, res.Dose.Taken)
}

func TestConfirmingResolutionEmitsOutcomeAndCleanup(t *testing.T) {
	m := confirmingMachine(t, "Aspirin")

	_, res := m.Apply(protocol.WheelSelectConfirm{Sector: 0})

	assert.Equal(t, []presentation.Op{
		presentation.OpShowInstruction,
		presentation.OpHidePopup,
		presentation.OpCloseWheel,
	}, ops(res))
	assert.Equal(t, "Recorded: Aspirin taken", res.Directives[0].Text)
}

func TestExplicitConfirm(t *testing.T) {
	m := confirmingMachine(t, "Vitamin D")

	m, res, ok := m.Confirm(false)
	require.True(t, ok)
	assert.Equal(t, StateIdle, m.State())
	require.NotNil(t, res.Dose)
	assert.False(t, res.Dose.Taken)
	assert.Equal(t, "Vitamin D", res.Dose.Medication)
}

func TestExplicitConfirmOutsideConfirmingIsNoop(t *testing.T) {
	m := NewMachine(10)

	next, res, ok := m.Confirm(true)
	assert.False(t, ok)
	assert.Equal(t, m, next)
	assert.Nil(t, res.Dose)
	assert.Empty(t, res.Directives)
}

func TestBackPressedCancelsFromEveryState(t *testing.T) {
	states := map[string]Machine{
		"idle": NewMachine(10),
		"selecting": func() Machine {
			m := NewMachine(10)
			m, _ = m.Apply(protocol.WheelOpen{})
			return m
		}(),
		"confirming": confirmingMachine(t, "Aspirin"),
	}

	for name, m := range states {
		t.Run(name, func(t *testing.T) {
			next, res := m.Apply(protocol.BackPressed{})

			assert.Equal(t, StateIdle, next.State())
			assert.Equal(t, "", next.PendingMedication())
			assert.Nil(t, res.Dose, "cancel must never write the ledger")
			assert.Contains(t, ops(res), presentation.OpCloseWheel)
			assert.Contains(t, ops(res), presentation.OpHidePopup)
		})
	}
}

func TestNonsensicalEventsAreNoops(t *testing.T) {
	cases := []struct {
		name string
		m    Machine
		msg  protocol.Message
	}{
		{"hover while idle", NewMachine(10), protocol.WheelHover{Sector: 1, Medication: "Aspirin"}},
		{"confirm while idle", NewMachine(10), protocol.WheelSelectConfirm{Sector: 1, Medication: "Aspirin"}},
		{"hover while confirming", confirmingMachine(t, "Aspirin"), protocol.WheelHover{Sector: 1, Medication: "Metformin"}},
		{"open while confirming", confirmingMachine(t, "Aspirin"), protocol.WheelOpen{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, res := tc.m.Apply(tc.msg)
			assert.Equal(t, tc.m.State(), next.State())
			assert.Equal(t, tc.m.PendingMedication(), next.PendingMedication())
			assert.Empty(t, res.Directives)
			assert.Nil(t, res.Dose)
		})
	}
}

func TestSelectionWithoutMedicationNameIsDropped(t *testing.T) {
	m := NewMachine(10)
	m, _ = m.Apply(protocol.WheelOpen{})

	// Decoder defaults can produce an empty medication; confirming an empty
	// name would break the non-empty pending invariant.
	next, res := m.Apply(protocol.WheelSelectConfirm{Sector: 1})
	assert.Equal(t, StateSelecting, next.State())
	assert.Empty(t, res.Directives)
}

func TestUnknownMessageNeverTransitions(t *testing.T) {
	m := confirmingMachine(t, "Aspirin")

	next, res := m.Apply(protocol.Unknown{RawType: "tuio_obj"})
	assert.Equal(t, StateConfirming, next.State())
	assert.Equal(t, "Aspirin", next.PendingMedication())
	assert.Empty(t, res.Directives)
	assert.Nil(t, res.Dose)
}

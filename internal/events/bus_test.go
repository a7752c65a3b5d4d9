package events

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToTypeSubscriber(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got *Event
	bus.Subscribe(DoseRecorded, func(e *Event) { got = e })

	now := time.Now().UTC()
	bus.Publish(&DoseRecordedData{Medication: "Aspirin", Taken: true, TimeTaken: now})

	require.NotNil(t, got)
	assert.Equal(t, DoseRecorded, got.Type)
	assert.Equal(t, "Aspirin", got.Data.(*DoseRecordedData).Medication)
	assert.False(t, got.Timestamp.IsZero())
}

func TestBusDoesNotDeliverOtherTypes(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(HistoryCleared, func(e *Event) { calls++ })

	bus.Publish(&DoseRecordedData{Medication: "Aspirin"})
	assert.Equal(t, 0, calls)
}

func TestBusAllSubscriberSeesEverything(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var seen []EventType
	bus.SubscribeAll(func(e *Event) { seen = append(seen, e.Type) })

	bus.Publish(&ConnectionData{Endpoint: "127.0.0.1:8765"})
	bus.Publish(&ConnectionData{Endpoint: "127.0.0.1:8765", Reason: "read error"})
	bus.Publish(&ErrorData{Type: PersistenceError, Source: "ledger", Message: "disk full"})

	assert.Equal(t, []EventType{ConnectionEstablished, ConnectionLost, PersistenceError}, seen)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.Subscribe(DoseRecorded, func(e *Event) { calls++ })

	bus.Publish(&DoseRecordedData{Medication: "Aspirin"})
	require.Equal(t, 1, calls)

	unsubscribe()
	bus.Publish(&DoseRecordedData{Medication: "Aspirin"})
	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.SubscriberCount())
}

func TestBusUnsubscribeAllStopsDelivery(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	unsubscribe := bus.SubscribeAll(func(e *Event) { calls++ })

	bus.Publish(&ConnectionData{Endpoint: "127.0.0.1:8765"})
	require.Equal(t, 1, calls)

	unsubscribe()
	bus.Publish(&ConnectionData{Endpoint: "127.0.0.1:8765"})
	assert.Equal(t, 1, calls)
	assert.Zero(t, bus.SubscriberCount())
}

func TestBusUnsubscribeRemovesOnlyItsHandler(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	first, second := 0, 0
	unsubscribeFirst := bus.Subscribe(ReminderDue, func(e *Event) { first++ })
	bus.Subscribe(ReminderDue, func(e *Event) { second++ })

	unsubscribeFirst()
	// A stale unsubscribe func is harmless.
	unsubscribeFirst()

	bus.Publish(&ReminderDueData{Medication: "Metformin", NextDoseTime: time.Now()})
	assert.Zero(t, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestBusMultipleSubscribersPerType(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	calls := 0
	bus.Subscribe(ReminderDue, func(e *Event) { calls++ })
	bus.Subscribe(ReminderDue, func(e *Event) { calls++ })

	bus.Publish(&ReminderDueData{Medication: "Metformin", NextDoseTime: time.Now()})
	assert.Equal(t, 2, calls)
}

// Package ledger owns the dose history: an append-only, in-memory sequence of
// dose records persisted as a JSON snapshot after every change.
//
// The ledger favors kiosk availability over strict durability: an append that
// fails to persist keeps the in-memory record, logs the failure and publishes
// a persistence_error event. Durable state may trail the in-memory truth
// until the next successful write.
package ledger

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/events"
)

// DoseInterval is the fixed interval between doses of the same medication.
const DoseInterval = 12 * time.Hour

// DoseRecord is one taken/not-taken decision. Records are immutable once
// created; NextDoseTime is set only when Taken is true. Field names match the
// persisted snapshot format.
type DoseRecord struct {
	MedicationName string     `json:"MedicationName"`
	TimeTaken      time.Time  `json:"TimeTaken"`
	NextDoseTime   *time.Time `json:"NextDoseTime,omitempty"`
	Taken          bool       `json:"Taken"`
}

// Ledger is the exclusive owner of the dose record sequence and its
// persisted representation. Append and Clear rewrite the full snapshot, so
// all mutation runs under a single mutex.
type Ledger struct {
	mu      sync.Mutex
	records []DoseRecord
	store   *snapshotStore
	bus     *events.Bus
	log     zerolog.Logger
}

// New creates a ledger persisting to the given snapshot path. The event bus
// is optional; when nil, persistence failures are only logged.
func New(path string, bus *events.Bus, log zerolog.Logger) *Ledger {
	return &Ledger{
		store: newSnapshotStore(path),
		bus:   bus,
		log:   log.With().Str("component", "dose_ledger").Logger(),
	}
}

// Load reads the persisted snapshot. A missing file starts an empty history;
// so does a corrupted one - broken history must never block the kiosk from
// starting.
func (l *Ledger) Load() {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.store.read()
	if err != nil {
		l.log.Warn().Err(err).Str("path", l.store.path).Msg("Dose history unreadable, starting empty")
		l.records = nil
		return
	}

	l.records = records
	l.log.Info().Int("records", len(records)).Msg("Dose history loaded")
}

// Append records one confirmation decision and persists the full snapshot.
// NextDoseTime is computed as at + DoseInterval when taken. The in-memory
// append always succeeds; a persist failure is reported but never returned.
func (l *Ledger) Append(medication string, taken bool, at time.Time) DoseRecord {
	record := DoseRecord{
		MedicationName: medication,
		TimeTaken:      at,
		Taken:          taken,
	}
	if taken {
		next := at.Add(DoseInterval)
		record.NextDoseTime = &next
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = append(l.records, record)
	l.persistLocked()

	l.log.Info().
		Str("medication", medication).
		Bool("taken", taken).
		Time("time_taken", at).
		Msg("Dose recorded")

	return record
}

// Recent returns up to limit records, newest TimeTaken first.
func (l *Ledger) Recent(limit int) []DoseRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]DoseRecord, len(l.records))
	copy(out, l.records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TimeTaken.After(out[j].TimeTaken)
	})

	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// NextUpcoming returns the taken record with the smallest NextDoseTime
// strictly after now, or nil when no such record exists.
func (l *Ledger) NextUpcoming(now time.Time) *DoseRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	var best *DoseRecord
	for i := range l.records {
		r := l.records[i]
		if !r.Taken || r.NextDoseTime == nil || !r.NextDoseTime.After(now) {
			continue
		}
		if best == nil || r.NextDoseTime.Before(*best.NextDoseTime) {
			best = &l.records[i]
		}
	}

	if best == nil {
		return nil
	}
	out := *best
	return &out
}

// Len returns the number of records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Clear empties the history and persists the empty snapshot. Irreversible.
// Unlike Append this is an explicit operator action, so the persist error is
// returned for surfacing; the in-memory clear stands either way.
func (l *Ledger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil
	err := l.store.write(l.records)
	if err != nil {
		l.reportPersistError(err)
	}

	l.log.Info().Msg("Dose history cleared")
	return err
}

// Export writes a timestamped copy of the current snapshot next to the
// primary file, which is left untouched. Returns the path written.
func (l *Ledger) Export(now time.Time) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.export(l.records, now)
}

// persistLocked rewrites the snapshot; caller holds l.mu.
func (l *Ledger) persistLocked() {
	if err := l.store.write(l.records); err != nil {
		l.reportPersistError(err)
	}
}

func (l *Ledger) reportPersistError(err error) {
	l.log.Error().Err(err).Str("path", l.store.path).Msg("Failed to persist dose history")
	if l.bus != nil {
		l.bus.Publish(&events.ErrorData{
			Type:    events.PersistenceError,
			Source:  "dose_ledger",
			Message: err.Error(),
		})
	}
}

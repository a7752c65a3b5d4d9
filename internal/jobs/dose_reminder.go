// Package jobs contains the kiosk's scheduled background jobs.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
)

// DoseReminderJob watches the dosage ledger for taken doses whose next
// scheduled time has passed and surfaces a reminder on the display.
// Each dose is announced once; the job remembers what it already
// reminded about so the polling schedule does not repeat itself.
type DoseReminderJob struct {
	ledger *ledger.Ledger
	queue  *presentation.Queue
	bus    *events.Bus
	log    zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	notified map[string]struct{}
}

// NewDoseReminderJob creates a new dose reminder job.
func NewDoseReminderJob(l *ledger.Ledger, q *presentation.Queue, bus *events.Bus, log zerolog.Logger) *DoseReminderJob {
	return &DoseReminderJob{
		ledger:   l,
		queue:    q,
		bus:      bus,
		log:      log.With().Str("job", "dose_reminder").Logger(),
		now:      time.Now,
		notified: make(map[string]struct{}),
	}
}

// SetClock overrides the time source. Used in tests.
func (j *DoseReminderJob) SetClock(now func() time.Time) {
	j.now = now
}

// Name returns the job name.
func (j *DoseReminderJob) Name() string {
	return "dose_reminder"
}

// Run scans the ledger and announces every newly due dose.
func (j *DoseReminderJob) Run() error {
	now := j.now()

	j.mu.Lock()
	defer j.mu.Unlock()

	for _, rec := range j.ledger.Recent(-1) {
		if !rec.Taken || rec.NextDoseTime == nil {
			continue
		}
		if rec.NextDoseTime.After(now) {
			continue
		}

		key := rec.MedicationName + "|" + rec.NextDoseTime.UTC().Format(time.RFC3339)
		if _, seen := j.notified[key]; seen {
			continue
		}
		j.notified[key] = struct{}{}

		j.log.Info().
			Str("medication", rec.MedicationName).
			Time("next_dose_time", *rec.NextDoseTime).
			Msg("Dose reminder due")

		j.bus.Publish(&events.ReminderDueData{
			Medication:   rec.MedicationName,
			NextDoseTime: *rec.NextDoseTime,
		})

		text := fmt.Sprintf("Reminder: %s is due", rec.MedicationName)
		j.queue.Push(presentation.SetStatusText(text))
		j.queue.Push(presentation.AppendLogLine(text))
	}

	return nil
}

package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/reliability"
)

const backupTimeout = 5 * time.Minute

// BackupJob uploads a backup archive and rotates old ones. Failures are
// published on the event bus; the schedule retries on its own.
type BackupJob struct {
	service       *reliability.BackupService
	bus           *events.Bus
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job.
func NewBackupJob(service *reliability.BackupService, bus *events.Bus, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		bus:           bus,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "backup").Logger(),
	}
}

// Name returns the job name.
func (j *BackupJob) Name() string {
	return "backup"
}

// Run performs a backup and then rotation.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	info, err := j.service.CreateAndUpload(ctx)
	if err != nil {
		j.bus.Publish(&events.ErrorData{
			Type:    events.BackupFailed,
			Source:  "backup",
			Message: err.Error(),
		})
		return err
	}

	j.bus.Publish(&events.BackupData{
		Archive:   info.Filename,
		SizeBytes: info.SizeBytes,
	})

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Error().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

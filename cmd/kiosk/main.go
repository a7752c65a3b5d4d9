// Package main is the entry point for the medkiosk control core. It
// ingests touch events from the TUIO broadcaster, drives the medication
// selection workflow, maintains the dosage ledger, and serves the
// operator API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/medkiosk/internal/auditlog"
	"github.com/aristath/medkiosk/internal/client"
	"github.com/aristath/medkiosk/internal/config"
	"github.com/aristath/medkiosk/internal/database"
	"github.com/aristath/medkiosk/internal/events"
	"github.com/aristath/medkiosk/internal/jobs"
	"github.com/aristath/medkiosk/internal/ledger"
	"github.com/aristath/medkiosk/internal/presentation"
	"github.com/aristath/medkiosk/internal/protocol"
	"github.com/aristath/medkiosk/internal/reliability"
	"github.com/aristath/medkiosk/internal/scheduler"
	"github.com/aristath/medkiosk/internal/server"
	"github.com/aristath/medkiosk/internal/workflow"
	"github.com/aristath/medkiosk/pkg/logger"
)

const reminderSchedule = "@every 30s"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting medkiosk")

	bus := events.NewBus(log)

	// Dose ledger. A corrupted or missing snapshot starts empty; the
	// kiosk must come up regardless of what is on disk.
	doseLedger := ledger.New(cfg.HistoryPath(), bus, log)
	doseLedger.Load()
	log.Info().Int("records", doseLedger.Len()).Msg("Dose ledger loaded")

	// Audit database for raw protocol events.
	auditDB, err := database.New(database.Config{Path: cfg.AuditDBPath(), Name: "audit"})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open audit database")
	}
	defer auditDB.Close()

	audit := auditlog.NewRepository(auditDB.Conn())
	if err := audit.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize audit schema")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Directive queue feeding every attached display sink.
	queue := presentation.NewQueue(256, log)
	queue.Start(ctx)

	var renderSink *presentation.RenderSink
	if cfg.RendererURL != "" {
		renderSink = presentation.NewRenderSink(cfg.RendererURL, log)
		if cfg.RendererEnabled {
			renderSink.Enable()
		}
		queue.Attach(renderSink)
		log.Info().Str("url", cfg.RendererURL).Bool("enabled", cfg.RendererEnabled).Msg("Render sink attached")
	}

	controller := workflow.NewController(doseLedger, queue, bus, log)

	// Surface connection state on the display status line.
	bus.Subscribe(events.ConnectionEstablished, func(*events.Event) {
		queue.Push(presentation.SetStatusText("Connected"))
	})
	bus.Subscribe(events.ConnectionLost, func(*events.Event) {
		queue.Push(presentation.SetStatusText("Reconnecting..."))
	})

	// Record every raw line before the workflow sees it. Malformed lines
	// arrive via the decode error event instead of the handler.
	auditAppend := func(kind, line string) {
		if _, err := audit.Append(time.Now(), kind, line); err != nil {
			log.Error().Err(err).Msg("Failed to record audit event")
		}
	}
	bus.Subscribe(events.ProtocolDecodeError, func(e *events.Event) {
		if data, ok := e.Data.(*events.DecodeErrorData); ok {
			auditAppend("decode_error", data.Line)
		}
	})

	session := client.NewSession(cfg.BroadcasterAddr(), func(msg protocol.Message, line string) {
		kind := string(msg.Kind())
		if u, ok := msg.(protocol.Unknown); ok && u.RawType != "" {
			kind = u.RawType
		}
		auditAppend(kind, line)
		controller.HandleMessage(msg)
	}, bus, log)

	go session.Run(ctx)
	log.Info().Str("addr", cfg.BroadcasterAddr()).Msg("Broadcaster session started")

	// Background jobs: dose reminders, and off-device backups when
	// storage is configured.
	sched := scheduler.New(log)

	reminderJob := jobs.NewDoseReminderJob(doseLedger, queue, bus, log)
	if err := sched.AddJob(reminderSchedule, reminderJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register reminder job")
	}

	if cfg.Backup.Enabled {
		store, err := reliability.NewS3Store(ctx, reliability.S3Config{
			Endpoint:        cfg.Backup.Endpoint,
			Region:          cfg.Backup.Region,
			Bucket:          cfg.Backup.Bucket,
			AccessKeyID:     cfg.Backup.AccessKeyID,
			SecretAccessKey: cfg.Backup.SecretAccessKey,
			Prefix:          cfg.Backup.Prefix,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup store")
		}

		backupSvc := reliability.NewBackupService(store, cfg.DataDir,
			[]string{cfg.HistoryPath(), cfg.AuditDBPath()}, log)
		backupJob := jobs.NewBackupJob(backupSvc, bus, 30, log)
		if err := sched.AddJob(cfg.Backup.Schedule, backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}

	sched.Start()

	srv := server.New(server.Config{
		Log:        log,
		Port:       cfg.Port,
		DevMode:    cfg.DevMode,
		Ledger:     doseLedger,
		Controller: controller,
		Audit:      audit,
		Bus:        bus,
		Queue:      queue,
		RenderSink: renderSink,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()
	log.Info().Int("port", cfg.Port).Msg("Operator API started")

	queue.Push(presentation.SetMode("Idle"))
	queue.Push(presentation.ShowInstruction("Place the wheel on the table"))
	queue.Push(presentation.RefreshHistory(doseLedger.Recent(10), doseLedger.NextUpcoming(time.Now())))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop ingestion and the directive consumer first so nothing new
	// flows while the server drains.
	cancel()
	sched.Stop()
	queue.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Stopped")
}

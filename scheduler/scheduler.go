package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"broker_inbox/config"
	"broker_inbox/models"
	"broker_inbox/services"
	"broker_inbox/storage"
)

// Triggerable allows workers to be triggered manually
type Triggerable interface {
	Trigger()
}

// Reparser re-extracts every stored inquiry. *services.InquiryService
// satisfies it.
type Reparser interface {
	ReparseAll(ctx context.Context) (*services.ProcessStats, error)
}

// ListingSource loads listings for the CSV export. *storage.PostgresStore
// satisfies it.
type ListingSource interface {
	ListListings(ctx context.Context, q storage.ListingQuery) ([]models.StoredListing, error)
}

// Scheduler runs the cron export and services the operational command queue.
// Commands are written to SQLite by the CLI (or by hand) and picked up here,
// so one-off maintenance never needs the daemon restarted.
type Scheduler struct {
	cfg    *config.Config
	svc    Reparser
	pg     ListingSource
	ops    *storage.SQLiteStore
	cron   *cron.Cron
	stopCh chan struct{}

	mediaWorker      Triggerable
	enrichmentWorker Triggerable
}

func New(cfg *config.Config, svc Reparser, pg ListingSource, ops *storage.SQLiteStore) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		svc:    svc,
		pg:     pg,
		ops:    ops,
		cron:   cron.New(),
		stopCh: make(chan struct{}),
	}
}

// SetWorkers registers background workers for manual triggering
func (s *Scheduler) SetWorkers(media, enrichment Triggerable) {
	s.mediaWorker = media
	s.enrichmentWorker = enrichment
}

func (s *Scheduler) Start(ctx context.Context) error {
	go s.pollCommands(ctx)

	if s.cfg.Export.Cron != "" {
		log.Printf("Starting export schedule: %s", s.cfg.Export.Cron)
		_, err := s.cron.AddFunc(s.cfg.Export.Cron, func() {
			if err := s.runExport(ctx, s.cfg.Export.Path); err != nil {
				log.Printf("Scheduled export error: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
		s.cron.Start()
	} else {
		log.Println("No export schedule configured, exports run on command only")
	}

	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	close(s.stopCh)
}

func (s *Scheduler) pollCommands(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cmds, err := s.ops.GetPendingCommands()
			if err != nil {
				log.Printf("Error getting commands: %v", err)
				continue
			}

			for _, cmd := range cmds {
				log.Printf("Processing command: %s", cmd.Command)
				if err := s.handleCommand(ctx, &cmd); err != nil {
					log.Printf("Command error: %v", err)
				}
				if err := s.ops.MarkCommandProcessed(cmd.ID); err != nil {
					log.Printf("Error marking command processed: %v", err)
				}
			}
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) handleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdReparse:
		return s.runReparse(ctx)
	case models.CmdRunMedia:
		if s.mediaWorker != nil {
			s.mediaWorker.Trigger()
			log.Println("Media worker triggered via command")
		}
		return nil
	case models.CmdRunEnrichment:
		if s.enrichmentWorker != nil {
			s.enrichmentWorker.Trigger()
			log.Println("Enrichment worker triggered via command")
		}
		return nil
	case models.CmdExport:
		path := s.cfg.Export.Path
		if len(cmd.Params) > 0 {
			var params models.CommandParams
			if err := json.Unmarshal(cmd.Params, &params); err != nil {
				return fmt.Errorf("parse export params: %w", err)
			}
			if params.Path != "" {
				path = params.Path
			}
		}
		return s.runExport(ctx, path)
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
}

// runReparse re-extracts every stored inquiry, recorded as an import run so
// the pass shows up in operational history.
func (s *Scheduler) runReparse(ctx context.Context) error {
	run := &models.ImportRun{
		Source:    "reparse",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := s.ops.CreateRun(run)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	stats, err := s.svc.ReparseAll(ctx)
	if err != nil {
		run.Status = models.RunStatusFailed
		s.ops.AddLog(&runID, models.LogLevelError, err.Error())
		s.ops.FinishRun(run)
		return fmt.Errorf("reparse: %w", err)
	}

	run.Status = models.RunStatusCompleted
	run.MessagesSeen = stats.MessagesSeen
	run.ListingsNew = stats.InquiriesNew
	run.ListingsSaved = stats.ListingsSaved
	run.ErrorsCount = stats.Errors
	if err := s.ops.FinishRun(run); err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	log.Printf("Reparse complete: %d messages, %d listings saved, %d errors",
		stats.MessagesSeen, stats.ListingsSaved, stats.Errors)
	return nil
}

func (s *Scheduler) runExport(ctx context.Context, path string) error {
	listings, err := s.pg.ListListings(ctx, storage.ListingQuery{SortField: "timestamp"})
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	if err := storage.ExportListingsCSV(path, listings); err != nil {
		return err
	}

	log.Printf("Exported %d listings to %s", len(listings), path)
	return nil
}

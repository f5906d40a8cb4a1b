package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"broker_inbox/config"
	"broker_inbox/extract"
	"broker_inbox/httputil"
	"broker_inbox/logging"
	"broker_inbox/models"
	"broker_inbox/scheduler"
	"broker_inbox/services"
	"broker_inbox/storage"
	"broker_inbox/webhook"
	"broker_inbox/workers"
)

var (
	importFile = flag.String("import", "", "Import a chat export file once and exit")
	reparseNow = flag.Bool("reparse", false, "Re-extract all stored inquiries once and exit")
	exportNow  = flag.Bool("export", false, "Export listings to CSV once and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting broker_inbox...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	pgStore, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer pgStore.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open SQLite: %v", err)
	}
	defer sqliteStore.Close()
	log.Printf("SQLite database: %s", cfg.DBPath)

	parser := extract.New(cfg.Vocab)
	inquiryService := services.NewInquiryService(pgStore, parser)
	log.Printf("Extractor ready (%d amenities, %d conditions, %d localities)",
		len(cfg.Vocab.Amenities), len(cfg.Vocab.Conditions), len(cfg.Vocab.Localities))

	// One-shot modes
	if *importFile != "" {
		runImport(ctx, inquiryService, sqliteStore, *importFile)
		return
	}
	if *reparseNow {
		if err := sqliteStore.EnqueueCommand(models.CmdReparse, nil); err != nil {
			log.Fatalf("Failed to enqueue reparse: %v", err)
		}
		log.Println("Reparse command queued")
		return
	}
	if *exportNow {
		if err := sqliteStore.EnqueueCommand(models.CmdExport, nil); err != nil {
			log.Fatalf("Failed to enqueue export: %v", err)
		}
		log.Println("Export command queued")
		return
	}

	// Daemon mode
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	clients := httputil.NewClients(cfg.Enrichment.Timeout)

	sched := scheduler.New(cfg, inquiryService, pgStore, sqliteStore)

	var enrichmentWorker *workers.EnrichmentWorker
	if cfg.Enrichment.URL != "" {
		extractor := workers.NewHTTPExtractor(clients.Enrichment, cfg.Enrichment.URL, cfg.Enrichment.APIKey)
		enrichmentWorker = workers.NewEnrichmentWorker(pgStore, extractor, cfg.Enrichment.Batch)
		go enrichmentWorker.Run(ctx, cfg.Enrichment.Interval)
		log.Println("Enrichment worker started")
	} else {
		log.Println("No enrichment endpoint configured, worker disabled")
	}

	var uploader workers.Uploader
	if cfg.Archive.Bucket != "" {
		archiver, err := storage.NewS3Archiver(ctx, storage.S3Config{
			Bucket:          cfg.Archive.Bucket,
			Region:          cfg.Archive.Region,
			Endpoint:        cfg.Archive.Endpoint,
			AccessKeyID:     cfg.Archive.AccessKeyID,
			SecretAccessKey: cfg.Archive.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to initialize archive storage: %v", err)
		}
		uploader = archiver
		log.Printf("Media archive: s3://%s", cfg.Archive.Bucket)
	} else {
		log.Println("No archive bucket configured, media stays at provider URLs")
	}

	mediaWorker := workers.NewMediaWorker(pgStore, clients.Media, uploader)
	go mediaWorker.Run(ctx, 20, 2*time.Minute)
	log.Println("Media worker started")

	if enrichmentWorker != nil {
		sched.SetWorkers(mediaWorker, enrichmentWorker)
	} else {
		sched.SetWorkers(mediaWorker, nil)
	}

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	server := webhook.NewServer(cfg.ListenAddr, inquiryService, pgStore, sqliteStore, cfg.Webhook.ChannelPrefix)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatalf("Webhook server failed: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: server shutdown: %v", err)
	}
	sched.Stop()
	cancel()
	log.Println("Goodbye!")
}

// runImport processes a chat export file, recorded as an import run
func runImport(ctx context.Context, svc *services.InquiryService, ops *storage.SQLiteStore, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read export file: %v", err)
	}

	run := &models.ImportRun{
		Source:    "chat_export",
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := ops.CreateRun(run)
	if err != nil {
		log.Fatalf("Failed to record run: %v", err)
	}
	run.ID = runID

	log.Printf("Importing %s...", path)
	stats, err := svc.ImportChatExport(ctx, string(data))
	if err != nil {
		run.Status = models.RunStatusFailed
		ops.AddLog(&runID, models.LogLevelError, err.Error())
		ops.FinishRun(run)
		log.Fatalf("Import failed: %v", err)
	}

	run.Status = models.RunStatusCompleted
	run.MessagesSeen = stats.MessagesSeen
	run.ListingsNew = stats.InquiriesNew
	run.ListingsSaved = stats.ListingsSaved
	run.ErrorsCount = stats.Errors
	if err := ops.FinishRun(run); err != nil {
		log.Printf("Warning: failed to finish run record: %v", err)
	}

	log.Printf("Import complete: %d messages, %d new, %d listings saved, %d errors",
		stats.MessagesSeen, stats.InquiriesNew, stats.ListingsSaved, stats.Errors)
}

// maskConnectionString masks password in connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"propveris/internal/config"
	"propveris/internal/extractor"
	"propveris/internal/extractor/layoutlm"
	"propveris/internal/extractor/vision"
	"propveris/internal/handler"
	"propveris/internal/pipeline"
	"propveris/internal/port"
	"propveris/internal/reasoner"
	"propveris/internal/reasoner/ollama"
	"propveris/internal/reasoner/openai"
	"propveris/internal/report"
	"propveris/internal/repository/postgres"
	"propveris/internal/router"
	"propveris/internal/service"
	s3storage "propveris/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func registerProviders() {
	extractor.RegisterProvider("layoutlm", func(cfg *config.ExtractorConfig) (port.FieldExtractor, error) {
		return layoutlm.NewClient(cfg), nil
	})
	extractor.RegisterProvider("vision", func(cfg *config.ExtractorConfig) (port.FieldExtractor, error) {
		return vision.NewClient(cfg), nil
	})
	reasoner.RegisterProvider("ollama", func(cfg *config.ReasonerProviderConfig) (port.ReasoningBackend, error) {
		return ollama.NewClient(cfg), nil
	})
	reasoner.RegisterProvider("openai", func(cfg *config.ReasonerProviderConfig) (port.ReasoningBackend, error) {
		return openai.NewClient(cfg), nil
	})
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	registerProviders()

	// Database is optional: without it the server runs stateless and
	// only the synchronous /verify endpoint does useful work.
	var db *sqlx.DB
	if cfg.DB.Host != "" {
		db, err = postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
	}

	fieldExtractor, err := extractor.NewExtractor(&cfg.Extract)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	backend, err := buildReasoningBackend(&cfg.Reasoner)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoning backend: %w", err)
	}
	engine := reasoner.NewEngine(backend)

	pipe := pipeline.New(fieldExtractor, engine,
		time.Duration(cfg.Pipeline.RequestTimeoutSecs)*time.Second)

	// Storage and repository
	var storage port.ObjectStorage
	var verificationRepo port.VerificationRepository
	if db != nil {
		storage, err = s3storage.NewS3Client(&cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		verificationRepo = postgres.NewVerificationRepo(db)
	}

	verificationSvc := service.NewVerificationService(pipe, verificationRepo, storage, &cfg.S3)

	// Handlers
	verificationH := handler.NewVerificationHandler(verificationSvc)
	healthH := handler.NewHealthHandler(db)
	var reportH *handler.ReportHandler
	if verificationRepo != nil {
		reportH = handler.NewReportHandler(report.NewService(verificationRepo))
	}

	r := router.Setup(cfg, verificationH, reportH, healthH)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Queue worker for asynchronously submitted verifications
	workerDone := make(chan struct{})
	if verificationRepo != nil {
		worker := service.NewQueueWorker(verificationRepo, verificationSvc, &cfg.Queue, &cfg.Pipeline)
		go func() {
			defer close(workerDone)
			worker.Start(ctx)
		}()
	} else {
		close(workerDone)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	<-workerDone

	return nil
}

// buildReasoningBackend wires the primary backend, wrapped with the
// secondary in a fallback chain when one is configured.
func buildReasoningBackend(cfg *config.ReasonerConfig) (port.ReasoningBackend, error) {
	primary, err := reasoner.NewBackend(&cfg.Primary)
	if err != nil {
		return nil, err
	}

	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := reasoner.NewBackend(secondaryCfg)
	if err != nil {
		return nil, err
	}
	return reasoner.NewFallbackBackend(
		[]port.ReasoningBackend{primary, secondary},
		[]string{cfg.Primary.Provider, secondaryCfg.Provider},
	), nil
}

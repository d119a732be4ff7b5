package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"propveris/internal/config"
	"propveris/internal/port"
)

// QueueWorker polls for queued verifications and runs them through the
// pipeline on a bounded goroutine pool.
type QueueWorker struct {
	repo           port.VerificationRepository
	svc            VerificationService
	pollInterval   time.Duration
	maxRetries     int
	concurrency    int
	requestTimeout time.Duration
}

// NewQueueWorker creates a queue worker from the queue and pipeline
// configuration.
func NewQueueWorker(
	repo port.VerificationRepository,
	svc VerificationService,
	queueCfg *config.QueueConfig,
	pipelineCfg *config.PipelineConfig,
) *QueueWorker {
	return &QueueWorker{
		repo:           repo,
		svc:            svc,
		pollInterval:   time.Duration(queueCfg.PollIntervalSecs) * time.Second,
		maxRetries:     queueCfg.MaxRetries,
		concurrency:    queueCfg.Concurrency,
		requestTimeout: time.Duration(pipelineCfg.RequestTimeoutSecs) * time.Second,
	}
}

// Start runs the polling loop until ctx is cancelled, then drains
// in-flight jobs before returning.
func (w *QueueWorker) Start(ctx context.Context) {
	pool, err := ants.NewPool(w.concurrency)
	if err != nil {
		log.Printf("queueWorker: failed to create pool: %v", err)
		return
	}
	defer pool.Release()

	log.Printf("queueWorker: started (poll=%s, concurrency=%d)", w.pollInterval, w.concurrency)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Printf("queueWorker: shutting down, draining in-flight jobs")
			wg.Wait()
			return
		case <-ticker.C:
			w.poll(ctx, pool, &wg)
		}
	}
}

func (w *QueueWorker) poll(ctx context.Context, pool *ants.Pool, wg *sync.WaitGroup) {
	free := pool.Free()
	if free <= 0 {
		return
	}

	claimed, err := w.repo.ClaimQueued(ctx, free)
	if err != nil {
		log.Printf("queueWorker: failed to claim queued verifications: %v", err)
		return
	}
	if len(claimed) == 0 {
		return
	}
	log.Printf("queueWorker: claimed %d verification(s)", len(claimed))

	for i := range claimed {
		v := claimed[i]
		wg.Add(1)
		err := pool.Submit(func() {
			defer wg.Done()
			// Each job gets its own deadline, detached from the polling
			// context so a shutdown drains instead of cancelling work.
			jobCtx, cancel := context.WithTimeout(context.Background(), w.requestTimeout)
			defer cancel()
			w.svc.ProcessVerification(jobCtx, &v, w.maxRetries)
		})
		if err != nil {
			wg.Done()
			log.Printf("queueWorker: failed to dispatch verification %s: %v", v.ID, err)
		}
	}
}

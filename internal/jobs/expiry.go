package jobs

import (
	"context"
	"time"

	"github.com/quillsign/quillsign-backend/internal/logger"
	"github.com/quillsign/quillsign-backend/internal/repos"
	"github.com/quillsign/quillsign-backend/internal/services"
)

// ExpiryWorker sweeps envelopes whose expiry deadline passed while still in
// flight and moves them to EXPIRED through the service layer, so the same
// conditional-write discipline applies as everywhere else.
type ExpiryWorker struct {
	log       *logger.Logger
	envRepo   repos.EnvelopeRepo
	envelopes services.EnvelopeService
	interval  time.Duration
	batchSize int
}

func NewExpiryWorker(baseLog *logger.Logger, envRepo repos.EnvelopeRepo, envelopes services.EnvelopeService, interval time.Duration, batchSize int) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ExpiryWorker{
		log:       baseLog.With("component", "ExpiryWorker"),
		envRepo:   envRepo,
		envelopes: envelopes,
		interval:  interval,
		batchSize: batchSize,
	}
}

func (w *ExpiryWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	rows, err := w.envRepo.ListExpired(ctx, nil, time.Now().UTC(), w.batchSize)
	if err != nil {
		w.log.Warn("expired envelope scan failed", "error", err)
		return
	}
	for _, row := range rows {
		if _, err := w.envelopes.MarkExpired(ctx, row.ID); err != nil {
			// Conflicts just mean another invocation got there first.
			w.log.Warn("mark expired failed", "envelope_id", row.ID, "error", err)
			continue
		}
		w.log.Info("envelope expired", "envelope_id", row.ID)
	}
}

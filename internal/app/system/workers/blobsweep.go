// internal/app/system/workers/blobsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// BlobLister lists and deletes stored attachment blobs.
type BlobLister interface {
	ListIDsBefore(ctx context.Context, t time.Time) ([]primitive.ObjectID, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// ReferenceSource reports the blob ids its records point at.
type ReferenceSource interface {
	ReferencedAttachmentIDs(ctx context.Context) (map[primitive.ObjectID]struct{}, error)
}

// BlobSweep is a background worker that deletes attachment blobs no
// applicant record references. Blobs younger than grace are left alone so a
// registration in flight never loses its uploads.
type BlobSweep struct {
	blobs    BlobLister
	sources  []ReferenceSource
	log      *zap.Logger
	interval time.Duration
	grace    time.Duration
	timeout  time.Duration
	onSwept  func(int)
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewBlobSweep creates a sweep worker.
//
// Parameters:
//   - blobs: the attachment store
//   - sources: every store whose records may reference blobs (pending and registry)
//   - logger: zap logger for logging
//   - interval: how often to run (e.g., 1 hour)
//   - grace: minimum blob age before it may be deleted (e.g., 1 hour)
func NewBlobSweep(blobs BlobLister, sources []ReferenceSource, logger *zap.Logger, interval, grace time.Duration) *BlobSweep {
	return &BlobSweep{
		blobs:    blobs,
		sources:  sources,
		log:      logger,
		interval: interval,
		grace:    grace,
		timeout:  5 * time.Minute,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// OnSwept registers a callback receiving the number of blobs deleted per run.
func (w *BlobSweep) OnSwept(fn func(int)) {
	w.onSwept = fn
}

// Start begins the background sweep loop.
func (w *BlobSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("blob sweep worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("grace", w.grace))
}

// Stop signals the worker to stop and waits for it to finish.
// Safe to call more than once.
func (w *BlobSweep) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("blob sweep worker stopped")
	})
}

func (w *BlobSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			if _, err := w.Sweep(ctx); err != nil {
				w.log.Error("blob sweep failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep runs one pass and returns the number of blobs deleted.
// A failed delete is logged and skipped; the blob is retried next pass.
func (w *BlobSweep) Sweep(ctx context.Context) (int, error) {
	candidates, err := w.blobs.ListIDsBefore(ctx, w.now().Add(-w.grace))
	if err != nil {
		return 0, err
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	referenced := make(map[primitive.ObjectID]struct{})
	for _, src := range w.sources {
		ids, err := src.ReferencedAttachmentIDs(ctx)
		if err != nil {
			return 0, err
		}
		for id := range ids {
			referenced[id] = struct{}{}
		}
	}

	deleted := 0
	for _, id := range candidates {
		if _, ok := referenced[id]; ok {
			continue
		}
		if err := w.blobs.Delete(ctx, id); err != nil {
			w.log.Warn("failed to delete orphaned blob", zap.String("blob_id", id.Hex()), zap.Error(err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		w.log.Info("deleted orphaned blobs", zap.Int("count", deleted))
	}
	if w.onSwept != nil {
		w.onSwept(deleted)
	}
	return deleted, nil
}

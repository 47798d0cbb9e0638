package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"job-marketplace-backend/internal/domain"
	"job-marketplace-backend/pkg/logger"
)

const defaultReconcileBatch = 200

type reconcileUsecase struct {
	jobRepo   domain.JobRepository
	index     domain.SearchIndex
	batchSize int
	now       func() time.Time

	mu sync.Mutex // one sweep at a time
}

func NewReconcileUsecase(jobRepo domain.JobRepository, index domain.SearchIndex, batchSize int) domain.ReconcileUsecase {
	if batchSize < 1 {
		batchSize = defaultReconcileBatch
	}
	return &reconcileUsecase{
		jobRepo:   jobRepo,
		index:     index,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run re-indexes every job from the store and removes index documents whose
// job no longer exists. It bridges events lost to publish failures or dead
// letters. Individual document failures are counted, not fatal.
func (u *reconcileUsecase) Run(ctx context.Context) (domain.ReconcileReport, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	var report domain.ReconcileReport
	started := u.now()
	live := make(map[string]struct{})

	for offset := 0; ; offset += u.batchSize {
		jobs, err := u.jobRepo.FetchAll(ctx, u.batchSize, offset)
		if err != nil {
			return report, fmt.Errorf("reconcile: fetch jobs at offset %d: %w", offset, err)
		}
		for i := range jobs {
			job := &jobs[i]
			live[job.ID] = struct{}{}
			err := u.index.Upsert(ctx, domain.NewSearchDocument(job), domain.DocumentVersion(job.UpdatedAt))
			switch {
			case err == nil:
				report.Indexed++
			case errors.Is(err, domain.ErrStaleDocument):
				// A newer event already landed while the sweep ran.
			default:
				report.Failed++
				logger.Log.Warn("Reconcile upsert failed", "job_id", job.ID, "error", err)
			}
		}
		if len(jobs) < u.batchSize {
			break
		}
	}

	ids, err := u.index.IDs(ctx)
	if err != nil {
		return report, fmt.Errorf("reconcile: list index ids: %w", err)
	}
	for _, id := range ids {
		if _, ok := live[id]; ok {
			continue
		}
		// The job may have been created after the store scan; only remove
		// documents the store confirms are gone.
		if _, err := u.jobRepo.GetByID(ctx, id); !errors.Is(err, domain.ErrNotFound) {
			continue
		}
		err := u.index.Delete(ctx, id, domain.DocumentVersion(u.now()))
		switch {
		case err == nil:
			report.Removed++
		case errors.Is(err, domain.ErrStaleDocument):
		default:
			report.Failed++
			logger.Log.Warn("Reconcile delete failed", "job_id", id, "error", err)
		}
	}

	logger.Log.Info("Reconciliation sweep complete",
		"indexed", report.Indexed, "removed", report.Removed, "failed", report.Failed,
		"duration", time.Since(started).String())
	return report, nil
}

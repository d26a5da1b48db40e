package services

import (
	"context"
	"fmt"

	"github.com/SamSjosten/FitChallenge-sub003/internal/constants"
	"github.com/SamSjosten/FitChallenge-sub003/internal/db/repositories"
	"github.com/SamSjosten/FitChallenge-sub003/internal/logging"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/dtos"
	"github.com/SamSjosten/FitChallenge-sub003/internal/models/gorm"
)

// RecordStore is the insert-or-skip operation the persister writes through
type RecordStore interface {
	InsertRecordsBatch(ctx context.Context, records []gorm.ActivityRecord) (*repositories.BatchInsertResult, error)
}

// PersistResult aggregates every batch of one persist call
type PersistResult struct {
	Inserted       int
	Deduplicated   int
	TotalProcessed int
	Batches        int
	Errors         []dtos.BatchError
}

// BatchPersister submits records in fixed-size batches, in order.
// A failed batch becomes one error entry and the next batch still runs. No retries.
type BatchPersister struct {
	store     RecordStore
	batchSize int
}

func NewBatchPersister(store RecordStore, batchSize int) *BatchPersister {
	if batchSize <= 0 {
		batchSize = constants.DefaultBatchSize
	}
	return &BatchPersister{store: store, batchSize: batchSize}
}

func (p *BatchPersister) Persist(ctx context.Context, records []gorm.ActivityRecord) PersistResult {
	var result PersistResult
	total := (len(records) + p.batchSize - 1) / p.batchSize

	for start := 0; start < len(records); start += p.batchSize {
		end := start + p.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]
		result.Batches++

		res, err := p.store.InsertRecordsBatch(ctx, batch)
		if err != nil {
			logging.Warn("Record batch failed, continuing with next batch",
				"batch", result.Batches,
				"batches", total,
				"size", len(batch),
				"error", err,
			)
			result.TotalProcessed += len(batch)
			result.Errors = append(result.Errors, dtos.BatchError{
				Message: fmt.Sprintf("batch %d of %d failed: %v", result.Batches, total, err),
			})
			continue
		}

		result.Inserted += res.Inserted
		result.Deduplicated += res.Deduplicated
		result.TotalProcessed += res.TotalProcessed
		result.Errors = append(result.Errors, res.Errors...)
	}

	return result
}

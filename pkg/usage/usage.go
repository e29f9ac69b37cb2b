// Package usage accounts per-business object storage consumption.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/youssef3092004/Spacefy/pkg/async"
	"github.com/youssef3092004/Spacefy/pkg/observability"
)

// ObjectUsageSource reports storage consumption for one business
type ObjectUsageSource interface {
	UsageForBusiness(ctx context.Context, businessID string) (bytes int64, objects int, err error)
}

// Record is one business's accounted usage
type Record struct {
	BusinessID  string    `json:"businessId"`
	BytesUsed   int64     `json:"bytesUsed"`
	ObjectCount int       `json:"objectCount"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Reporter recalculates usage for every business and persists it. The
// recalculation fans out over a worker pool since each business costs a
// bucket listing.
type Reporter struct {
	db      *sql.DB
	source  ObjectUsageSource
	logger  *observability.Logger
	metrics *observability.Metrics
	workers int
}

// NewReporter creates a reporter
func NewReporter(db *sql.DB, source ObjectUsageSource, logger *observability.Logger, metrics *observability.Metrics, workers int) *Reporter {
	if workers < 1 {
		workers = 4
	}
	return &Reporter{db: db, source: source, logger: logger, metrics: metrics, workers: workers}
}

// Run recalculates usage for all businesses and returns how many were
// updated. Failures on individual businesses are logged and skipped.
func (r *Reporter) Run(ctx context.Context) (int, error) {
	ids, err := r.businessIDs(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pool := async.NewWorkerPool(r.workers, len(ids), r.logger)
	defer pool.Stop()

	var mu sync.Mutex
	updated := 0
	var wg sync.WaitGroup

	for _, id := range ids {
		businessID := id
		wg.Add(1)
		ok := pool.Submit(func(taskCtx context.Context) {
			defer wg.Done()
			if err := r.recalc(ctx, businessID); err != nil {
				r.logger.WithError(err).WithField("business_id", businessID).
					Warn("usage recalculation failed for business")
				return
			}
			mu.Lock()
			updated++
			mu.Unlock()
		})
		if !ok {
			wg.Done()
		}
	}
	wg.Wait()

	return updated, nil
}

func (r *Reporter) recalc(ctx context.Context, businessID string) error {
	bytes, objects, err := r.source.UsageForBusiness(ctx, businessID)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO storage_usage (business_id, bytes_used, object_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (business_id) DO UPDATE SET bytes_used = $2, object_count = $3, updated_at = $4`,
		businessID, bytes, objects, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to persist usage for %s: %w", businessID, err)
	}

	if r.metrics != nil {
		r.metrics.StorageUsageBytes.WithLabelValues(businessID).Set(float64(bytes))
	}
	return nil
}

func (r *Reporter) businessIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM businesses`)
	if err != nil {
		return nil, fmt.Errorf("failed to list businesses: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan business id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Get returns the accounted usage for a business
func Get(ctx context.Context, db *sql.DB, businessID string) (*Record, error) {
	var rec Record
	err := db.QueryRowContext(ctx, `
		SELECT business_id, bytes_used, object_count, updated_at
		FROM storage_usage WHERE business_id = $1`, businessID).
		Scan(&rec.BusinessID, &rec.BytesUsed, &rec.ObjectCount, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return &Record{BusinessID: businessID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return &rec, nil
}

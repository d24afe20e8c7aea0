// Package maintenance runs the recurring cleanup jobs: abandoned two-factor
// enrollments and long-deactivated products.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rautatech/catalog/internal/models"
	"github.com/rautatech/catalog/internal/services"
	"github.com/rautatech/catalog/pkg/logger"
)

const (
	defaultRetentionDays = 30
	defaultSchedule      = "@daily"
)

// Cleaner coordinates background maintenance: pending two-factor secrets
// that were never confirmed are purged, and products deactivated longer
// than the retention window are hard-deleted.
type Cleaner struct {
	db       *gorm.DB
	products *services.ProductService
	cron     *cron.Cron
	now      func() time.Time
	log      *zap.Logger

	schedule  string
	retention int
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithNow overrides the clock used for cleanup comparisons.
func WithNow(now func() time.Time) Option {
	return func(cleaner *Cleaner) {
		if now != nil {
			cleaner.now = now
		}
	}
}

// WithSchedule overrides the cron specification for the cleanup job.
func WithSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.schedule = spec
		}
	}
}

// WithRetentionDays adjusts the retention window for both cleanup jobs.
func WithRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(db *gorm.DB, products *services.ProductService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		db:        db,
		products:  products,
		now:       time.Now,
		schedule:  defaultSchedule,
		retention: defaultRetentionDays,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.db == nil && c.products == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		if err := c.RunOnce(context.Background()); err != nil {
			c.log.Warn("cleanup failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Also used during
// graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cutoff := c.now().Add(-time.Duration(c.retention) * 24 * time.Hour).UTC()

	var errs error

	if c.db != nil {
		purged, err := CleanupPendingCredentials(ctx, c.db, cutoff)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged pending two-factor credentials", zap.Int64("count", purged))
		}
	}

	if c.products != nil {
		purged, err := c.products.PurgeDeactivated(ctx, cutoff)
		if err != nil {
			errs = multierr.Append(errs, err)
		} else if purged > 0 {
			c.log.Info("purged deactivated products", zap.Int64("count", purged))
		}
	}

	return errs
}

// CleanupPendingCredentials removes two-factor credentials that were
// generated but never confirmed before the cutoff. Enabled credentials are
// never touched.
func CleanupPendingCredentials(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, errors.New("cleanup credentials: db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	result := db.WithContext(ctx).
		Where("enabled = ? AND updated_at < ?", false, cutoff).
		Delete(&models.TwoFactorCredential{})
	if result.Error != nil {
		return 0, fmt.Errorf("cleanup credentials: %w", result.Error)
	}

	return result.RowsAffected, nil
}

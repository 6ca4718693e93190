package worker

// overdue_cron.go
// Background goroutine that periodically sweeps unpaid invoices whose due
// date passed and marks them overdue. The overdue state is derived, never set
// by a caller; payment recomputation folds it back to partial/paid as money
// arrives. A redis key per invoice dedups the reminder notification so a
// sweep restart does not spam submitters.

import (
	"context"
	"fmt"
	"time"

	"paylog/internal/model"
	"paylog/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	overdueSweepBatchSize = 50
	overdueNotifiedTTL    = 7 * 24 * time.Hour
)

// OverdueCronConfig holds all dependencies for the sweep goroutine.
type OverdueCronConfig struct {
	InvoiceRepo repository.InvoiceRepository
	RDB         *redis.Client
	Dispatcher  *Dispatcher
	Interval    time.Duration
}

// StartOverdueCron launches a background goroutine that ticks on the
// configured interval and sweeps due invoices. It respects the context for
// graceful shutdown.
func StartOverdueCron(ctx context.Context, cfg OverdueCronConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		log.Info().Dur("interval", cfg.Interval).Msg("overdue_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("overdue_cron: shutting down")
				return
			case <-ticker.C:
				sweepOverdue(ctx, cfg)
			}
		}
	}()
}

func sweepOverdue(ctx context.Context, cfg OverdueCronConfig) {
	now := time.Now()
	candidates, err := cfg.InvoiceRepo.ListOverdueCandidates(ctx, now, overdueSweepBatchSize)
	if err != nil {
		log.Error().Err(err).Msg("overdue_cron: failed to query candidates")
		return
	}
	if len(candidates) == 0 {
		return
	}

	log.Info().Int("count", len(candidates)).Msg("overdue_cron: processing due invoices")

	for i := range candidates {
		id := candidates[i].ID

		// Re-check under the row lock: a payment or hold may have landed
		// between the candidate query and this item.
		marked := false
		txErr := cfg.InvoiceRepo.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			inv, err := cfg.InvoiceRepo.FindByIDForUpdateTx(tx, id)
			if err != nil {
				return err
			}
			if inv.Status != model.StatusUnpaid || inv.DueDate == nil || !inv.DueDate.Before(now) {
				return nil
			}
			inv.Status = model.StatusOverdue
			marked = true
			return cfg.InvoiceRepo.UpdateTx(tx, inv)
		})
		if txErr != nil {
			log.Warn().Err(txErr).Uint("invoice_id", id).Msg("overdue_cron: failed to mark invoice")
			continue
		}
		if !marked {
			continue
		}

		// Reminder notification, deduped per invoice.
		dedupKey := fmt.Sprintf("overdue:notified:%d", id)
		ok, err := cfg.RDB.SetNX(ctx, dedupKey, 1, overdueNotifiedTTL).Result()
		if err != nil || !ok {
			continue
		}
		payload := NotificationJobPayload{
			Event:     EventInvoiceOverdue,
			InvoiceID: id,
			Status:    model.StatusOverdue,
		}
		if err := cfg.Dispatcher.EnqueueNotification(ctx, payload); err != nil {
			log.Warn().Err(err).Uint("invoice_id", id).Msg("overdue_cron: failed to enqueue reminder")
		}
	}
}

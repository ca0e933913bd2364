package scheduler

import (
	"context"

	"campus_marketplace/platform/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const defaultTrendingWarmSchedule = "*/10 * * * *"

// TrendingCache recomputes cached trending lists.
type TrendingCache interface {
	TenantsToWarm(ctx context.Context) ([]uuid.UUID, error)
	WarmTrending(ctx context.Context, tenantID uuid.UUID) error
}

// TrendingWarmer refreshes the trending cache of every active tenant on a
// cron schedule.
type TrendingWarmer struct {
	target   TrendingCache
	schedule string
	log      *logger.Logger
}

func NewTrendingWarmer(target TrendingCache, schedule string, log *logger.Logger) *TrendingWarmer {
	if schedule == "" {
		schedule = defaultTrendingWarmSchedule
	}
	return &TrendingWarmer{target: target, schedule: schedule, log: log}
}

// Run warms once, then on every schedule tick until ctx is done.
func (w *TrendingWarmer) Run(ctx context.Context) error {
	if w == nil || w.target == nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(w.schedule, func() { w.Warm(ctx) }); err != nil {
		return err
	}

	w.Warm(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Warm refreshes every tenant and returns how many succeeded.
func (w *TrendingWarmer) Warm(ctx context.Context) int {
	tenants, err := w.target.TenantsToWarm(ctx)
	if err != nil {
		w.log.Warn("trending warm: list tenants failed", "error", err)
		return 0
	}

	warmed := 0
	for _, tenantID := range tenants {
		if ctx.Err() != nil {
			break
		}
		if err := w.target.WarmTrending(ctx, tenantID); err != nil {
			w.log.Warn("trending warm failed", "tenantId", tenantID, "error", err)
			continue
		}
		warmed++
	}

	if warmed > 0 {
		w.log.Info("trending cache warmed", "tenants", warmed)
	}
	return warmed
}

package scheduler

import (
	"context"
	"time"

	"futurebot/internal/paper"
)

// PriceSyncJob re-marks open paper positions at the latest market prices
type PriceSyncJob struct {
	engine  *paper.Engine
	timeout time.Duration
}

func NewPriceSyncJob(engine *paper.Engine) *PriceSyncJob {
	return &PriceSyncJob{
		engine:  engine,
		timeout: 30 * time.Second,
	}
}

func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

func (j *PriceSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	j.engine.RefreshPrices(ctx)
	return nil
}

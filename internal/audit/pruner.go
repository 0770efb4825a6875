package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PrunerConfig controls how often old events are dropped and how long they
// are kept.
type PrunerConfig struct {
	Interval  time.Duration
	Retention time.Duration
}

// Pruner drops audit events past the retention window on a schedule.
type Pruner struct {
	store  *Store
	cfg    PrunerConfig
	cron   *cron.Cron
	logger *zap.Logger
}

func NewPruner(store *Store, cfg PrunerConfig, logger *zap.Logger) *Pruner {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Pruner{
		store:  store,
		cfg:    cfg,
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = p.cron.AddFunc(schedule, p.run)

	return p
}

// Start launches the cron scheduler.
func (p *Pruner) Start() {
	if p == nil || p.cron == nil {
		return
	}
	p.cron.Start()
	p.logger.Info("audit pruner started")
}

// Stop gracefully stops the scheduler.
func (p *Pruner) Stop(ctx context.Context) {
	if p == nil || p.cron == nil {
		return
	}
	stopCtx := p.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	p.logger.Info("audit pruner stopped")
}

func (p *Pruner) run() {
	removed, err := p.store.Prune(time.Now().Add(-p.cfg.Retention))
	if err != nil {
		p.logger.Error("audit prune failed", zap.Error(err))
		return
	}
	if removed > 0 {
		p.logger.Info("audit events pruned", zap.Int("removed", removed))
	}
}

package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/config"
)

// Checker periodically snapshots the collector and sends alerts. An alert
// type that was delivered is held back until its cooldown expires.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	lastSent map[AlertType]time.Time
	now      func() time.Time
}

// NewChecker wires a collector to an alerter.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		lastSent:  make(map[AlertType]time.Time),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_mins", c.lookback()),
		zap.Duration("cooldown", c.cooldown()),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) lookback() int {
	if c.cfg.LookbackWindowMins <= 0 {
		return 60
	}
	return c.cfg.LookbackWindowMins
}

// cooldown defaults to the lookback window, so one sustained breach pages
// once per window.
func (c *Checker) cooldown() time.Duration {
	if c.cfg.AlertCooldownMins > 0 {
		return time.Duration(c.cfg.AlertCooldownMins) * time.Minute
	}
	return time.Duration(c.lookback()) * time.Minute
}

// check evaluates one snapshot and returns the number of alerts sent.
func (c *Checker) check(ctx context.Context, log *zap.Logger) int {
	snap := c.collector.Snapshot(c.lookback())
	now := c.now()

	var due []Alert
	for _, a := range c.alerter.Evaluate(snap) {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < c.cooldown() {
			log.Debug("monitoring: alert suppressed", zap.String("type", string(a.Type)))
			continue
		}
		due = append(due, a)
	}
	if len(due) == 0 {
		log.Debug("monitoring: nothing to send",
			zap.Int("analyses", snap.Analyses),
			zap.Float64("avg_score", snap.AvgScore),
		)
		return 0
	}

	sent := c.alerter.SendAlerts(ctx, due)
	if sent > 0 {
		for _, a := range due {
			c.lastSent[a.Type] = now
		}
	}
	log.Info("monitoring: alert check complete",
		zap.Int("alerts_due", len(due)),
		zap.Int("alerts_sent", sent),
	)
	return sent
}

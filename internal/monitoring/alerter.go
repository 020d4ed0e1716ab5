package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/config"
	"github.com/sells-group/dqi-engine/internal/resilience"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertHardFailRate          AlertType = "hard_fail_rate"
	AlertNarrativeFallbackRate AlertType = "narrative_fallback_rate"
	AlertMarketFallbackRate    AlertType = "market_fallback_rate"
	AlertFailureRate           AlertType = "failure_rate"
	AlertLowAverageScore       AlertType = "low_average_score"
)

// Alert is one threshold breach, posted to the webhook as JSON.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter turns a MetricsSnapshot into alerts and delivers them.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	retry  resilience.RetryConfig
}

// NewAlerter creates an Alerter for the given thresholds.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		retry:  resilience.DefaultRetryConfig(),
	}
}

func (a *Alerter) minAnalyses() int {
	if a.cfg.MinAnalyses <= 0 {
		return 5
	}
	return a.cfg.MinAnalyses
}

// Evaluate compares snap against the thresholds. A zero threshold disables
// its alert. Nothing fires until the window holds MinAnalyses outcomes.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	add := func(typ AlertType, severity, msg string, details map[string]any) {
		alerts = append(alerts, Alert{Type: typ, Severity: severity, Message: msg, Details: details, Timestamp: now})
	}

	attempted := snap.Analyses + snap.Failures
	if attempted >= a.minAnalyses() && a.cfg.FailureRateThreshold > 0 {
		rate := float64(snap.Failures) / float64(attempted)
		if rate > a.cfg.FailureRateThreshold {
			add(AlertFailureRate, "high",
				fmt.Sprintf("Rejected analysis rate %.1f%% exceeds threshold %.1f%% (%d of %d requests in last %dm)",
					rate*100, a.cfg.FailureRateThreshold*100, snap.Failures, attempted, snap.LookbackMins),
				map[string]any{"rate": rate, "threshold": a.cfg.FailureRateThreshold, "count": snap.Failures, "attempted": attempted})
		}
	}

	if snap.Analyses < a.minAnalyses() {
		return alerts
	}

	rate := func(typ AlertType, severity, label string, count int, value, threshold float64) {
		if threshold <= 0 || value <= threshold {
			return
		}
		add(typ, severity,
			fmt.Sprintf("%s rate %.1f%% exceeds threshold %.1f%% (%d of %d analyses in last %dm)",
				label, value*100, threshold*100, count, snap.Analyses, snap.LookbackMins),
			map[string]any{"rate": value, "threshold": threshold, "count": count, "analyses": snap.Analyses})
	}
	rate(AlertHardFailRate, "high", "Hard-fail", snap.HardFails, snap.HardFailRate, a.cfg.HardFailRateThreshold)
	rate(AlertNarrativeFallbackRate, "medium", "Narrative fallback", snap.NarrativeFallbacks, snap.NarrativeFallRate, a.cfg.NarrativeFallbackRateThreshold)
	rate(AlertMarketFallbackRate, "high", "Market-data fallback", snap.MarketFallbacks, snap.MarketFallRate, a.cfg.MarketFallbackRateThreshold)

	if floor := a.cfg.MinAverageScore; floor > 0 && snap.AvgScore < floor {
		add(AlertLowAverageScore, "medium",
			fmt.Sprintf("Average DQI %.1f is below %.1f over %d analyses in last %dm",
				snap.AvgScore, floor, snap.Analyses, snap.LookbackMins),
			map[string]any{"avg_score": snap.AvgScore, "floor": floor, "analyses": snap.Analyses})
	}

	return alerts
}

// SendAlerts posts each alert to the webhook and returns how many were
// delivered. Throttling and 5xx responses are retried.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	retry := a.retry
	sent := 0
	for _, alert := range alerts {
		retry.OnRetry = resilience.RetryLogger("alert-webhook", string(alert.Type))
		err := resilience.Do(ctx, retry, func(ctx context.Context) error {
			return a.post(ctx, alert)
		})
		if err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		err := eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return resilience.NewTransientError(err, resp.StatusCode)
		}
		return err
	}
	return nil
}

package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/dqi-engine/internal/config"
	"github.com/sells-group/dqi-engine/internal/resilience"
)

func thresholds() config.MonitoringConfig {
	return config.MonitoringConfig{
		HardFailRateThreshold:          0.25,
		NarrativeFallbackRateThreshold: 0.50,
		MarketFallbackRateThreshold:    0.50,
		MinAnalyses:                    5,
	}
}

func TestAlerter_Evaluate_NoAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Analyses:          20,
		HardFails:         2,
		HardFailRate:      0.10,
		NarrativeFallRate: 0.05,
		LookbackMins:      60,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_HardFailRate(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Analyses:     10,
		HardFails:    4,
		HardFailRate: 0.4,
		LookbackMins: 60,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertHardFailRate, alerts[0].Type)
	assert.Equal(t, "high", alerts[0].Severity)
	assert.Contains(t, alerts[0].Message, "40.0%")
	assert.Contains(t, alerts[0].Message, "4 of 10 analyses in last 60m")
}

func TestAlerter_Evaluate_MultipleAlerts(t *testing.T) {
	a := NewAlerter(thresholds())

	snap := &MetricsSnapshot{
		Analyses:           10,
		HardFails:          3,
		NarrativeFallbacks: 8,
		MarketFallbacks:    6,
		HardFailRate:       0.3,
		NarrativeFallRate:  0.8,
		MarketFallRate:     0.6,
		LookbackMins:       60,
	}

	alerts := a.Evaluate(snap)
	require.Len(t, alerts, 3)

	types := make(map[AlertType]string)
	for _, a := range alerts {
		types[a.Type] = a.Severity
	}
	assert.Equal(t, "high", types[AlertHardFailRate])
	assert.Equal(t, "medium", types[AlertNarrativeFallbackRate])
	assert.Equal(t, "high", types[AlertMarketFallbackRate])
}

func TestAlerter_Evaluate_MinimumAnalysesRequired(t *testing.T) {
	a := NewAlerter(thresholds())

	// Four analyses, all hard-failed: below the minimum sample.
	snap := &MetricsSnapshot{
		Analyses:     4,
		HardFails:    4,
		HardFailRate: 1.0,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_Evaluate_ZeroThresholdDisabled(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	snap := &MetricsSnapshot{
		Analyses:          50,
		HardFailRate:      1.0,
		NarrativeFallRate: 1.0,
		MarketFallRate:    1.0,
	}

	assert.Empty(t, a.Evaluate(snap))
}

func TestAlerter_SendAlerts_Webhook(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var alert Alert
		err := json.NewDecoder(r.Body).Decode(&alert)
		require.NoError(t, err)
		assert.NotEmpty(t, alert.Type)
		received.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	alerts := []Alert{
		{Type: AlertHardFailRate, Severity: "high", Message: "test alert 1"},
		{Type: AlertMarketFallbackRate, Severity: "high", Message: "test alert 2"},
	}

	sent := a.SendAlerts(context.Background(), alerts)
	assert.Equal(t, 2, sent)
	assert.Equal(t, int32(2), received.Load())
}

func TestAlerter_SendAlerts_EmptyURL(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertHardFailRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
}

func TestAlerter_SendAlerts_EmptyAlerts(t *testing.T) {
	a := NewAlerter(config.MonitoringConfig{WebhookURL: "http://example.com"})

	assert.Equal(t, 0, a.SendAlerts(context.Background(), nil))
}

func fastAlerter(cfg config.MonitoringConfig) *Alerter {
	a := NewAlerter(cfg)
	a.retry = resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond, Multiplier: 2}
	return a
}

func TestAlerter_SendAlerts_WebhookError(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	a := fastAlerter(config.MonitoringConfig{WebhookURL: ts.URL})

	sent := a.SendAlerts(context.Background(), []Alert{
		{Type: AlertNarrativeFallbackRate, Message: "test"},
	})
	assert.Equal(t, 0, sent)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAlerter_SendAlerts_RetriesThenDelivers(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	a := fastAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	assert.Equal(t, 1, a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestAlerter_SendAlerts_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	a := fastAlerter(config.MonitoringConfig{WebhookURL: ts.URL})
	assert.Equal(t, 0, a.SendAlerts(context.Background(), []Alert{{Type: AlertFailureRate, Message: "test"}}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestAlerter_Evaluate_FailureRate(t *testing.T) {
	cfg := thresholds()
	cfg.FailureRateThreshold = 0.20
	a := NewAlerter(cfg)

	// Three scored plus three rejected: the scored sample alone is too small
	// for rate alerts, but the rejection rate still counts.
	alerts := a.Evaluate(&MetricsSnapshot{Analyses: 3, Failures: 3, LookbackMins: 15})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertFailureRate, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "50.0%")
	assert.Contains(t, alerts[0].Message, "3 of 6 requests in last 15m")

	assert.Empty(t, a.Evaluate(&MetricsSnapshot{Analyses: 9, Failures: 1}))
}

func TestAlerter_Evaluate_LowAverageScore(t *testing.T) {
	cfg := thresholds()
	cfg.MinAverageScore = 65
	a := NewAlerter(cfg)

	alerts := a.Evaluate(&MetricsSnapshot{Analyses: 8, AvgScore: 61.5, LookbackMins: 60})
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertLowAverageScore, alerts[0].Type)
	assert.Contains(t, alerts[0].Message, "Average DQI 61.5 is below 65.0")

	assert.Empty(t, a.Evaluate(&MetricsSnapshot{Analyses: 8, AvgScore: 72}))
}

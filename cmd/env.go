package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/engine"
	"github.com/sells-group/dqi-engine/internal/events"
	"github.com/sells-group/dqi-engine/internal/market"
	"github.com/sells-group/dqi-engine/internal/monitoring"
	"github.com/sells-group/dqi-engine/internal/narrative"
	"github.com/sells-group/dqi-engine/internal/resilience"
	"github.com/sells-group/dqi-engine/internal/store"
	anthropicpkg "github.com/sells-group/dqi-engine/pkg/anthropic"
)

// dqiEnv holds the engine and the collaborators the analyze, batch and
// serve commands share.
type dqiEnv struct {
	Engine    *engine.Engine
	Store     store.Store // nil unless requested
	Publisher events.Publisher
	Metrics   *monitoring.Metrics
	Collector *monitoring.Collector
	Usage     *anthropicpkg.Meter
}

// Close releases resources held by the environment.
func (e *dqiEnv) Close() {
	if e.Publisher != nil {
		e.Publisher.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates cfg for mode and builds the engine. The store is opened
// and migrated only when withStore is set. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withStore bool) (*dqiEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	provider, source, err := initMarket()
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	collector := monitoring.NewCollector(metrics, 0)

	env := &dqiEnv{
		Publisher: initPublisher(),
		Metrics:   metrics,
		Collector: collector,
		Usage:     &anthropicpkg.Meter{},
	}
	env.Engine = engine.New(engine.Options{
		Market:           provider,
		MarketSource:     source,
		Summarizer:       initSummarizer(env.Usage),
		NarrativeTimeout: time.Duration(cfg.Narrative.TimeoutSecs) * time.Second,
		Benchmark:        cfg.Engine.BenchmarkScore,
		Observer:         collector,
	})

	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			env.Close()
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			env.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
		env.Store = st
	}

	return env, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// initMarket builds the configured market-data provider. The HTTP provider is
// wrapped in retries and a circuit breaker; the static tables need neither.
func initMarket() (market.Provider, string, error) {
	tables := market.DefaultTables()
	if cfg.Market.TablesPath != "" {
		t, err := market.LoadTables(cfg.Market.TablesPath)
		if err != nil {
			return nil, "", err
		}
		tables = t
	}

	switch cfg.Market.Provider {
	case "", "static":
		return market.NewStaticProvider(tables), market.SourceStatic, nil
	case "http":
		inner := market.NewHTTPProvider(market.HTTPOptions{
			BaseURL:           cfg.Market.BaseURL,
			APIKey:            cfg.Market.APIKey,
			Timeout:           time.Duration(cfg.Market.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.Market.RequestsPerSecond,
		})
		policy := resilience.PolicyFrom(cfg.Resilience)
		zap.L().Info("market data: http provider enabled", zap.String("base_url", cfg.Market.BaseURL))
		return market.NewResilientProvider(inner, policy.Retry, policy.NewBreaker()), market.SourceHTTP, nil
	default:
		return nil, "", eris.Errorf("unsupported market provider: %s", cfg.Market.Provider)
	}
}

// initSummarizer returns nil when narratives are disabled, which makes the
// engine use the templated narrative.
func initSummarizer(meter *anthropicpkg.Meter) narrative.Summarizer {
	if !cfg.Narrative.Enabled {
		zap.L().Debug("narrative collaborator disabled, using templates")
		return nil
	}
	breaker := resilience.PolicyFrom(cfg.Resilience).NewBreaker()
	client := anthropicpkg.NewClient(anthropicpkg.Options{
		APIKey:  cfg.Anthropic.Key,
		BaseURL: cfg.Anthropic.BaseURL,
	})
	return narrative.NewClaudeSummarizer(client, narrative.ClaudeOptions{
		Model:     cfg.Anthropic.Model,
		MaxTokens: cfg.Anthropic.MaxTokens,
		Meter:     meter,
	}, breaker)
}

// initPublisher connects to NATS when configured. Connection problems
// degrade to a no-op publisher.
func initPublisher() events.Publisher {
	if cfg.Events.NATSURL == "" {
		return events.Noop{}
	}
	pub, err := events.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject)
	if err != nil {
		zap.L().Warn("nats unavailable, analysis events disabled", zap.Error(err))
		return events.Noop{}
	}
	return pub
}

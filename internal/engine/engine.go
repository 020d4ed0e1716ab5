// Package engine assembles a complete Deal Quality Index analysis from a
// property: market context, the seven pillars, the composite score and the
// narrative.
package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/dqi-engine/internal/aggregate"
	"github.com/sells-group/dqi-engine/internal/market"
	"github.com/sells-group/dqi-engine/internal/model"
	"github.com/sells-group/dqi-engine/internal/narrative"
	"github.com/sells-group/dqi-engine/internal/pillar"
	"github.com/sells-group/dqi-engine/internal/validate"
)

// State is a step of one analysis.
type State string

const (
	StateValidatingInput    State = "ValidatingInput"
	StateComputingPillars   State = "ComputingPillars"
	StateAggregating        State = "Aggregating"
	StateNarrativeRequested State = "NarrativeRequested"
	StateNarrativeSkipped   State = "NarrativeSkipped"
	StateComplete           State = "Complete"
	StateFailed             State = "Failed"
)

// Observer receives the outcome of every analysis.
type Observer interface {
	ObserveAnalysis(a *model.DQIAnalysis, d time.Duration)
	ObserveFailure(err error)
}

// Options configures an Engine. Market is required; everything else has a
// usable zero value.
type Options struct {
	Market           market.Provider
	MarketSource     string
	Summarizer       narrative.Summarizer
	NarrativeTimeout time.Duration
	Benchmark        int
	Calculators      []pillar.Calculator
	Now              func() time.Time
	OnTransition     func(from, to State)
	Observer         Observer
}

// Engine computes DQI analyses. It holds no per-analysis state and is safe
// for concurrent use.
type Engine struct {
	market       market.Provider
	source       string
	summarizer   narrative.Summarizer
	timeout      time.Duration
	aggregator   aggregate.Aggregator
	calcs        []pillar.Calculator
	now          func() time.Time
	onTransition func(from, to State)
	observer     Observer
}

// New creates an Engine from opts.
func New(opts Options) *Engine {
	e := &Engine{
		market:       opts.Market,
		source:       opts.MarketSource,
		summarizer:   opts.Summarizer,
		timeout:      opts.NarrativeTimeout,
		aggregator:   aggregate.Aggregator{Benchmark: opts.Benchmark},
		calcs:        opts.Calculators,
		now:          opts.Now,
		onTransition: opts.OnTransition,
		observer:     opts.Observer,
	}
	if e.market == nil {
		e.market = market.NewStaticProvider(market.DefaultTables())
		e.source = market.SourceStatic
	}
	if e.source == "" {
		e.source = market.SourceStatic
	}
	if e.timeout <= 0 {
		e.timeout = narrative.DefaultTimeout
	}
	if len(e.calcs) == 0 {
		e.calcs = pillar.Registry()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// run tracks the state of a single analysis.
type run struct {
	e     *Engine
	state State
	log   *zap.Logger
}

func (r *run) moveTo(to State) {
	from := r.state
	r.state = to
	r.log.Debug("engine: state transition", zap.String("from", string(from)), zap.String("state", string(to)))
	if r.e.onTransition != nil {
		r.e.onTransition(from, to)
	}
}

func (r *run) fail(err error) error {
	r.moveTo(StateFailed)
	r.log.Warn("engine: analysis failed", zap.Error(err))
	if r.e.observer != nil {
		r.e.observer.ObserveFailure(err)
	}
	return err
}

// ComputeDealQualityIndex scores one property. The only input it rejects is
// a missing or non-positive property value, reported as a
// *model.MissingFieldError; market and narrative outages degrade to
// defaults instead of failing.
func (e *Engine) ComputeDealQualityIndex(ctx context.Context, propertyID string, in model.PropertyInput) (*model.DQIAnalysis, error) {
	start := time.Now()
	if propertyID != "" {
		in.PropertyID = propertyID
	}
	r := &run{e: e, log: zap.L().With(zap.String("property_id", in.PropertyID))}

	r.moveTo(StateValidatingInput)
	if !(in.PropertyValue > 0) {
		return nil, r.fail(eris.Wrap(&model.MissingFieldError{Field: "propertyValue"}, "engine: validate input"))
	}
	now := e.now().UTC()

	ltv, loan := pillar.LoanTerms(in)
	mc := market.Fetch(ctx, e.market, in, loan, ltv, e.source)

	r.moveTo(StateComputingPillars)
	metrics, validation := e.computePillars(in, mc, now)

	r.moveTo(StateAggregating)
	comp, err := e.aggregator.Aggregate(metrics)
	if err != nil {
		return nil, r.fail(eris.Wrap(err, "engine: aggregate"))
	}

	if e.summarizer != nil {
		r.moveTo(StateNarrativeRequested)
	} else {
		r.moveTo(StateNarrativeSkipped)
	}
	text, source := narrative.WithFallback(ctx, e.summarizer, e.timeout, in, metrics, comp.OverallScore, comp.Rating)

	name := in.Name
	if name == "" {
		name = in.DisplayName()
	}
	a := &model.DQIAnalysis{
		PropertyID:   in.PropertyID,
		PropertyName: name,
		OverallScore: comp.OverallScore,
		Rating:       comp.Rating,
		Band:         comp.Band,
		Drivers:      comp.Drivers,
		Improvements: comp.Improvements,
		Metrics:      metrics,
		Safeguards: model.Safeguards{
			HardFails: comp.HardFails,
			Warnings:  validation.Warnings,
		},
		Governance: model.Governance{
			ConfidenceLevel: validation.Confidence,
			PeerRank:        comp.PeerRank,
			BenchmarkScore:  comp.BenchmarkScore,
			BenchmarkDelta:  comp.BenchmarkDelta,
			Validation:      validation,
		},
		Market:          mc,
		RuneAnalysis:    text,
		NarrativeSource: source,
		Timestamp:       now,
	}

	r.moveTo(StateComplete)
	r.log.Info("engine: analysis complete",
		zap.Int("score", a.OverallScore),
		zap.String("rating", string(a.Rating)),
		zap.Int("hard_fails", len(a.Safeguards.HardFails)),
		zap.String("narrative_source", string(source)),
	)
	if e.observer != nil {
		e.observer.ObserveAnalysis(a, time.Since(start))
	}
	return a, nil
}

// ComputeFromRaw normalizes a loosely shaped payload and scores it.
func (e *Engine) ComputeFromRaw(ctx context.Context, raw model.RawProperty) (*model.DQIAnalysis, error) {
	in := model.Normalize(raw)
	return e.ComputeDealQualityIndex(ctx, in.PropertyID, in)
}

// computePillars fans the calculators out alongside the validator.
// Calculators that consume validator output wait for it; the rest do not.
func (e *Engine) computePillars(in model.PropertyInput, mc model.MarketContext, now time.Time) ([]model.Metric, model.ValidationResult) {
	metrics := make([]model.Metric, len(e.calcs))
	var validation model.ValidationResult
	validated := make(chan struct{})

	var g errgroup.Group
	g.Go(func() error {
		validation = validate.Validate(in, mc, now)
		close(validated)
		return nil
	})
	for i, calc := range e.calcs {
		g.Go(func() error {
			if vc, ok := calc.(pillar.ValidatedCalculator); ok {
				<-validated
				metrics[i] = vc.ComputeValidated(in, validation)
			} else {
				metrics[i] = calc.Compute(in, mc)
			}
			metrics[i].ComputedAt = now
			return nil
		})
	}
	_ = g.Wait()

	return metrics, validation
}

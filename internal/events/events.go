// Package events publishes analysis lifecycle events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dqi-engine/internal/model"
)

// DefaultSubject is where completed analyses are announced.
const DefaultSubject = "dqi.analysis.completed"

// AnalysisCompleted is the payload published for every finished analysis.
type AnalysisCompleted struct {
	AnalysisID      string                `json:"analysisId,omitempty"`
	PropertyID      string                `json:"propertyId"`
	OverallScore    int                   `json:"overallScore"`
	Rating          model.Rating          `json:"rating"`
	Band            string                `json:"band"`
	HardFails       []string              `json:"hardFails"`
	ConfidenceLevel model.Confidence      `json:"confidenceLevel"`
	NarrativeSource model.NarrativeSource `json:"narrativeSource"`
	Timestamp       time.Time             `json:"timestamp"`
}

// NewAnalysisCompleted summarizes a into its event payload.
func NewAnalysisCompleted(a *model.DQIAnalysis) AnalysisCompleted {
	hardFails := a.Safeguards.HardFails
	if hardFails == nil {
		hardFails = []string{}
	}
	return AnalysisCompleted{
		AnalysisID:      a.ID,
		PropertyID:      a.PropertyID,
		OverallScore:    a.OverallScore,
		Rating:          a.Rating,
		Band:            a.Band,
		HardFails:       hardFails,
		ConfidenceLevel: a.Governance.ConfidenceLevel,
		NarrativeSource: a.NarrativeSource,
		Timestamp:       a.Timestamp,
	}
}

// Publisher announces completed analyses.
type Publisher interface {
	PublishAnalysis(ctx context.Context, a *model.DQIAnalysis) error
	Close()
}

// Noop discards every event.
type Noop struct{}

// PublishAnalysis implements Publisher.
func (Noop) PublishAnalysis(context.Context, *model.DQIAnalysis) error { return nil }

// Close implements Publisher.
func (Noop) Close() {}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NATSPublisher publishes events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    conn
	subject string
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("dqi-engine"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "events: connect %s", url)
	}
	return newNATSPublisher(nc, subject), nil
}

func newNATSPublisher(c conn, subject string) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSPublisher{conn: c, subject: subject}
}

// PublishAnalysis implements Publisher.
func (p *NATSPublisher) PublishAnalysis(ctx context.Context, a *model.DQIAnalysis) error {
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "events: publish")
	}
	payload, err := json.Marshal(NewAnalysisCompleted(a))
	if err != nil {
		return eris.Wrap(err, "events: marshal analysis event")
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return eris.Wrapf(err, "events: publish %s", p.subject)
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		zap.L().Warn("events: drain nats connection", zap.Error(err))
	}
}

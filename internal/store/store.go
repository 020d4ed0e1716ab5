package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/dqi-engine/internal/config"
	"github.com/sells-group/dqi-engine/internal/model"
)

// ErrNotFound is returned when a property or analysis does not exist.
var ErrNotFound = eris.New("store: not found")

// PropertyRecord is a stored upstream property payload.
type PropertyRecord struct {
	ID        string            `json:"id"`
	Raw       model.RawProperty `json:"raw"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	PropertyID string       `json:"property_id,omitempty"`
	Rating     model.Rating `json:"rating,omitempty"`
	Limit      int          `json:"limit,omitempty"`
	Offset     int          `json:"offset,omitempty"`
}

// DefaultListLimit caps ListAnalyses when the filter sets no limit.
const DefaultListLimit = 100

// Store persists properties and the analyses computed for them.
type Store interface {
	// Properties
	PutProperty(ctx context.Context, id string, raw model.RawProperty) (*PropertyRecord, error)
	PutProperties(ctx context.Context, recs []PropertyRecord) (int64, error)
	GetProperty(ctx context.Context, id string) (*PropertyRecord, error)

	// Analyses are append-only. Save assigns a new ID and returns the stored copy.
	SaveAnalysis(ctx context.Context, a *model.DQIAnalysis) (*model.DQIAnalysis, error)
	SaveAnalyses(ctx context.Context, as []*model.DQIAnalysis) ([]*model.DQIAnalysis, error)
	GetAnalysis(ctx context.Context, id string) (*model.DQIAnalysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.DQIAnalysis, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

func listLimit(f AnalysisFilter) int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

func notFound(entity, id string) error {
	return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
}

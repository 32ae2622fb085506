// Package store persists scoring settings and saved prospects.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/prospect-cli/internal/config"
	"github.com/sells-group/prospect-cli/internal/model"
)

// ErrNotFound is returned when a saved prospect does not exist.
var ErrNotFound = eris.New("store: not found")

// Prospect is a result item the user saved for follow-up.
type Prospect struct {
	ID            string            `json:"id"`
	Kind          model.ItemKind    `json:"kind"`
	Name          string            `json:"name"`
	Score         int               `json:"score"`
	DistanceMiles float64           `json:"distance_miles"`
	Location      string            `json:"location"`
	Notes         string            `json:"notes,omitempty"`
	Item          *model.ResultItem `json:"item"`
	SavedAt       time.Time         `json:"saved_at"`
}

// ProspectFilter specifies criteria for listing saved prospects.
type ProspectFilter struct {
	Kind     model.ItemKind `json:"kind,omitempty"`
	MinScore int            `json:"min_score,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store defines the persistence interface.
type Store interface {
	// Settings
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error

	// Saved prospects
	SaveProspect(ctx context.Context, location, notes string, item *model.ResultItem) (*Prospect, error)
	ListProspects(ctx context.Context, filter ProspectFilter) ([]Prospect, error)
	DeleteProspect(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the Store for cfg.Driver and runs its migration.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

const defaultListLimit = 100

func newProspect(id, location, notes string, item *model.ResultItem, now time.Time) (*Prospect, []byte, error) {
	if item == nil {
		return nil, nil, eris.New("store: nil result item")
	}
	if err := item.Validate(); err != nil {
		return nil, nil, eris.Wrap(err, "store: invalid result item")
	}
	data, err := json.Marshal(item)
	if err != nil {
		return nil, nil, eris.Wrap(err, "store: marshal item")
	}
	return &Prospect{
		ID:            id,
		Kind:          item.Kind,
		Name:          item.Name(),
		Score:         item.OverallScore,
		DistanceMiles: item.DistanceMiles,
		Location:      location,
		Notes:         notes,
		Item:          item,
		SavedAt:       now,
	}, data, nil
}

func decodeItem(p *Prospect, data []byte) error {
	p.Item = &model.ResultItem{}
	return eris.Wrapf(json.Unmarshal(data, p.Item), "store: unmarshal item %s", p.ID)
}

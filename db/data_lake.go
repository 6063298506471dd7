package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sunny07-bar/website-sub000/entity"
)

// DataLake is the append-only log of every published event, the source for
// rebuilding read models.
type DataLake struct {
	db *sqlx.DB
}

func NewDataLake(db *sqlx.DB) DataLake {
	if db == nil {
		panic("db is nil")
	}

	return DataLake{db: db}
}

// StoreEvent ignores redeliveries of an already stored event.
func (s DataLake) StoreEvent(
	ctx context.Context,
	dataLakeEvent entity.DataLakeEvent,
) error {
	_, err := s.db.NamedExecContext(
		ctx,
		`
			INSERT INTO
			    events_log (event_id, published_at, event_name, event_payload)
			VALUES
			    (:event_id, :published_at, :event_name, :event_payload)
			ON CONFLICT (event_id) DO NOTHING`,
		dataLakeEvent,
	)
	if err != nil {
		return fmt.Errorf("could not store %s event %s in data lake: %w", dataLakeEvent.Name, dataLakeEvent.ID, err)
	}

	return nil
}

// GetEvents returns events in publication order. With names given only
// events of those names are returned.
func (s DataLake) GetEvents(ctx context.Context, names ...string) ([]entity.DataLakeEvent, error) {
	query := "SELECT event_id, published_at, event_name, event_payload FROM events_log"
	var args []any
	if len(names) > 0 {
		query += " WHERE event_name = ANY($1)"
		args = append(args, pq.Array(names))
	}
	query += " ORDER BY published_at ASC, event_id ASC"

	var events []entity.DataLakeEvent
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("could not get events from data lake: %w", err)
	}

	return events, nil
}

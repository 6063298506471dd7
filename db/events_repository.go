package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sunny07-bar/website-sub000/entity"
)

// EventsRepository stores events and their ticket categories. It is also the
// inventory ledger: quantity_sold only ever grows through Reserve.
type EventsRepository struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepository {
	if db == nil {
		panic("db is nil")
	}

	return &EventsRepository{db: db}
}

func (r *EventsRepository) Add(ctx context.Context, event entity.Event) error {
	return updateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO
				events (event_id, title, starts_at, ends_at, location, base_price, currency)
			VALUES
				(:event_id, :title, :starts_at, :ends_at, :location, :base_price, :currency)
			ON CONFLICT (event_id) DO NOTHING
		`, event)
		if err != nil {
			return fmt.Errorf("could not add event %s: %w", event.EventID, err)
		}

		for _, category := range event.Categories {
			category.EventID = event.EventID
			_, err := tx.NamedExecContext(ctx, `
				INSERT INTO
					ticket_categories (category_id, event_id, name, price, currency, quantity_total, quantity_sold)
				VALUES
					(:category_id, :event_id, :name, :price, :currency, :quantity_total, :quantity_sold)
				ON CONFLICT (category_id) DO NOTHING
			`, category)
			if err != nil {
				return fmt.Errorf("could not add ticket category %s: %w", category.CategoryID, err)
			}
		}

		return nil
	})
}

func (r *EventsRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	return getEvent(ctx, r.db, eventID)
}

func getEvent(ctx context.Context, db dbExecutor, eventID string) (entity.Event, error) {
	if _, err := uuid.Parse(eventID); err != nil {
		return entity.Event{}, entity.ErrEventNotFound
	}

	var event entity.Event
	err := db.GetContext(ctx, &event, `
		SELECT event_id, title, starts_at, ends_at, location, base_price, currency
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, entity.ErrEventNotFound
	}
	if err != nil {
		return entity.Event{}, fmt.Errorf("could not get event %s: %w", eventID, err)
	}

	err = db.SelectContext(ctx, &event.Categories, `
		SELECT category_id, event_id, name, price, currency, quantity_total, quantity_sold
		FROM ticket_categories
		WHERE event_id = $1
		ORDER BY name
	`, eventID)
	if err != nil {
		return entity.Event{}, fmt.Errorf("could not get ticket categories of event %s: %w", eventID, err)
	}

	return event, nil
}

// Reserve debits qty units from the category in a single conditional
// statement. Concurrent reservations serialize on the category row.
func (r *EventsRepository) Reserve(ctx context.Context, tx *sqlx.Tx, categoryID string, qty int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE ticket_categories
		SET quantity_sold = quantity_sold + $2
		WHERE category_id = $1
			AND (quantity_total IS NULL OR quantity_sold + $2 <= quantity_total)
	`, categoryID, qty)
	if err != nil {
		return fmt.Errorf("could not reserve %d tickets of category %s: %w", qty, categoryID, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrSoldOut
	}

	return nil
}

// FindOrCreateBaseCategory materializes the implicit category of a
// flat-priced event. Unlimited, as the event never declared a capacity.
func (r *EventsRepository) FindOrCreateBaseCategory(ctx context.Context, tx *sqlx.Tx, event entity.Event) (entity.TicketCategory, error) {
	if !event.BasePrice.Valid {
		return entity.TicketCategory{}, entity.ErrCategoryNotFound
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO
			ticket_categories (category_id, event_id, name, price, currency, quantity_total, quantity_sold)
		VALUES
			($1, $2, $3, $4, $5, NULL, 0)
		ON CONFLICT (event_id, name) DO NOTHING
	`, uuid.NewString(), event.EventID, entity.BaseCategoryName, event.BasePrice.Decimal, event.Currency)
	if err != nil {
		return entity.TicketCategory{}, fmt.Errorf("could not create base category of event %s: %w", event.EventID, err)
	}

	var category entity.TicketCategory
	err = tx.GetContext(ctx, &category, `
		SELECT category_id, event_id, name, price, currency, quantity_total, quantity_sold
		FROM ticket_categories
		WHERE event_id = $1 AND name = $2
	`, event.EventID, entity.BaseCategoryName)
	if err != nil {
		return entity.TicketCategory{}, fmt.Errorf("could not get base category of event %s: %w", event.EventID, err)
	}

	return category, nil
}

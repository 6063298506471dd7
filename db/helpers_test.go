package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
)

func addEventWithCategory(t *testing.T, db *sqlx.DB, price string, total *int) (entity.Event, entity.TicketCategory) {
	t.Helper()

	eventID := uuid.NewString()
	category := entity.TicketCategory{
		CategoryID:    uuid.NewString(),
		EventID:       eventID,
		Name:          "Front Row",
		Price:         decimal.RequireFromString(price),
		Currency:      "USD",
		QuantityTotal: total,
	}
	event := entity.Event{
		EventID:    eventID,
		Title:      "Jazz Night",
		StartsAt:   time.Now().Add(24 * time.Hour).UTC(),
		Location:   "Main Hall",
		Currency:   "USD",
		Categories: []entity.TicketCategory{category},
	}

	require.NoError(t, NewEventsRepository(db).Add(context.Background(), event))

	return event, category
}

func addFlatPricedEvent(t *testing.T, db *sqlx.DB, basePrice string) entity.Event {
	t.Helper()

	event := entity.Event{
		EventID:   uuid.NewString(),
		Title:     "Wine Tasting",
		StartsAt:  time.Now().Add(24 * time.Hour).UTC(),
		BasePrice: decimal.NewNullDecimal(decimal.RequireFromString(basePrice)),
		Currency:  "USD",
	}

	require.NoError(t, NewEventsRepository(db).Add(context.Background(), event))

	return event
}

func addOrder(t *testing.T, db *sqlx.DB, event entity.Event, lines entity.OrderLines) entity.Order {
	t.Helper()

	order, err := entity.NewOrder(
		uuid.NewString(),
		event,
		entity.Customer{Name: "Ada Lovelace", Email: "ada@example.com"},
		lines,
		time.Now().UTC(),
	)
	require.NoError(t, err)

	order, err = NewOrdersRepository(db).Create(
		context.Background(),
		order,
		entity.PendingSelection{Items: lines},
	)
	require.NoError(t, err)

	return order
}

func addPaidOrder(t *testing.T, db *sqlx.DB, event entity.Event, lines entity.OrderLines) entity.Order {
	t.Helper()

	order := addOrder(t, db, event, lines)

	paid, err := NewOrdersRepository(db).MarkPaid(context.Background(), order.OrderID, entity.PaymentMethodCard, "SIM-"+uuid.NewString())
	require.NoError(t, err)

	return paid
}

func categoryLine(category entity.TicketCategory, qty int) entity.OrderLines {
	return entity.OrderLines{
		{
			Category:     entity.ExplicitCategory(category.CategoryID),
			CategoryName: category.Name,
			UnitPrice:    category.Price,
			Quantity:     qty,
		},
	}
}

func intPtr(i int) *int {
	return &i
}

package entity_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
)

func TestNewOrder(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	event := entity.Event{EventID: uuid.NewString(), Currency: "USD"}
	customer := entity.Customer{Name: "Ada", Email: "ada@example.com"}

	lines := entity.OrderLines{
		{
			Category:     entity.ExplicitCategory("vip"),
			CategoryName: "VIP",
			UnitPrice:    decimal.RequireFromString("50.00"),
			Quantity:     2,
		},
		{
			Category:     entity.ExplicitCategory("ga"),
			CategoryName: "GA",
			UnitPrice:    decimal.RequireFromString("12.50"),
			Quantity:     1,
		},
	}

	order, err := entity.NewOrder(uuid.NewString(), event, customer, lines, now)
	require.NoError(t, err)

	assert.True(t, decimal.RequireFromString("112.50").Equal(order.TotalAmount))
	assert.Equal(t, "USD", order.Currency)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.Equal(t, entity.PaymentStatusUnpaid, order.PaymentStatus)
	assert.True(t, order.PaymentRequired())
	assert.Equal(t, entity.Money{Amount: "112.50", Currency: "USD"}, order.Money())
	assert.Regexp(t, regexp.MustCompile(`^ORD-20260314-[A-Z0-9]{6}$`), order.OrderNumber)
}

func TestNewOrder_validation(t *testing.T) {
	now := time.Now()
	event := entity.Event{EventID: uuid.NewString(), Currency: "USD"}
	validLines := entity.OrderLines{{Category: entity.ExplicitCategory("a"), UnitPrice: decimal.NewFromInt(1), Quantity: 1}}

	testCases := []struct {
		name     string
		customer entity.Customer
		lines    entity.OrderLines
		err      error
	}{
		{
			name:     "missing_name",
			customer: entity.Customer{Email: "a@b.c"},
			lines:    validLines,
			err:      entity.ErrMissingCustomerFields,
		},
		{
			name:     "blank_email",
			customer: entity.Customer{Name: "A", Email: "  "},
			lines:    validLines,
			err:      entity.ErrMissingCustomerFields,
		},
		{
			name:     "no_lines",
			customer: entity.Customer{Name: "A", Email: "a@b.c"},
			err:      entity.ErrInvalidLineItems,
		},
		{
			name:     "zero_quantity",
			customer: entity.Customer{Name: "A", Email: "a@b.c"},
			lines:    entity.OrderLines{{Category: entity.ExplicitCategory("a"), UnitPrice: decimal.NewFromInt(1)}},
			err:      entity.ErrInvalidLineItems,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := entity.NewOrder(uuid.NewString(), event, tc.customer, tc.lines, now)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestOrder_free(t *testing.T) {
	order, err := entity.NewOrder(
		uuid.NewString(),
		entity.Event{EventID: uuid.NewString(), Currency: "USD"},
		entity.Customer{Name: "A", Email: "a@b.c"},
		entity.OrderLines{{Category: entity.ExplicitCategory("a"), UnitPrice: decimal.Zero, Quantity: 3}},
		time.Now(),
	)
	require.NoError(t, err)

	assert.False(t, order.PaymentRequired())
}

func TestOrderLines_scan(t *testing.T) {
	lines := entity.OrderLines{
		{Category: entity.SyntheticCategory("event-1"), CategoryName: entity.BaseCategoryName, UnitPrice: decimal.NewFromInt(20), Quantity: 2},
	}

	value, err := lines.Value()
	require.NoError(t, err)

	var scanned entity.OrderLines
	require.NoError(t, scanned.Scan(value))

	require.Len(t, scanned, 1)
	assert.True(t, scanned[0].Category.IsSynthetic())
	assert.Equal(t, 2, scanned.Quantity())
	assert.True(t, decimal.NewFromInt(40).Equal(scanned.Total()))
}

func TestNewTicketNumber(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 100; i++ {
		number := entity.NewTicketNumber()
		assert.Regexp(t, `^TKT-[A-Z0-9]{10}$`, number)
		seen[number] = struct{}{}
	}

	assert.Len(t, seen, 100)
}

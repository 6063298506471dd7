package db

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
)

func TestOpsOrdersReadModel(t *testing.T) {
	ctx := context.Background()
	readModel := NewOpsOrdersReadModel(GetDb(t))

	orderID := uuid.NewString()
	ticketID := uuid.NewString()

	placed := &entity.OrderPlaced_v1{
		Header:        entity.NewEventHeader(),
		OrderID:       orderID,
		OrderNumber:   "ORD-20260101-ABCDEF",
		EventID:       uuid.NewString(),
		CustomerEmail: "ada@example.com",
		Total:         entity.Money{Amount: "40.00", Currency: "USD"},
		TicketsCount:  2,
	}

	require.NoError(t, readModel.OnOrderPlaced(ctx, placed))

	require.NoError(t, readModel.OnOrderPaid(ctx, &entity.OrderPaid_v1{
		Header:           entity.NewEventHeader(),
		OrderID:          orderID,
		PaymentMethod:    entity.PaymentMethodCard,
		PaymentReference: "SIM-1",
	}))

	// redelivery must not reset the read model
	require.NoError(t, readModel.OnOrderPlaced(ctx, placed))

	require.NoError(t, readModel.OnTicketsIssued(ctx, &entity.TicketsIssued_v1{
		Header:  entity.NewEventHeader(),
		OrderID: orderID,
		Tickets: []entity.IssuedTicket{
			{TicketID: ticketID, TicketNumber: "TKT-0000000001", CategoryName: "VIP"},
		},
	}))

	redeemedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, readModel.OnTicketRedeemed(ctx, &entity.TicketRedeemed_v1{
		Header:     entity.NewEventHeader(),
		TicketID:   ticketID,
		OrderID:    orderID,
		RedeemedAt: redeemedAt,
		RedeemedBy: "staff-1",
	}))

	rm, err := readModel.OrderReadModel(ctx, orderID)
	require.NoError(t, err)

	assert.Equal(t, "ORD-20260101-ABCDEF", rm.OrderNumber)
	assert.Equal(t, "SIM-1", rm.PaymentReference)
	assert.False(t, rm.PaidAt.IsZero())
	require.Contains(t, rm.Tickets, ticketID)
	assert.Equal(t, "TKT-0000000001", rm.Tickets[ticketID].TicketNumber)
	assert.True(t, redeemedAt.Equal(rm.Tickets[ticketID].RedeemedAt))

	all, err := readModel.AllOrders(ctx, rm.PaidAt.UTC().Format("2006-01-02"))
	require.NoError(t, err)
	assert.Contains(t, lo.Map(all, func(o entity.OpsOrder, _ int) string { return o.OrderID }), orderID)
}

func TestOpsOrdersReadModel_out_of_order(t *testing.T) {
	err := NewOpsOrdersReadModel(GetDb(t)).OnOrderPaid(context.Background(), &entity.OrderPaid_v1{
		Header:  entity.NewEventHeader(),
		OrderID: uuid.NewString(),
	})
	assert.Error(t, err, "update before creation should be retried")
}

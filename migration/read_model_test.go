package migrations

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
)

type dataLakeStub []entity.DataLakeEvent

func (d dataLakeStub) GetEvents(ctx context.Context, names ...string) ([]entity.DataLakeEvent, error) {
	return d, nil
}

type readModelSpy struct {
	calls []string
}

func (r *readModelSpy) OnOrderPlaced(ctx context.Context, event *entity.OrderPlaced_v1) error {
	r.calls = append(r.calls, "placed:"+event.OrderNumber)
	return nil
}

func (r *readModelSpy) OnOrderPaid(ctx context.Context, event *entity.OrderPaid_v1) error {
	r.calls = append(r.calls, "paid:"+event.PaymentReference)
	return nil
}

func (r *readModelSpy) OnTicketsIssued(ctx context.Context, event *entity.TicketsIssued_v1) error {
	r.calls = append(r.calls, "issued:"+event.Tickets[0].TicketNumber)
	return nil
}

func (r *readModelSpy) OnTicketRedeemed(ctx context.Context, event *entity.TicketRedeemed_v1) error {
	r.calls = append(r.calls, "redeemed:"+event.TicketNumber)
	return nil
}

func (r *readModelSpy) OnReconciliationRequired(ctx context.Context, event *entity.ReconciliationRequired_v1) error {
	r.calls = append(r.calls, "reconcile:"+event.Reason)
	return nil
}

func dataLakeEvent(t *testing.T, name string, event any) entity.DataLakeEvent {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return entity.DataLakeEvent{
		ID:          name,
		PublishedAt: time.Now(),
		Name:        name,
		Payload:     payload,
	}
}

func TestMigrateReadModel(t *testing.T) {
	events := dataLakeStub{
		dataLakeEvent(t, "OrderPlaced_v1", entity.OrderPlaced_v1{OrderNumber: "ORD-20261018-AAAAAA"}),
		dataLakeEvent(t, "OrderPaid_v1", entity.OrderPaid_v1{PaymentReference: "CAPTURE-1"}),
		dataLakeEvent(t, "TicketsIssued_v1", entity.TicketsIssued_v1{
			Tickets: []entity.IssuedTicket{{TicketNumber: "TKT-AAAAAAAAAA"}},
		}),
		dataLakeEvent(t, "TicketRedeemed_v1", entity.TicketRedeemed_v1{TicketNumber: "TKT-AAAAAAAAAA"}),
		dataLakeEvent(t, "SomethingElse_v1", struct{}{}),
		dataLakeEvent(t, "ReconciliationRequired_v1", entity.ReconciliationRequired_v1{Reason: "sold_out"}),
	}

	spy := &readModelSpy{}
	err := MigrateReadModel(context.Background(), events, spy)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"placed:ORD-20261018-AAAAAA",
		"paid:CAPTURE-1",
		"issued:TKT-AAAAAAAAAA",
		"redeemed:TKT-AAAAAAAAAA",
		"reconcile:sold_out",
	}, spy.calls)
}

func TestMigrateReadModel_broken_payload(t *testing.T) {
	events := dataLakeStub{
		{ID: "1", Name: "OrderPaid_v1", Payload: []byte("{")},
	}

	err := MigrateReadModel(context.Background(), events, &readModelSpy{})
	assert.ErrorContains(t, err, "OrderPaid_v1")
}

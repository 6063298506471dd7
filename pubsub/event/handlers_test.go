package event_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/mocks"
	"github.com/sunny07-bar/website-sub000/pubsub/event"
)

func newHandler(t *testing.T) (event.Handler, *mocks.Spreadsheets, *mocks.Receipts, *mocks.Files) {
	spreadsheets := mocks.NewSpreadsheets(t)
	receipts := mocks.NewReceipts(t)
	files := mocks.NewFiles(t)

	return event.NewHandler(spreadsheets, receipts, files), spreadsheets, receipts, files
}

func TestDeliverTicketsHandler(t *testing.T) {
	handler, spreadsheets, _, files := newHandler(t)

	issued := &entity.TicketsIssued_v1{
		Header:        entity.NewEventHeader(),
		OrderID:       "order-1",
		OrderNumber:   "ORD-20261018-ABCDEF",
		CustomerName:  "Ada Lovelace",
		CustomerEmail: "ada@example.com",
		Tickets: []entity.IssuedTicket{
			{TicketNumber: "TKT-AAAAAAAAAA", CategoryName: "Table Seat", CredentialPayload: `{"ticket_number":"TKT-AAAAAAAAAA"}`, Price: entity.Money{Amount: "25.00", Currency: "USD"}},
			{TicketNumber: "TKT-BBBBBBBBBB", CategoryName: "Table Seat", CredentialPayload: `{"ticket_number":"TKT-BBBBBBBBBB"}`, Price: entity.Money{Amount: "25.00", Currency: "USD"}},
		},
	}

	require.NoError(t, handler.DeliverTicketsHandler().Handle(context.Background(), issued))

	uploaded := files.Uploaded()
	require.Len(t, uploaded, 2)
	assert.Contains(t, uploaded[event.TicketFileID("TKT-AAAAAAAAAA")], "TKT-AAAAAAAAAA")
	assert.Contains(t, uploaded[event.TicketFileID("TKT-BBBBBBBBBB")], "25.00 USD")

	rows := spreadsheets.Rows("tickets-to-deliver")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"ORD-20261018-ABCDEF", "Ada Lovelace", "ada@example.com", "TKT-AAAAAAAAAA TKT-BBBBBBBBBB"}, rows[0])
}

func TestDeliverTicketsHandler_upload_failure(t *testing.T) {
	handler, spreadsheets, _, files := newHandler(t)
	files.Err = errors.New("files api down")

	err := handler.DeliverTicketsHandler().Handle(context.Background(), &entity.TicketsIssued_v1{
		OrderID: "order-1",
		Tickets: []entity.IssuedTicket{{TicketNumber: "TKT-AAAAAAAAAA"}},
	})
	assert.Error(t, err)
	assert.Empty(t, spreadsheets.Rows("tickets-to-deliver"))
}

func TestIssueReceiptHandler(t *testing.T) {
	handler, _, receipts, _ := newHandler(t)

	err := handler.IssueReceiptHandler().Handle(context.Background(), &entity.OrderPaid_v1{
		Header:      entity.NewEventHeader(),
		OrderID:     "order-1",
		OrderNumber: "ORD-20261018-ABCDEF",
		Total:       entity.Money{Amount: "75.00", Currency: "USD"},
	})
	require.NoError(t, err)

	require.Len(t, receipts.Issued(), 1)
	assert.Equal(t, entity.IssueReceiptRequest{
		ReferenceID:    "ORD-20261018-ABCDEF",
		Price:          entity.Money{Amount: "75.00", Currency: "USD"},
		IdempotencyKey: "order-1",
	}, receipts.Issued()[0])

	err = handler.IssueReceiptHandler().Handle(context.Background(), &entity.OrderPaid_v1{
		OrderID: "order-2",
		Total:   entity.Money{Amount: "0.00", Currency: "USD"},
	})
	require.NoError(t, err)
	assert.Len(t, receipts.Issued(), 1)
}

func TestReconciliationHandler(t *testing.T) {
	handler, spreadsheets, _, _ := newHandler(t)

	err := handler.ReconciliationHandler().Handle(context.Background(), &entity.ReconciliationRequired_v1{
		OrderID:          "order-1",
		OrderNumber:      "ORD-20261018-ABCDEF",
		PaymentReference: "SIM-123",
		Amount:           entity.Money{Amount: "25.00", Currency: "USD"},
		Reason:           entity.ErrSoldOut.Error(),
	})
	require.NoError(t, err)

	assert.Equal(t,
		[][]string{{"ORD-20261018-ABCDEF", "SIM-123", "25.00", "USD", "tickets sold out"}},
		spreadsheets.Rows("orders-to-reconcile"),
	)
}

func TestIssueReceiptHandler_failure(t *testing.T) {
	handler, _, receipts, _ := newHandler(t)
	receipts.Err = errors.New("receipts api down")

	err := handler.IssueReceiptHandler().Handle(context.Background(), &entity.OrderPaid_v1{
		OrderID: "order-1",
		Total:   entity.Money{Amount: "10.00", Currency: "USD"},
	})
	assert.Error(t, err)
	assert.Empty(t, receipts.Issued())
}

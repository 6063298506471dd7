package entity

import (
	"time"

	"github.com/google/uuid"
)

// BusEvent is implemented by every message published on the event bus.
type BusEvent interface {
	EventHeader() EventHeader
}

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:          uuid.NewString(),
		PublishedAt: time.Now().UTC(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type Money struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type OrderPlaced_v1 struct {
	Header EventHeader `json:"header"`

	OrderID       string `json:"order_id"`
	OrderNumber   string `json:"order_number"`
	EventID       string `json:"event_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Total         Money  `json:"total"`
	TicketsCount  int    `json:"tickets_count"`
}

func (e OrderPlaced_v1) EventHeader() EventHeader {
	return e.Header
}

type OrderPaid_v1 struct {
	Header EventHeader `json:"header"`

	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	CustomerEmail    string `json:"customer_email"`
	PaymentMethod    string `json:"payment_method"`
	PaymentReference string `json:"payment_reference"`
	Total            Money  `json:"total"`
}

func (e OrderPaid_v1) EventHeader() EventHeader {
	return e.Header
}

type IssuedTicket struct {
	TicketID          string `json:"ticket_id"`
	TicketNumber      string `json:"ticket_number"`
	CategoryName      string `json:"category_name"`
	CredentialPayload string `json:"credential_payload"`
	Price             Money  `json:"price"`
}

type TicketsIssued_v1 struct {
	Header EventHeader `json:"header"`

	OrderID       string         `json:"order_id"`
	OrderNumber   string         `json:"order_number"`
	EventID       string         `json:"event_id"`
	CustomerName  string         `json:"customer_name"`
	CustomerEmail string         `json:"customer_email"`
	Tickets       []IssuedTicket `json:"tickets"`
}

func (e TicketsIssued_v1) EventHeader() EventHeader {
	return e.Header
}

type TicketRedeemed_v1 struct {
	Header EventHeader `json:"header"`

	TicketID     string    `json:"ticket_id"`
	TicketNumber string    `json:"ticket_number"`
	OrderID      string    `json:"order_id"`
	EventID      string    `json:"event_id"`
	RedeemedAt   time.Time `json:"redeemed_at"`
	RedeemedBy   string    `json:"redeemed_by"`
	Location     string    `json:"location"`
}

func (e TicketRedeemed_v1) EventHeader() EventHeader {
	return e.Header
}

type ReconciliationRequired_v1 struct {
	Header EventHeader `json:"header"`

	OrderID          string `json:"order_id"`
	OrderNumber      string `json:"order_number"`
	PaymentReference string `json:"payment_reference"`
	Amount           Money  `json:"amount"`
	Reason           string `json:"reason"`
}

func (e ReconciliationRequired_v1) EventHeader() EventHeader {
	return e.Header
}

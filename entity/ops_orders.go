package entity

import (
	"time"
)

type OpsOrder struct {
	OrderID     string    `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	EventID     string    `json:"event_id"`
	PlacedAt    time.Time `json:"placed_at"`

	CustomerEmail string `json:"customer_email"`
	Total         Money  `json:"total"`
	TicketsCount  int    `json:"tickets_count"`

	PaidAt           time.Time `json:"paid_at"`
	PaymentMethod    string    `json:"payment_method"`
	PaymentReference string    `json:"payment_reference"`

	ReconciliationRequired bool   `json:"reconciliation_required"`
	ReconciliationReason   string `json:"reconciliation_reason,omitempty"`

	Tickets map[string]OpsTicket `json:"tickets"`

	LastUpdate time.Time `json:"last_update"`
}

type OpsTicket struct {
	TicketNumber string `json:"ticket_number"`
	CategoryName string `json:"category_name"`
	Price        Money  `json:"price"`

	IssuedAt   time.Time `json:"issued_at"`
	RedeemedAt time.Time `json:"redeemed_at"`
	RedeemedBy string    `json:"redeemed_by"`
}

package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusValid    TicketStatus = "valid"
	TicketStatusRedeemed TicketStatus = "redeemed"
	TicketStatusVoid     TicketStatus = "void"
)

type PurchasedTicket struct {
	TicketID     string `json:"ticket_id" db:"ticket_id"`
	OrderID      string `json:"order_id" db:"order_id"`
	EventID      string `json:"event_id" db:"event_id"`
	CategoryID   string `json:"category_id" db:"category_id"`
	Seq          int    `json:"seq" db:"seq"`
	TicketNumber string `json:"ticket_number" db:"ticket_number"`

	CredentialPayload string `json:"credential_payload" db:"credential_payload"`
	CredentialDigest  string `json:"credential_digest" db:"credential_digest"`

	Status TicketStatus `json:"status" db:"status"`

	CustomerName string          `json:"customer_name" db:"customer_name"`
	CategoryName string          `json:"category_name" db:"category_name"`
	PricePaid    decimal.Decimal `json:"price_paid" db:"price_paid"`
	Currency     string          `json:"currency" db:"currency"`

	IssuedAt           time.Time  `json:"issued_at" db:"issued_at"`
	RedeemedAt         *time.Time `json:"redeemed_at,omitempty" db:"redeemed_at"`
	RedeemedBy         *string    `json:"redeemed_by,omitempty" db:"redeemed_by"`
	RedemptionLocation *string    `json:"redemption_location,omitempty" db:"redemption_location"`
}

// CredentialPayload is the content encoded into a ticket's QR code.
type CredentialPayload struct {
	TicketID     string `json:"ticket_id"`
	OrderID      string `json:"order_id"`
	EventID      string `json:"event_id"`
	TicketNumber string `json:"ticket_number"`
	IssuedAt     int64  `json:"issued_at"`
}

func NewCredentialPayload(ticket PurchasedTicket) CredentialPayload {
	return CredentialPayload{
		TicketID:     ticket.TicketID,
		OrderID:      ticket.OrderID,
		EventID:      ticket.EventID,
		TicketNumber: ticket.TicketNumber,
		IssuedAt:     ticket.IssuedAt.UnixMilli(),
	}
}

// Bytes is the canonical serialization. The digest stored for a ticket is
// computed over exactly these bytes.
func (p CredentialPayload) Bytes() []byte {
	b, err := json.Marshal(p)
	if err != nil {
		// struct of strings and an int64 always marshals
		panic(err)
	}
	return b
}

func Digest(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Issuance is the outcome of issuing tickets for an order.
type Issuance struct {
	OrderID       string            `json:"order_id"`
	Tickets       []PurchasedTicket `json:"tickets"`
	AlreadyIssued bool              `json:"already_issued"`
}

// Redemption is returned for an accepted credential.
type Redemption struct {
	TicketNumber string    `json:"ticket_number" db:"ticket_number"`
	CustomerName string    `json:"customer_name" db:"customer_name"`
	CategoryName string    `json:"category_name" db:"category_name"`
	RedeemedAt   time.Time `json:"redeemed_at" db:"redeemed_at"`

	TicketID string `json:"-" db:"ticket_id"`
	OrderID  string `json:"-" db:"order_id"`
	EventID  string `json:"-" db:"event_id"`
}

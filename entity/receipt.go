package entity

import "time"

type IssueReceiptRequest struct {
	// ReferenceID is what the receipt is issued for, the order number here.
	ReferenceID    string
	Price          Money
	IdempotencyKey string
}

type IssueReceiptResponse struct {
	ReceiptNumber string    `json:"number"`
	IssuedAt      time.Time `json:"issued_at"`
}

package entity

import "github.com/shopspring/decimal"

const CaptureStatusCompleted = "COMPLETED"

type AuthorizationRequest struct {
	OrderID     string
	Description string
	Amount      Money
}

type Authorization struct {
	AuthorizationID string `json:"authorization_id"`
	ApprovalURL     string `json:"approval_url"`
}

type Capture struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        Money  `json:"amount"`
}

func (c Capture) Completed() bool {
	return c.Status == CaptureStatusCompleted
}

// Covers is true when the captured amount is exactly the order total.
func (c Capture) Covers(order Order) bool {
	if c.Amount.Currency != order.Currency {
		return false
	}

	amount, err := decimal.NewFromString(c.Amount.Amount)
	if err != nil {
		return false
	}

	return amount.Equal(order.TotalAmount)
}

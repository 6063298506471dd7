package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrEventNotFound         = errors.New("event not found")
	ErrInvalidEvent          = errors.New("event title, start and currency are required")
	ErrEventInPast           = errors.New("event has already started")
	ErrCategoryNotFound      = errors.New("ticket category not found")
	ErrInsufficientInventory = errors.New("not enough tickets available")
	ErrMissingCustomerFields = errors.New("customer name and email are required")
	ErrInvalidLineItems      = errors.New("at least one line item with positive quantity is required")
	ErrCurrencyMismatch      = errors.New("line items must share the order currency")

	ErrOrderNotFound              = errors.New("order not found")
	ErrAlreadyPaid                = errors.New("order already paid")
	ErrPaymentNotCompleted        = errors.New("payment not completed")
	ErrProviderUnavailable        = errors.New("payment provider unavailable")
	ErrProviderCredentialsMissing = errors.New("payment provider credentials missing")
	ErrAuthorizationMismatch      = errors.New("authorization does not belong to order")
	ErrAlreadyAuthorized          = errors.New("order already has an authorization")

	ErrOrderNotPaid       = errors.New("order not paid")
	ErrSoldOut            = errors.New("tickets sold out")
	ErrSelectionNotFound  = errors.New("ticket selection not found")
	ErrTicketNotFound     = errors.New("ticket not found")
	ErrAlreadyRedeemed    = errors.New("ticket already redeemed")
	ErrTicketVoided       = errors.New("ticket voided")
	ErrMissingCredentials = errors.New("credential payload is required")
)

// RedemptionError is a rejected redemption. It unwraps to one of
// ErrTicketNotFound, ErrAlreadyRedeemed or ErrTicketVoided.
type RedemptionError struct {
	Kind         error
	TicketNumber string
	RedeemedAt   *time.Time
}

func (e *RedemptionError) Error() string {
	if e.TicketNumber == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.TicketNumber)
}

func (e *RedemptionError) Unwrap() error {
	return e.Kind
}

package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sunny07-bar/website-sub000/entity"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{entity.ErrInvalidEvent, http.StatusBadRequest},
	{entity.ErrEventInPast, http.StatusBadRequest},
	{entity.ErrCategoryNotFound, http.StatusBadRequest},
	{entity.ErrMissingCustomerFields, http.StatusBadRequest},
	{entity.ErrInvalidLineItems, http.StatusBadRequest},
	{entity.ErrCurrencyMismatch, http.StatusBadRequest},
	{entity.ErrMissingCredentials, http.StatusBadRequest},
	{entity.ErrAuthorizationMismatch, http.StatusBadRequest},

	{entity.ErrEventNotFound, http.StatusNotFound},
	{entity.ErrOrderNotFound, http.StatusNotFound},
	{entity.ErrTicketNotFound, http.StatusNotFound},

	{entity.ErrInsufficientInventory, http.StatusConflict},
	{entity.ErrSoldOut, http.StatusConflict},
	{entity.ErrAlreadyPaid, http.StatusConflict},
	{entity.ErrAlreadyAuthorized, http.StatusConflict},
	{entity.ErrOrderNotPaid, http.StatusConflict},
	{entity.ErrSelectionNotFound, http.StatusConflict},
	{entity.ErrAlreadyRedeemed, http.StatusConflict},
	{entity.ErrTicketVoided, http.StatusConflict},

	{entity.ErrPaymentNotCompleted, http.StatusPaymentRequired},
	{entity.ErrProviderUnavailable, http.StatusBadGateway},
	{entity.ErrProviderCredentialsMissing, http.StatusServiceUnavailable},
}

// httpError maps domain errors to their status, anything else ends as 500.
func httpError(err error, operation string) error {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return echo.NewHTTPError(e.status, e.err.Error())
		}
	}

	return fmt.Errorf("could not %s: %w", operation, err)
}

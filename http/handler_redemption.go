package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sunny07-bar/website-sub000/entity"
)

type postRedeemRequest struct {
	// Payload is the scanned QR content, byte for byte.
	Payload  string `json:"payload"`
	StaffID  string `json:"staff_id"`
	Location string `json:"location"`
}

type redeemResponse struct {
	Success      bool       `json:"success"`
	ErrorKind    string     `json:"error_kind,omitempty"`
	TicketNumber string     `json:"ticket_number,omitempty"`
	CustomerName string     `json:"customer_name,omitempty"`
	CategoryName string     `json:"category_name,omitempty"`
	RedeemedAt   *time.Time `json:"redeemed_at,omitempty"`
}

func (s Server) PostRedeem(c echo.Context) error {
	var request postRedeemRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	redemption, err := s.service.Redeem(c.Request().Context(), request.Payload, request.StaffID, request.Location)

	var rejected *entity.RedemptionError
	if errors.As(err, &rejected) {
		status := http.StatusConflict
		kind := "already_redeemed"
		switch {
		case errors.Is(rejected, entity.ErrTicketNotFound):
			status = http.StatusNotFound
			kind = "ticket_not_found"
		case errors.Is(rejected, entity.ErrTicketVoided):
			kind = "ticket_voided"
		}

		return c.JSON(status, redeemResponse{
			Success:      false,
			ErrorKind:    kind,
			TicketNumber: rejected.TicketNumber,
			RedeemedAt:   rejected.RedeemedAt,
		})
	}
	if err != nil {
		return httpError(err, "redeem ticket")
	}

	return c.JSON(http.StatusOK, redeemResponse{
		Success:      true,
		TicketNumber: redemption.TicketNumber,
		CustomerName: redemption.CustomerName,
		CategoryName: redemption.CategoryName,
		RedeemedAt:   &redemption.RedeemedAt,
	})
}

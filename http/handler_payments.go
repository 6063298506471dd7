package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sunny07-bar/website-sub000/service"
)

type postCaptureRequest struct {
	AuthorizationID string `json:"authorization_id"`
}

type captureResponse struct {
	TransactionID string           `json:"transaction_id"`
	Amount        string           `json:"amount"`
	Currency      string           `json:"currency"`
	Status        string           `json:"status"`
	OrderNumber   string           `json:"order_number"`
	Tickets       []ticketResponse `json:"tickets"`
}

func (s Server) PostAuthorize(c echo.Context) error {
	authorization, err := s.service.Authorize(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return httpError(err, "authorize payment")
	}

	return c.JSON(http.StatusOK, authorization)
}

func (s Server) PostCapture(c echo.Context) error {
	var request postCaptureRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	result, err := s.service.Capture(c.Request().Context(), c.Param("order_id"), request.AuthorizationID)
	if err != nil {
		return httpError(err, "capture payment")
	}

	return c.JSON(http.StatusOK, newCaptureResponse(result))
}

func (s Server) PostCardPayment(c echo.Context) error {
	result, err := s.service.PayWithCard(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return httpError(err, "pay with card")
	}

	return c.JSON(http.StatusOK, newCaptureResponse(result))
}

// GetPaymentReturn is where the provider sends the buyer after approval.
func (s Server) GetPaymentReturn(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	result, err := s.service.Capture(c.Request().Context(), c.QueryParam("order_id"), token)
	if err != nil {
		return httpError(err, "capture payment")
	}

	target := s.redirectTarget(result.Order.OrderNumber)
	if target == "" {
		return c.JSON(http.StatusOK, newCaptureResponse(result))
	}

	return c.Redirect(http.StatusSeeOther, target)
}

func newCaptureResponse(result service.CaptureResult) captureResponse {
	return captureResponse{
		TransactionID: result.Capture.TransactionID,
		Amount:        result.Order.Money().Amount,
		Currency:      result.Order.Currency,
		Status:        "completed",
		OrderNumber:   result.Order.OrderNumber,
		Tickets:       newTicketsResponse(result.Issuance.Tickets),
	}
}

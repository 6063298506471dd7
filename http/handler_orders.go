package http

import (
	"net/http"
	"net/url"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/service"
)

type postOrderRequest struct {
	CustomerName  string                 `json:"customer_name"`
	CustomerEmail string                 `json:"customer_email"`
	CustomerPhone string                 `json:"customer_phone"`
	Items         []postOrderItemRequest `json:"items"`

	// PaymentMethod "paypal" authorizes the payment right away.
	PaymentMethod string `json:"payment_method"`
}

type postOrderItemRequest struct {
	// CategoryID is empty for the base category of a flat-priced event.
	CategoryID string `json:"category_id"`
	Quantity   int    `json:"quantity"`
}

type postOrderResponse struct {
	OrderID         string                `json:"order_id"`
	OrderNumber     string                `json:"order_number"`
	TotalAmount     string                `json:"total_amount"`
	Currency        string                `json:"currency"`
	PaymentRequired bool                  `json:"payment_required"`
	PaymentHandle   *entity.Authorization `json:"payment_handle,omitempty"`
}

type ticketResponse struct {
	TicketID          string `json:"ticket_id"`
	TicketNumber      string `json:"ticket_number"`
	CategoryName      string `json:"category_name"`
	Price             string `json:"price"`
	Currency          string `json:"currency"`
	Status            string `json:"status"`
	CredentialPayload string `json:"credential_payload"`
}

type orderResponse struct {
	OrderID          string              `json:"order_id"`
	OrderNumber      string              `json:"order_number"`
	EventID          string              `json:"event_id"`
	CustomerName     string              `json:"customer_name"`
	CustomerEmail    string              `json:"customer_email"`
	Lines            []orderLineResponse `json:"lines"`
	TotalAmount      string              `json:"total_amount"`
	Currency         string              `json:"currency"`
	Status           string              `json:"status"`
	PaymentStatus    string              `json:"payment_status"`
	PaymentMethod    *string             `json:"payment_method,omitempty"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
}

type orderLineResponse struct {
	CategoryName string `json:"category_name"`
	UnitPrice    string `json:"unit_price"`
	Quantity     int    `json:"quantity"`
}

type orderDetailsResponse struct {
	Order          orderResponse    `json:"order"`
	Tickets        []ticketResponse `json:"tickets"`
	RedirectTarget string           `json:"redirect_target,omitempty"`
}

func (s Server) PostOrders(c echo.Context) error {
	var request postOrderRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	eventID := c.Param("event_id")
	items := lo.Map(request.Items, func(i postOrderItemRequest, _ int) entity.LineItem {
		ref := entity.ExplicitCategory(i.CategoryID)
		if i.CategoryID == "" {
			ref = entity.SyntheticCategory(eventID)
		}
		return entity.LineItem{Category: ref, Quantity: i.Quantity}
	})

	order, err := s.service.CreateOrder(
		c.Request().Context(),
		eventID,
		items,
		entity.Customer{
			Name:  request.CustomerName,
			Email: request.CustomerEmail,
			Phone: request.CustomerPhone,
		},
	)
	if err != nil {
		return httpError(err, "create order")
	}

	resp := postOrderResponse{
		OrderID:         order.OrderID,
		OrderNumber:     order.OrderNumber,
		TotalAmount:     order.Money().Amount,
		Currency:        order.Currency,
		PaymentRequired: order.PaymentRequired(),
	}

	if order.PaymentRequired() && request.PaymentMethod == entity.PaymentMethodPayPal {
		authorization, err := s.service.Authorize(c.Request().Context(), order.OrderID)
		if err != nil {
			// the order stays, the client can authorize again
			log.FromContext(c.Request().Context()).WithError(err).Warn("Could not authorize payment of new order")
		} else {
			resp.PaymentHandle = &authorization
		}
	}

	return c.JSON(http.StatusCreated, resp)
}

func (s Server) GetOrder(c echo.Context) error {
	details, err := s.service.GetOrder(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return httpError(err, "get order")
	}

	return c.JSON(http.StatusOK, s.newOrderDetailsResponse(details, false))
}

func (s Server) GetOrderByNumber(c echo.Context) error {
	details, err := s.service.GetOrderByNumber(c.Request().Context(), c.Param("order_number"))
	if err != nil {
		return httpError(err, "get order by number")
	}

	return c.JSON(http.StatusOK, s.newOrderDetailsResponse(details, false))
}

func (s Server) PostComplete(c echo.Context) error {
	details, err := s.service.Complete(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return httpError(err, "complete order")
	}

	return c.JSON(http.StatusOK, s.newOrderDetailsResponse(details, true))
}

func (s Server) redirectTarget(orderNumber string) string {
	if s.orderRedirectURL == "" {
		return ""
	}

	u, err := url.Parse(s.orderRedirectURL)
	if err != nil {
		return s.orderRedirectURL
	}
	q := u.Query()
	q.Set("order", orderNumber)
	u.RawQuery = q.Encode()

	return u.String()
}

func (s Server) newOrderDetailsResponse(details service.OrderDetails, withRedirect bool) orderDetailsResponse {
	order := details.Order

	resp := orderDetailsResponse{
		Order: orderResponse{
			OrderID:       order.OrderID,
			OrderNumber:   order.OrderNumber,
			EventID:       order.EventID,
			CustomerName:  order.Name,
			CustomerEmail: order.Email,
			Lines: lo.Map(order.Lines, func(l entity.OrderLine, _ int) orderLineResponse {
				return orderLineResponse{
					CategoryName: l.CategoryName,
					UnitPrice:    l.UnitPrice.StringFixed(2),
					Quantity:     l.Quantity,
				}
			}),
			TotalAmount:      order.Money().Amount,
			Currency:         order.Currency,
			Status:           string(order.Status),
			PaymentStatus:    string(order.PaymentStatus),
			PaymentMethod:    order.PaymentMethod,
			PaymentReference: order.PaymentReference,
		},
		Tickets: newTicketsResponse(details.Tickets),
	}
	if withRedirect {
		resp.RedirectTarget = s.redirectTarget(order.OrderNumber)
	}

	return resp
}

func newTicketsResponse(tickets []entity.PurchasedTicket) []ticketResponse {
	return lo.Map(tickets, func(t entity.PurchasedTicket, _ int) ticketResponse {
		return ticketResponse{
			TicketID:          t.TicketID,
			TicketNumber:      t.TicketNumber,
			CategoryName:      t.CategoryName,
			Price:             t.PricePaid.StringFixed(2),
			Currency:          t.Currency,
			Status:            string(t.Status),
			CredentialPayload: t.CredentialPayload,
		}
	})
}

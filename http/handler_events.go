package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/sunny07-bar/website-sub000/entity"
)

type postEventRequest struct {
	Title      string                `json:"title"`
	StartsAt   time.Time             `json:"starts_at"`
	EndsAt     *time.Time            `json:"ends_at"`
	Location   string                `json:"location"`
	BasePrice  decimal.NullDecimal   `json:"base_price"`
	Currency   string                `json:"currency"`
	Categories []postCategoryRequest `json:"categories"`
}

type postCategoryRequest struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	QuantityTotal *int            `json:"quantity_total"`
}

type categoryResponse struct {
	CategoryID        string `json:"category_id"`
	Name              string `json:"name"`
	Price             string `json:"price"`
	Currency          string `json:"currency"`
	QuantityTotal     *int   `json:"quantity_total"`
	QuantitySold      int    `json:"quantity_sold"`
	AvailableCapacity *int   `json:"available_capacity"`
}

type eventResponse struct {
	EventID    string             `json:"event_id"`
	Title      string             `json:"title"`
	StartsAt   time.Time          `json:"starts_at"`
	EndsAt     *time.Time         `json:"ends_at,omitempty"`
	Location   string             `json:"location"`
	BasePrice  *string            `json:"base_price"`
	Currency   string             `json:"currency"`
	Categories []categoryResponse `json:"categories"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	event := entity.Event{
		Title:     request.Title,
		StartsAt:  request.StartsAt,
		EndsAt:    request.EndsAt,
		Location:  request.Location,
		BasePrice: request.BasePrice,
		Currency:  request.Currency,
		Categories: lo.Map(request.Categories, func(c postCategoryRequest, _ int) entity.TicketCategory {
			return entity.TicketCategory{
				Name:          c.Name,
				Price:         c.Price,
				QuantityTotal: c.QuantityTotal,
			}
		}),
	}

	event, err := s.service.CreateEvent(c.Request().Context(), event)
	if err != nil {
		return httpError(err, "create event")
	}

	return c.JSON(http.StatusCreated, newEventResponse(event))
}

func (s Server) GetEvent(c echo.Context) error {
	event, err := s.service.GetEvent(c.Request().Context(), c.Param("event_id"))
	if err != nil {
		return httpError(err, "get event")
	}

	return c.JSON(http.StatusOK, newEventResponse(event))
}

func newEventResponse(event entity.Event) eventResponse {
	resp := eventResponse{
		EventID:  event.EventID,
		Title:    event.Title,
		StartsAt: event.StartsAt,
		EndsAt:   event.EndsAt,
		Location: event.Location,
		Currency: event.Currency,
		Categories: lo.Map(event.Categories, func(c entity.TicketCategory, _ int) categoryResponse {
			var available *int
			if c.QuantityTotal != nil {
				available = lo.ToPtr(c.AvailableCapacity())
			}

			return categoryResponse{
				CategoryID:        c.CategoryID,
				Name:              c.Name,
				Price:             c.Price.StringFixed(2),
				Currency:          c.Currency,
				QuantityTotal:     c.QuantityTotal,
				QuantitySold:      c.QuantitySold,
				AvailableCapacity: available,
			}
		}),
	}
	if event.BasePrice.Valid {
		resp.BasePrice = lo.ToPtr(event.BasePrice.Decimal.StringFixed(2))
	}

	return resp
}

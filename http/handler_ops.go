package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

func (s Server) GetOpsOrders(c echo.Context) error {
	paidDate := c.QueryParam("paid_date")

	if paidDate != "" {
		_, err := time.Parse("2006-01-02", paidDate)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid paid_date format, expected YYYY-MM-DD: ", err.Error())
		}
	}

	orders, err := s.opsReadModel.AllOrders(c.Request().Context(), paidDate)
	if err != nil {
		return httpError(err, "get ops orders")
	}

	return c.JSON(http.StatusOK, orders)
}

func (s Server) GetOpsOrder(c echo.Context) error {
	order, err := s.opsReadModel.OrderReadModel(c.Request().Context(), c.Param("order_id"))
	if err != nil {
		return httpError(err, "get ops order")
	}

	return c.JSON(http.StatusOK, order)
}

package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/sunny07-bar/website-sub000/entity"
	"github.com/sunny07-bar/website-sub000/service"
)

type Service interface {
	CreateEvent(ctx context.Context, event entity.Event) (entity.Event, error)
	GetEvent(ctx context.Context, eventID string) (entity.Event, error)
	CreateOrder(ctx context.Context, eventID string, items []entity.LineItem, customer entity.Customer) (entity.Order, error)
	GetOrder(ctx context.Context, orderID string) (service.OrderDetails, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (service.OrderDetails, error)
	Authorize(ctx context.Context, orderID string) (entity.Authorization, error)
	Capture(ctx context.Context, orderID string, authorizationID string) (service.CaptureResult, error)
	PayWithCard(ctx context.Context, orderID string) (service.CaptureResult, error)
	Complete(ctx context.Context, orderID string) (service.OrderDetails, error)
	Redeem(ctx context.Context, payload string, staffID string, location string) (entity.Redemption, error)
}

type OpsOrdersReadModel interface {
	AllOrders(ctx context.Context, paidDate string) ([]entity.OpsOrder, error)
	OrderReadModel(ctx context.Context, orderID string) (entity.OpsOrder, error)
}

type Server struct {
	addr             string
	e                *echo.Echo
	service          Service
	opsReadModel     OpsOrdersReadModel
	orderRedirectURL string
}

func NewServer(
	addr string,
	service Service,
	opsReadModel OpsOrdersReadModel,
	orderRedirectURL string,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("svc-tickets"))

	server := &Server{
		addr:             addr,
		e:                e,
		service:          service,
		opsReadModel:     opsReadModel,
		orderRedirectURL: orderRedirectURL,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/events", server.PostEvents)
	e.GET("/events/:event_id", server.GetEvent)
	e.POST("/events/:event_id/orders", server.PostOrders)

	e.GET("/orders/:order_id", server.GetOrder)
	e.GET("/orders/by-number/:order_number", server.GetOrderByNumber)
	e.POST("/orders/:order_id/payments/authorize", server.PostAuthorize)
	e.POST("/orders/:order_id/payments/capture", server.PostCapture)
	e.POST("/orders/:order_id/payments/card", server.PostCardPayment)
	e.POST("/orders/:order_id/complete", server.PostComplete)
	e.GET("/payments/return", server.GetPaymentReturn)

	e.POST("/tickets/redeem", server.PostRedeem)

	e.GET("/ops/orders", server.GetOpsOrders)
	e.GET("/ops/orders/:order_id", server.GetOpsOrder)

	return server
}

func (s Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/sunny07-bar/website-sub000/app"
	"github.com/sunny07-bar/website-sub000/gateway"
	"github.com/sunny07-bar/website-sub000/tracing"
)

type options struct {
	HTTPAddr       string `long:"http-addr" env:"HTTP_ADDR" default:":8080" description:"HTTP listen address"`
	PostgresURL    string `long:"postgres-url" env:"POSTGRES_URL" required:"true" description:"Postgres connection string"`
	RedisAddr      string `long:"redis-addr" env:"REDIS_ADDR" required:"true" description:"Redis address"`
	GatewayAddr    string `long:"gateway-addr" env:"GATEWAY_ADDR" required:"true" description:"Receipts, files and spreadsheets gateway"`
	JaegerEndpoint string `long:"jaeger-endpoint" env:"JAEGER_ENDPOINT" description:"Jaeger collector endpoint, defaults to the gateway one"`

	PayPal struct {
		BaseAPIURL   string `long:"base-api-url" env:"BASE_API_URL" default:"https://api-m.sandbox.paypal.com" description:"PayPal REST API"`
		ClientID     string `long:"client-id" env:"CLIENT_ID" description:"PayPal client ID"`
		ClientSecret string `long:"client-secret" env:"CLIENT_SECRET" description:"PayPal client secret"`
		ReturnURL    string `long:"return-url" env:"RETURN_URL" description:"where the buyer lands after approving"`
		CancelURL    string `long:"cancel-url" env:"CANCEL_URL" description:"where the buyer lands after cancelling"`
	} `group:"PayPal" namespace:"paypal" env-namespace:"PAYPAL"`

	OrderRedirectURL string `long:"order-redirect-url" env:"ORDER_REDIRECT_URL" description:"order confirmation page"`
	RebuildReadModel bool   `long:"rebuild-read-model" env:"REBUILD_READ_MODEL" description:"replay the events log into the ops read model"`
}

func main() {
	var opts options
	if _, err := flags.Parse(&opts); err != nil {
		if flags.WroteHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := log.FromContext(ctx)

	sqlDB, err := otelsql.Open("postgres", opts.PostgresURL, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		logger.WithError(err).Fatal("Could not open database")
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
	})
	defer redisClient.Close()

	apiClients, err := clients.NewClients(opts.GatewayAddr, func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
		return nil
	})
	if err != nil {
		logger.WithError(err).Fatal("Could not create gateway clients")
	}

	traceProvider, err := tracing.ConfigureTraceProvider(opts.JaegerEndpoint, opts.GatewayAddr)
	if err != nil {
		logger.WithError(err).Fatal("Could not configure tracing")
	}

	gw := gateway.New(apiClients)

	paypal := gateway.NewPayPalClient(gateway.PayPalConfig{
		BaseAPIURL:   opts.PayPal.BaseAPIURL,
		ClientID:     opts.PayPal.ClientID,
		ClientSecret: opts.PayPal.ClientSecret,
		ReturnURL:    opts.PayPal.ReturnURL,
		CancelURL:    opts.PayPal.CancelURL,
	})
	if opts.PayPal.ClientID == "" || opts.PayPal.ClientSecret == "" {
		logger.Warn("PayPal credentials are not set, PayPal payments will fail")
	}

	a, err := app.New(
		app.Config{
			HTTPAddr:         opts.HTTPAddr,
			OrderRedirectURL: opts.OrderRedirectURL,
			RebuildReadModel: opts.RebuildReadModel,
		},
		db,
		redisClient,
		gw,
		gw,
		gw,
		paypal,
		traceProvider,
	)
	if err != nil {
		logger.WithError(err).Fatal("Could not create app")
	}

	if err := a.Run(ctx); err != nil {
		logger.WithError(err).Fatal("App failed")
	}
}

package app

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	dbLib "github.com/sunny07-bar/website-sub000/db"
	"github.com/sunny07-bar/website-sub000/http"
	migrations "github.com/sunny07-bar/website-sub000/migration"
	"github.com/sunny07-bar/website-sub000/pubsub"
	"github.com/sunny07-bar/website-sub000/pubsub/event"
	"github.com/sunny07-bar/website-sub000/pubsub/outbox"
	"github.com/sunny07-bar/website-sub000/service"
)

func init() {
	log.Init(logrus.InfoLevel)
}

type Config struct {
	HTTPAddr         string
	OrderRedirectURL string

	// RebuildReadModel replays the events log into the ops read model on start.
	RebuildReadModel bool
}

type App struct {
	db               *sqlx.DB
	watermillRouter  *message.Router
	httpServer       *http.Server
	opsReadModel     dbLib.OpsOrdersReadModel
	dataLake         dbLib.DataLake
	traceProvider    *tracesdk.TracerProvider
	rebuildReadModel bool
}

func New(
	config Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	spreadsheetsService event.SpreadsheetsAPI,
	receiptsService event.ReceiptsService,
	filesService event.FilesAPI,
	paymentProvider service.PaymentProvider,
	traceProvider *tracesdk.TracerProvider,
) (App, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher, err := pubsub.NewRedisPublisher(redisClient, watermillLogger)
	if err != nil {
		return App{}, err
	}

	opsReadModel := dbLib.NewOpsOrdersReadModel(db)
	dataLake := dbLib.NewDataLake(db)

	svc := service.New(
		dbLib.NewEventsRepository(db),
		dbLib.NewOrdersRepository(db),
		dbLib.NewTicketsRepository(db),
		dbLib.NewPaymentAuditRepository(db),
		paymentProvider,
	)

	eventHandler := event.NewHandler(
		spreadsheetsService,
		receiptsService,
		filesService,
	)

	watermillRouter, err := pubsub.NewWatermillRouter(
		outbox.NewPostgresSubscriber(db.DB, watermillLogger),
		redisPublisher,
		redisClient,
		event.NewProcessorConfig(redisClient, watermillLogger),
		eventHandler,
		opsReadModel,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		return App{}, fmt.Errorf("failed to create watermill router: %w", err)
	}

	httpServer := http.NewServer(
		config.HTTPAddr,
		svc,
		opsReadModel,
		config.OrderRedirectURL,
	)

	return App{
		db:               db,
		watermillRouter:  watermillRouter,
		httpServer:       httpServer,
		opsReadModel:     opsReadModel,
		dataLake:         dataLake,
		traceProvider:    traceProvider,
		rebuildReadModel: config.RebuildReadModel,
	}, nil
}

func (a App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(a.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.rebuildReadModel {
		g.Go(func() error {
			err := migrations.MigrateReadModel(ctx, a.dataLake, a.opsReadModel)
			if err != nil {
				log.FromContext(ctx).WithError(err).Error("Failed to migrate read model")
			}
			return nil
		})
	}

	if a.traceProvider != nil {
		g.Go(func() error {
			<-ctx.Done()
			return a.traceProvider.Shutdown(context.Background())
		})
	}

	g.Go(func() error {
		return a.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the service is not healthy before the router is running
		<-a.watermillRouter.Running()

		return a.httpServer.Run(ctx)
	})

	return g.Wait()
}

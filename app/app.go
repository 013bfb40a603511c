package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	dbLib "ticketing/db"
	"ticketing/http"
	"ticketing/payments"
	"ticketing/pricing"
	"ticketing/pubsub"
	"ticketing/pubsub/event"
	"ticketing/pubsub/outbox"
	"ticketing/ticketing"
)

type Config struct {
	HTTPAddr       string
	Currency       string
	PaymentTimeout time.Duration
	Rates          pricing.Rates
}

type App struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
	traceProvider   *tracesdk.TracerProvider
}

func New(
	config Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	paymentProcessor payments.Processor,
	mailer event.Mailer,
	traceProvider *tracesdk.TracerProvider,
) (App, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))
	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)

	ticketsRepo := dbLib.NewTicketsRepository(db)
	eventsRepo := dbLib.NewEventsRepository(db)
	usersRepo := dbLib.NewUsersRepository(db)
	dataLake := dbLib.NewDataLake(db)

	manager := ticketing.NewManager(ticketsRepo, eventsRepo, usersRepo, config.Rates, config.Currency)

	paymentGateway := payments.NewGateway(
		paymentProcessor,
		manager,
		ticketsRepo,
		eventsRepo,
		payments.Config{
			Currency: config.Currency,
			Timeout:  config.PaymentTimeout,
			Rates:    config.Rates,
		},
	)

	eventsHandler := event.NewHandler(mailer, ticketsRepo, eventsRepo, usersRepo, paymentGateway)

	postgresSubscriber, err := outbox.NewPostgresSubscriber(db, watermillLogger)
	if err != nil {
		return App{}, err
	}

	watermillRouter, err := pubsub.NewWatermillRouter(
		postgresSubscriber,
		redisPublisher,
		pubsub.NewRedisSubscriber(redisClient, "svc-ticketing.events_splitter", watermillLogger),
		pubsub.NewRedisSubscriber(redisClient, "svc-ticketing.store_to_data_lake", watermillLogger),
		event.NewProcessorConfig(redisClient, watermillLogger),
		eventsHandler,
		dataLake,
		watermillLogger,
	)
	if err != nil {
		return App{}, fmt.Errorf("failed to create watermill router: %w", err)
	}

	httpServer := http.NewServer(
		config.HTTPAddr,
		manager,
		paymentGateway,
		eventsRepo,
		usersRepo,
		dataLake,
	)

	return App{
		db:              db,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
		traceProvider:   traceProvider,
	}, nil
}

func (a App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(a.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		return a.traceProvider.Shutdown(context.Background())
	})

	g.Go(func() error {
		return a.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the app is not healthy before the router is ready
		<-a.watermillRouter.Running()

		return a.httpServer.Run(ctx)
	})

	return g.Wait()
}

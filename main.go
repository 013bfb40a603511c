package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"ticketing/app"
	"ticketing/config"
	"ticketing/gateway"
	"ticketing/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(flagsErr.Message)
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := cfg.Level()
	if err != nil {
		panic(err)
	}
	log.Init(level)

	rates, err := cfg.VatRates()
	if err != nil {
		panic(err)
	}

	traceProvider, err := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint)
	if err != nil {
		panic(err)
	}

	sqlDB, err := otelsql.Open("postgres", cfg.PostgresURL, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(sqlDB, "postgres")
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	defer redisClient.Close()

	stripeClient := gateway.NewStripeClient(cfg.StripeConfig(), &http.Client{
		Timeout:   cfg.PaymentTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	})
	mailer := gateway.NewSMTPMailer(cfg.SMTPConfig())

	a, err := app.New(
		app.Config{
			HTTPAddr:       cfg.HTTPAddr,
			Currency:       cfg.Currency,
			PaymentTimeout: cfg.PaymentTimeout,
			Rates:          rates,
		},
		db,
		redisClient,
		stripeClient,
		mailer,
		traceProvider,
	)
	if err != nil {
		panic(err)
	}

	if err := a.Run(ctx); err != nil {
		panic(err)
	}
}

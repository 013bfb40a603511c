package outbox

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-sql/v2/pkg/sql"
	"github.com/ThreeDotsLabs/watermill/components/forwarder"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
)

const outboxTopic = "events_to_forward"

// NewPublisherForDb stores messages in the outbox table within tx.
// They are visible to the forwarder only after tx commits.
func NewPublisherForDb(ctx context.Context, tx *sqlx.Tx) (message.Publisher, error) {
	sqlPublisher, err := sql.NewPublisher(
		tx,
		sql.PublisherConfig{
			SchemaAdapter: sql.DefaultPostgreSQLSchema{},
		},
		log.NewWatermill(log.FromContext(ctx)),
	)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox publisher: %w", err)
	}

	return forwarder.NewPublisher(sqlPublisher, forwarder.PublisherConfig{
		ForwarderTopic: outboxTopic,
	}), nil
}

// InitializeSchema creates the outbox table. Publishers bound to a transaction
// cannot create it themselves.
func InitializeSchema(ctx context.Context, db *sqlx.DB) error {
	for _, query := range (sql.DefaultPostgreSQLSchema{}).SchemaInitializingQueries(outboxTopic) {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("could not initialize outbox schema: %w", err)
		}
	}

	return nil
}

func NewPostgresSubscriber(db *sqlx.DB, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	sub, err := sql.NewSubscriber(db, sql.SubscriberConfig{
		SchemaAdapter:    sql.DefaultPostgreSQLSchema{},
		OffsetsAdapter:   sql.DefaultPostgreSQLOffsetsAdapter{},
		InitializeSchema: true,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("could not create outbox subscriber: %w", err)
	}

	return sub, nil
}

// AddForwarderHandler moves committed outbox messages to publisher as a handler of router.
func AddForwarderHandler(
	postgresSubscriber message.Subscriber,
	publisher message.Publisher,
	router *message.Router,
	logger watermill.LoggerAdapter,
) error {
	_, err := forwarder.NewForwarder(
		postgresSubscriber,
		publisher,
		logger,
		forwarder.Config{
			ForwarderTopic: outboxTopic,
			Router:         router,
			Middlewares: []message.HandlerMiddleware{
				func(h message.HandlerFunc) message.HandlerFunc {
					return func(msg *message.Message) ([]*message.Message, error) {
						logger.Debug("Forwarding message", watermill.LogFields{
							"message_uuid": msg.UUID,
							"payload":      string(msg.Payload),
							"metadata":     msg.Metadata,
						})

						return h(msg)
					}
				},
			},
		},
	)
	if err != nil {
		return fmt.Errorf("could not create forwarder: %w", err)
	}

	return nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"ticketing/entity"
	"ticketing/pubsub/bus"
	"ticketing/pubsub/outbox"
)

const (
	postgresUniqueViolation      = "unique_violation"
	postgresSerializationFailure = "serialization_failure"
)

func UpdateInTx(
	ctx context.Context,
	db *sqlx.DB,
	isolation sql.IsolationLevel,
	fn func(ctx context.Context, tx *sqlx.Tx) error,
) (err error) {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				err = errors.Join(err, rollbackErr)
			}
			return
		}

		err = tx.Commit()
	}()

	return fn(ctx, tx)
}

// publishInTx writes events to the outbox, so they are only forwarded when tx commits.
func publishInTx(ctx context.Context, tx *sqlx.Tx, events ...entity.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
	if err != nil {
		return err
	}

	eventBus, err := bus.NewEventBus(outboxPublisher)
	if err != nil {
		return fmt.Errorf("could not create event bus: %w", err)
	}

	for _, event := range events {
		if err := eventBus.Publish(ctx, event); err != nil {
			return fmt.Errorf("could not publish %T: %w", event, err)
		}
	}

	return nil
}

func postgresErrorName(err error) string {
	var postgresError *pq.Error
	if !errors.As(err, &postgresError) {
		return ""
	}

	return postgresError.Code.Name()
}

func uniqueViolationConstraint(err error) (string, bool) {
	var postgresError *pq.Error
	if !errors.As(err, &postgresError) || postgresError.Code.Name() != postgresUniqueViolation {
		return "", false
	}

	return postgresError.Constraint, true
}

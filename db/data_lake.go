package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/entity"
)

// DataLake is the append-only log of every published event.
type DataLake struct {
	db *sqlx.DB
}

func NewDataLake(db *sqlx.DB) DataLake {
	if db == nil {
		panic("db is nil")
	}

	return DataLake{db: db}
}

func (s DataLake) StoreEvent(ctx context.Context, dataLakeEvent entity.DataLakeEvent) error {
	_, err := s.db.ExecContext(
		ctx,
		`
			INSERT INTO 
			    events_log (event_id, published_at, event_name, event_payload) 
			VALUES 
			    ($1, $2, $3, $4)`,
		dataLakeEvent.ID,
		dataLakeEvent.PublishedAt,
		dataLakeEvent.Name,
		string(dataLakeEvent.Payload),
	)
	if _, ok := uniqueViolationConstraint(err); ok {
		// re-delivery
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not store %s event in data lake: %w", dataLakeEvent.ID, err)
	}

	return nil
}

// TicketHistory returns the events of a single ticket, oldest first.
func (s DataLake) TicketHistory(ctx context.Context, ticketID string) ([]entity.DataLakeEvent, error) {
	var events []entity.DataLakeEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT event_id, published_at, event_name, event_payload
		FROM events_log
		WHERE event_payload->>'ticket_id' = $1
		ORDER BY published_at ASC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("could not get history of ticket %s: %w", ticketID, err)
	}

	return events, nil
}

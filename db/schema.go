package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/pubsub/outbox"
)

func InitializeDatabaseSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			event_id VARCHAR(255) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			starts_at TIMESTAMPTZ NOT NULL,
			venue_name VARCHAR(255) NOT NULL,
			venue_city VARCHAR(255) NOT NULL,
			price NUMERIC(12, 2) NOT NULL,
			vat_region VARCHAR(16) NOT NULL DEFAULT '',
			capacity INT NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS users (
			user_id VARCHAR(255) PRIMARY KEY,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tickets (
			ticket_id VARCHAR(255) PRIMARY KEY,
			ticket_number VARCHAR(32) NOT NULL UNIQUE,
			qr_code VARCHAR(64) NOT NULL UNIQUE,
			event_id VARCHAR(255) NOT NULL,
			user_id VARCHAR(255) NOT NULL,
			base_price NUMERIC(12, 2) NOT NULL,
			vat_rate NUMERIC(6, 4) NOT NULL,
			vat_amount NUMERIC(12, 2) NOT NULL,
			total_price NUMERIC(12, 2) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			terms_accepted BOOLEAN NOT NULL,
			terms_accepted_at TIMESTAMPTZ NOT NULL,
			status VARCHAR(16) NOT NULL,
			is_valid BOOLEAN NOT NULL,
			is_used BOOLEAN NOT NULL,
			purchased_at TIMESTAMPTZ NOT NULL,
			checked_in_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			refunded_at TIMESTAMPTZ,
			transferred_at TIMESTAMPTZ,
			cancellation_reason TEXT,
			refund_transaction_id VARCHAR(32),
			transferred_from_user_id VARCHAR(255),
			payment_intent_id VARCHAR(255) UNIQUE,
			confirmation_email_sent_to VARCHAR(255),
			confirmation_email_sent_at TIMESTAMPTZ,
			version INT NOT NULL DEFAULT 0
		);

		CREATE UNIQUE INDEX IF NOT EXISTS tickets_qr_code_key ON tickets (qr_code);
		CREATE INDEX IF NOT EXISTS tickets_event_id_idx ON tickets (event_id);
		CREATE INDEX IF NOT EXISTS tickets_user_id_idx ON tickets (user_id);

		CREATE TABLE IF NOT EXISTS events_log (
			event_id VARCHAR(255) PRIMARY KEY,
			published_at TIMESTAMPTZ NOT NULL,
			event_name VARCHAR(255) NOT NULL,
			event_payload JSONB NOT NULL
		);

		CREATE INDEX IF NOT EXISTS events_log_ticket_id_idx ON events_log ((event_payload->>'ticket_id'));
	`)
	if err != nil {
		return fmt.Errorf("could not initialize database schema: %w", err)
	}

	return outbox.InitializeSchema(context.Background(), db)
}

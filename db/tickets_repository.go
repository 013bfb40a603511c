package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ticketing/entity"
)

const ticketColumns = `
	ticket_id, ticket_number, qr_code, event_id, user_id,
	base_price, vat_rate, vat_amount, total_price, currency,
	terms_accepted, terms_accepted_at, status, is_valid, is_used,
	purchased_at, checked_in_at, cancelled_at, refunded_at, transferred_at,
	cancellation_reason, refund_transaction_id, transferred_from_user_id,
	payment_intent_id, confirmation_email_sent_to, confirmation_email_sent_at, version`

type TicketsRepository struct {
	db *sqlx.DB
}

func NewTicketsRepository(db *sqlx.DB) *TicketsRepository {
	if db == nil {
		panic("db is nil")
	}

	return &TicketsRepository{db: db}
}

// Add inserts the ticket and writes its events to the outbox in one serializable transaction.
// The capacity check and the insert cannot interleave with another Add for the same event.
func (r *TicketsRepository) Add(ctx context.Context, ticket entity.Ticket, capacity int, events ...entity.DomainEvent) error {
	err := UpdateInTx(ctx, r.db, sql.LevelSerializable, func(ctx context.Context, tx *sqlx.Tx) error {
		if capacity > 0 {
			var live int
			err := tx.GetContext(ctx, &live, `
				SELECT COUNT(*)
				FROM tickets
				WHERE event_id = $1 AND status NOT IN ($2, $3, $4)
			`, ticket.EventID, entity.TicketStatusCancelled, entity.TicketStatusRefunded, entity.TicketStatusExpired)
			if err != nil {
				return fmt.Errorf("could not count tickets of event %s: %w", ticket.EventID, err)
			}

			if live >= capacity {
				return entity.ErrNoAvailableTickets
			}
		}

		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO tickets (`+ticketColumns+`)
			VALUES (
				:ticket_id, :ticket_number, :qr_code, :event_id, :user_id,
				:base_price, :vat_rate, :vat_amount, :total_price, :currency,
				:terms_accepted, :terms_accepted_at, :status, :is_valid, :is_used,
				:purchased_at, :checked_in_at, :cancelled_at, :refunded_at, :transferred_at,
				:cancellation_reason, :refund_transaction_id, :transferred_from_user_id,
				:payment_intent_id, :confirmation_email_sent_to, :confirmation_email_sent_at, :version
			)
		`, ticket)
		if constraint, ok := uniqueViolationConstraint(err); ok {
			switch constraint {
			case "tickets_payment_intent_id_key":
				return fmt.Errorf("payment intent %s: %w", *ticket.PaymentIntentID, entity.ErrPaymentAlreadyRedeemed)
			case "tickets_qr_code_key":
				return fmt.Errorf("ticket %s qr code already issued: %w", ticket.TicketID, entity.ErrConflict)
			}
			return fmt.Errorf("ticket %s (%s): %w", ticket.TicketID, constraint, entity.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("could not insert ticket: %w", err)
		}

		return publishInTx(ctx, tx, events...)
	})
	if postgresErrorName(err) == postgresSerializationFailure {
		return fmt.Errorf("ticket %s raced with another purchase: %w", ticket.TicketID, entity.ErrConflict)
	}

	return err
}

func (r *TicketsRepository) Get(ctx context.Context, ticketID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `SELECT `+ticketColumns+` FROM tickets WHERE ticket_id = $1`, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket %s: %w", ticketID, err)
	}

	return ticket, nil
}

func (r *TicketsRepository) FindByUser(ctx context.Context, userID string) ([]entity.Ticket, error) {
	var tickets []entity.Ticket
	err := r.db.SelectContext(ctx, &tickets, `
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE user_id = $1
		ORDER BY purchased_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("could not get tickets of user %s: %w", userID, err)
	}

	return tickets, nil
}

func (r *TicketsRepository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (entity.Ticket, error) {
	var ticket entity.Ticket
	err := r.db.GetContext(ctx, &ticket, `SELECT `+ticketColumns+` FROM tickets WHERE payment_intent_id = $1`, paymentIntentID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Ticket{}, fmt.Errorf("ticket for payment intent %s: %w", paymentIntentID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Ticket{}, fmt.Errorf("could not get ticket for payment intent %s: %w", paymentIntentID, err)
	}

	return ticket, nil
}

type ticketUpdate struct {
	entity.Ticket
	PrevStatus  entity.TicketStatus `db:"prev_status"`
	PrevVersion int                 `db:"prev_version"`
}

// Update stores next only while the row still has prev's status and version.
// Concurrent writers are serialized by the row lock, so exactly one of them matches.
func (r *TicketsRepository) Update(ctx context.Context, prev entity.Ticket, next entity.Ticket, events ...entity.DomainEvent) error {
	return UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.NamedExecContext(ctx, `
			UPDATE tickets SET
				qr_code = :qr_code,
				user_id = :user_id,
				status = :status,
				is_valid = :is_valid,
				is_used = :is_used,
				checked_in_at = :checked_in_at,
				cancelled_at = :cancelled_at,
				refunded_at = :refunded_at,
				transferred_at = :transferred_at,
				cancellation_reason = :cancellation_reason,
				refund_transaction_id = :refund_transaction_id,
				transferred_from_user_id = :transferred_from_user_id,
				version = version + 1
			WHERE ticket_id = :ticket_id AND status = :prev_status AND version = :prev_version
		`, ticketUpdate{
			Ticket:      next,
			PrevStatus:  prev.Status,
			PrevVersion: prev.Version,
		})
		if err != nil {
			return fmt.Errorf("could not update ticket %s: %w", prev.TicketID, err)
		}

		updated, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get affected rows: %w", err)
		}
		if updated == 0 {
			return fmt.Errorf("ticket %s is no longer %s at version %d: %w", prev.TicketID, prev.Status, prev.Version, entity.ErrConflict)
		}

		return publishInTx(ctx, tx, events...)
	})
}

func (r *TicketsRepository) Delete(ctx context.Context, ticketID string, events ...entity.DomainEvent) error {
	return UpdateInTx(ctx, r.db, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE ticket_id = $1`, ticketID)
		if err != nil {
			return fmt.Errorf("could not delete ticket %s: %w", ticketID, err)
		}

		deleted, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("could not get affected rows: %w", err)
		}
		if deleted == 0 {
			return fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
		}

		return publishInTx(ctx, tx, events...)
	})
}

// RecordConfirmationSent stores the confirmation audit. It is not a lifecycle transition
// and leaves the version untouched.
func (r *TicketsRepository) RecordConfirmationSent(ctx context.Context, ticketID string, email string, sentAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tickets
		SET confirmation_email_sent_to = $2, confirmation_email_sent_at = $3
		WHERE ticket_id = $1
	`, ticketID, email, sentAt)
	if err != nil {
		return fmt.Errorf("could not record confirmation of ticket %s: %w", ticketID, err)
	}

	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if updated == 0 {
		return fmt.Errorf("ticket %s: %w", ticketID, entity.ErrNotFound)
	}

	return nil
}

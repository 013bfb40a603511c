package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ticketing/entity"
)

type EventsRepository struct {
	db *sqlx.DB
}

func NewEventsRepository(db *sqlx.DB) *EventsRepository {
	if db == nil {
		panic("db is nil")
	}

	return &EventsRepository{db: db}
}

func (r *EventsRepository) Add(ctx context.Context, event entity.Event) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO events (event_id, title, starts_at, venue_name, venue_city, price, vat_region, capacity)
		VALUES (:event_id, :title, :starts_at, :venue_name, :venue_city, :price, :vat_region, :capacity)
		ON CONFLICT DO NOTHING
	`, event)
	if err != nil {
		return fmt.Errorf("could not add event %s: %w", event.EventID, err)
	}

	return nil
}

func (r *EventsRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	var event entity.Event
	err := r.db.GetContext(ctx, &event, `
		SELECT event_id, title, starts_at, venue_name, venue_city, price, vat_region, capacity
		FROM events
		WHERE event_id = $1
	`, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Event{}, fmt.Errorf("event %s: %w", eventID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.Event{}, fmt.Errorf("could not get event %s: %w", eventID, err)
	}

	return event, nil
}

type UsersRepository struct {
	db *sqlx.DB
}

func NewUsersRepository(db *sqlx.DB) *UsersRepository {
	if db == nil {
		panic("db is nil")
	}

	return &UsersRepository{db: db}
}

func (r *UsersRepository) Add(ctx context.Context, user entity.User) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO users (user_id, email, name)
		VALUES (:user_id, :email, :name)
		ON CONFLICT DO NOTHING
	`, user)
	if err != nil {
		return fmt.Errorf("could not add user %s: %w", user.UserID, err)
	}

	return nil
}

func (r *UsersRepository) Get(ctx context.Context, userID string) (entity.User, error) {
	var user entity.User
	err := r.db.GetContext(ctx, &user, `SELECT user_id, email, name FROM users WHERE user_id = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.User{}, fmt.Errorf("user %s: %w", userID, entity.ErrNotFound)
	}
	if err != nil {
		return entity.User{}, fmt.Errorf("could not get user %s: %w", userID, err)
	}

	return user, nil
}

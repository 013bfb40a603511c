package mocks

import (
	"context"
	"fmt"
	"sync"

	"ticketing/entity"
)

type EventsRepository struct {
	mu     sync.Mutex
	events map[string]entity.Event
}

func NewEventsRepository(events ...entity.Event) *EventsRepository {
	r := &EventsRepository{events: map[string]entity.Event{}}
	for _, e := range events {
		r.events[e.EventID] = e
	}
	return r
}

func (r *EventsRepository) Add(ctx context.Context, event entity.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events[event.EventID] = event
	return nil
}

func (r *EventsRepository) Get(ctx context.Context, eventID string) (entity.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return entity.Event{}, fmt.Errorf("event %s: %w", eventID, entity.ErrNotFound)
	}
	return event, nil
}

func (r *EventsRepository) Remove(eventID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.events, eventID)
}

type UsersRepository struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func NewUsersRepository(users ...entity.User) *UsersRepository {
	r := &UsersRepository{users: map[string]entity.User{}}
	for _, u := range users {
		r.users[u.UserID] = u
	}
	return r
}

func (r *UsersRepository) Add(ctx context.Context, user entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.users[user.UserID] = user
	return nil
}

func (r *UsersRepository) Get(ctx context.Context, userID string) (entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return entity.User{}, fmt.Errorf("user %s: %w", userID, entity.ErrNotFound)
	}
	return user, nil
}

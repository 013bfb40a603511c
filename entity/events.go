package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type DomainEvent interface {
	IsInternal() bool
}

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type TicketIssued_v1 struct {
	Header EventHeader `json:"header"`

	TicketID        string          `json:"ticket_id"`
	Status          TicketStatus    `json:"status"`
	TicketNumber    string          `json:"ticket_number"`
	EventID         string          `json:"event_id"`
	UserID          string          `json:"user_id"`
	Email           string          `json:"email"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	Currency        string          `json:"currency"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
}

func (e TicketIssued_v1) IsInternal() bool {
	return false
}

type TicketCheckedIn_v1 struct {
	Header EventHeader `json:"header"`

	TicketID    string       `json:"ticket_id"`
	Status      TicketStatus `json:"status"`
	CheckedInAt time.Time    `json:"checked_in_at"`
}

func (e TicketCheckedIn_v1) IsInternal() bool {
	return false
}

type TicketInvalidated_v1 struct {
	Header EventHeader `json:"header"`

	TicketID       string       `json:"ticket_id"`
	Status         TicketStatus `json:"status"`
	PreviousStatus TicketStatus `json:"previous_status"`
}

func (e TicketInvalidated_v1) IsInternal() bool {
	return false
}

type TicketCancelled_v1 struct {
	Header EventHeader `json:"header"`

	TicketID string       `json:"ticket_id"`
	Status   TicketStatus `json:"status"`
	Reason   string       `json:"reason"`
}

func (e TicketCancelled_v1) IsInternal() bool {
	return false
}

type TicketRefunded_v1 struct {
	Header EventHeader `json:"header"`

	TicketID        string          `json:"ticket_id"`
	Status          TicketStatus    `json:"status"`
	UserID          string          `json:"user_id"`
	RefundAmount    decimal.Decimal `json:"refund_amount"`
	Currency        string          `json:"currency"`
	TransactionID   string          `json:"transaction_id"`
	PaymentIntentID string          `json:"payment_intent_id,omitempty"`
}

func (e TicketRefunded_v1) IsInternal() bool {
	return false
}

type TicketTransferred_v1 struct {
	Header EventHeader `json:"header"`

	TicketID   string       `json:"ticket_id"`
	Status     TicketStatus `json:"status"`
	FromUserID string       `json:"from_user_id"`
	ToUserID   string       `json:"to_user_id"`
	ToEmail    string       `json:"to_email"`
}

func (e TicketTransferred_v1) IsInternal() bool {
	return false
}

type TicketDeleted_v1 struct {
	Header EventHeader `json:"header"`

	TicketID string `json:"ticket_id"`
}

func (e TicketDeleted_v1) IsInternal() bool {
	return false
}

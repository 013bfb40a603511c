package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is a catalog entry tickets are issued against. Price is gross (VAT included).
type Event struct {
	EventID   string          `json:"event_id" db:"event_id"`
	Title     string          `json:"title" db:"title"`
	StartsAt  time.Time       `json:"starts_at" db:"starts_at"`
	VenueName string          `json:"venue_name" db:"venue_name"`
	VenueCity string          `json:"venue_city" db:"venue_city"`
	Price     decimal.Decimal `json:"price" db:"price"`
	VatRegion string          `json:"vat_region" db:"vat_region"`
	// Capacity of zero means the event is not capped.
	Capacity int `json:"capacity" db:"capacity"`
}

type User struct {
	UserID string `json:"user_id" db:"user_id"`
	Email  string `json:"email" db:"email"`
	Name   string `json:"name" db:"name"`
}

type DataLakeEvent struct {
	ID          string    `db:"event_id"`
	PublishedAt time.Time `db:"published_at"`
	Name        string    `db:"event_name"`
	Payload     []byte    `db:"event_payload"`
}

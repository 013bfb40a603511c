package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketConfirmation struct {
	Email        string
	Name         string
	TicketNumber string
	EventTitle   string
	EventDate    time.Time
	VenueName    string
	VenueCity    string
	TotalPrice   decimal.Decimal
	Currency     string
	QRCode       string
}

type TransferConfirmation struct {
	Email        string
	Name         string
	TicketNumber string
	EventTitle   string
	EventDate    time.Time
	VenueName    string
	QRCode       string
}

type RefundConfirmation struct {
	Email         string
	Name          string
	TicketNumber  string
	EventTitle    string
	RefundAmount  decimal.Decimal
	Currency      string
	TransactionID string
}

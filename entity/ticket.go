package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TicketStatus string

func (s TicketStatus) String() string {
	return string(s)
}

const (
	TicketStatusActive      TicketStatus = "active"
	TicketStatusUsed        TicketStatus = "used"
	TicketStatusCancelled   TicketStatus = "cancelled"
	TicketStatusRefunded    TicketStatus = "refunded"
	TicketStatusTransferred TicketStatus = "transferred"
	TicketStatusExpired     TicketStatus = "expired"
)

type Ticket struct {
	TicketID     string `json:"ticket_id" db:"ticket_id"`
	TicketNumber string `json:"ticket_number" db:"ticket_number"`
	QRCode       string `json:"qr_code" db:"qr_code"`

	EventID string `json:"event_id" db:"event_id"`
	UserID  string `json:"user_id" db:"user_id"`

	BasePrice  decimal.Decimal `json:"base_price" db:"base_price"`
	VatRate    decimal.Decimal `json:"vat_rate" db:"vat_rate"`
	VatAmount  decimal.Decimal `json:"vat_amount" db:"vat_amount"`
	TotalPrice decimal.Decimal `json:"total_price" db:"total_price"`
	Currency   string          `json:"currency" db:"currency"`

	TermsAccepted   bool      `json:"terms_accepted" db:"terms_accepted"`
	TermsAcceptedAt time.Time `json:"terms_accepted_at" db:"terms_accepted_at"`

	Status  TicketStatus `json:"status" db:"status"`
	IsValid bool         `json:"is_valid" db:"is_valid"`
	IsUsed  bool         `json:"is_used" db:"is_used"`

	PurchasedAt   time.Time  `json:"purchased_at" db:"purchased_at"`
	CheckedInAt   *time.Time `json:"checked_in_at,omitempty" db:"checked_in_at"`
	CancelledAt   *time.Time `json:"cancelled_at,omitempty" db:"cancelled_at"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
	TransferredAt *time.Time `json:"transferred_at,omitempty" db:"transferred_at"`

	CancellationReason    *string `json:"cancellation_reason,omitempty" db:"cancellation_reason"`
	RefundTransactionID   *string `json:"refund_transaction_id,omitempty" db:"refund_transaction_id"`
	TransferredFromUserID *string `json:"transferred_from_user_id,omitempty" db:"transferred_from_user_id"`

	PaymentIntentID *string `json:"payment_intent_id,omitempty" db:"payment_intent_id"`

	ConfirmationEmailSentTo *string    `json:"confirmation_email_sent_to,omitempty" db:"confirmation_email_sent_to"`
	ConfirmationEmailSentAt *time.Time `json:"confirmation_email_sent_at,omitempty" db:"confirmation_email_sent_at"`

	// Version is bumped by every stored transition and used as the optimistic concurrency token.
	Version int `json:"version" db:"version"`
}

type NewTicketParams struct {
	TicketID        string
	TicketNumber    string
	QRCode          string
	EventID         string
	UserID          string
	BasePrice       decimal.Decimal
	VatRate         decimal.Decimal
	VatAmount       decimal.Decimal
	TotalPrice      decimal.Decimal
	Currency        string
	TermsAccepted   bool
	PaymentIntentID string
	Now             time.Time
}

func NewTicket(p NewTicketParams) (Ticket, error) {
	if !p.TermsAccepted {
		return Ticket{}, fmt.Errorf("%w: terms and conditions must be accepted", ErrValidation)
	}
	if p.TicketID == "" || p.TicketNumber == "" || p.QRCode == "" {
		return Ticket{}, fmt.Errorf("%w: ticket identity must be set", ErrValidation)
	}
	if p.EventID == "" {
		return Ticket{}, fmt.Errorf("%w: event id must be set", ErrValidation)
	}
	if p.UserID == "" {
		return Ticket{}, fmt.Errorf("%w: user id must be set", ErrValidation)
	}
	if !p.BasePrice.Add(p.VatAmount).Equal(p.TotalPrice) {
		return Ticket{}, fmt.Errorf(
			"%w: base price %s and vat %s do not add up to %s",
			ErrValidation, p.BasePrice, p.VatAmount, p.TotalPrice,
		)
	}

	t := Ticket{
		TicketID:        p.TicketID,
		TicketNumber:    p.TicketNumber,
		QRCode:          p.QRCode,
		EventID:         p.EventID,
		UserID:          p.UserID,
		BasePrice:       p.BasePrice,
		VatRate:         p.VatRate,
		VatAmount:       p.VatAmount,
		TotalPrice:      p.TotalPrice,
		Currency:        p.Currency,
		TermsAccepted:   true,
		TermsAcceptedAt: p.Now,
		Status:          TicketStatusActive,
		IsValid:         true,
		IsUsed:          false,
		PurchasedAt:     p.Now,
	}
	if p.PaymentIntentID != "" {
		intentID := p.PaymentIntentID
		t.PaymentIntentID = &intentID
	}

	return t, nil
}

// IsLive reports whether the ticket still occupies a seat of its event.
func (t Ticket) IsLive() bool {
	switch t.Status {
	case TicketStatusCancelled, TicketStatusRefunded, TicketStatusExpired:
		return false
	default:
		return true
	}
}

// CheckIn marks the ticket as used at the door. A transferred ticket is still
// admitted: the transfer only changes who holds it.
func (t Ticket) CheckIn(now time.Time) (Ticket, error) {
	if !t.IsValid || t.IsUsed {
		return t, t.transitionError("check in")
	}
	if t.Status != TicketStatusActive && t.Status != TicketStatusTransferred {
		return t, t.transitionError("check in")
	}

	t.IsUsed = true
	t.CheckedInAt = &now
	t.Status = TicketStatusUsed

	return t, nil
}

func (t Ticket) Invalidate() (Ticket, error) {
	if t.Status == TicketStatusExpired {
		return t, t.transitionError("invalidate")
	}

	t.IsValid = false
	t.Status = TicketStatusExpired

	return t, nil
}

func (t Ticket) Cancel(now time.Time, reason string) (Ticket, error) {
	if t.Status != TicketStatusActive {
		return t, t.transitionError("cancel")
	}

	t.Status = TicketStatusCancelled
	t.CancelledAt = &now
	t.IsValid = false
	t.CancellationReason = &reason

	return t, nil
}

func (t Ticket) Refund(now time.Time, transactionID string) (Ticket, error) {
	if t.Status != TicketStatusCancelled {
		return t, t.transitionError("refund")
	}

	t.Status = TicketStatusRefunded
	t.RefundedAt = &now
	t.RefundTransactionID = &transactionID

	return t, nil
}

// TransferTo hands the ticket over to another user and replaces its QR code,
// so the code held by the previous owner stops matching.
func (t Ticket) TransferTo(now time.Time, toUserID string, newQRCode string) (Ticket, error) {
	// is_used is checked on its own: status alone is not trusted to reflect a check-in
	if t.IsUsed || t.Status != TicketStatusActive {
		return t, t.transitionError("transfer")
	}
	if toUserID == t.UserID {
		return t, fmt.Errorf("%w: ticket %s is already held by user %s", ErrValidation, t.TicketID, toUserID)
	}
	if newQRCode == "" || newQRCode == t.QRCode {
		return t, fmt.Errorf("%w: transfer requires a fresh qr code", ErrValidation)
	}

	previousOwner := t.UserID
	t.TransferredFromUserID = &previousOwner
	t.UserID = toUserID
	t.TransferredAt = &now
	t.Status = TicketStatusTransferred
	t.QRCode = newQRCode

	return t, nil
}

func (t Ticket) transitionError(op string) error {
	return fmt.Errorf(
		"%w: cannot %s ticket %s (status: %s, valid: %t, used: %t)",
		ErrTransitionNotAllowed, op, t.TicketID, t.Status, t.IsValid, t.IsUsed,
	)
}

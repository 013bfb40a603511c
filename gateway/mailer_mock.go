package gateway

import (
	"context"
	"sync"

	"ticketing/entity"
)

type MailerMock struct {
	mock sync.Mutex

	TicketConfirmations   []entity.TicketConfirmation
	TransferConfirmations []entity.TransferConfirmation
	RefundConfirmations   []entity.RefundConfirmation

	// Err, when set, fails every send.
	Err error
}

func (m *MailerMock) SendTicketConfirmation(ctx context.Context, confirmation entity.TicketConfirmation) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.TicketConfirmations = append(m.TicketConfirmations, confirmation)

	return nil
}

func (m *MailerMock) SendTransferConfirmation(ctx context.Context, confirmation entity.TransferConfirmation) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.TransferConfirmations = append(m.TransferConfirmations, confirmation)

	return nil
}

func (m *MailerMock) SendRefundConfirmation(ctx context.Context, confirmation entity.RefundConfirmation) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.RefundConfirmations = append(m.RefundConfirmations, confirmation)

	return nil
}

func (m *MailerMock) SentTicketConfirmations() []entity.TicketConfirmation {
	m.mock.Lock()
	defer m.mock.Unlock()

	return append([]entity.TicketConfirmation(nil), m.TicketConfirmations...)
}

func (m *MailerMock) SentTransferConfirmations() []entity.TransferConfirmation {
	m.mock.Lock()
	defer m.mock.Unlock()

	return append([]entity.TransferConfirmation(nil), m.TransferConfirmations...)
}

func (m *MailerMock) SentRefundConfirmations() []entity.RefundConfirmation {
	m.mock.Lock()
	defer m.mock.Unlock()

	return append([]entity.RefundConfirmation(nil), m.RefundConfirmations...)
}

package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"ticketing/entity"
	"ticketing/ticketing"
)

type TicketManager interface {
	CreateTicket(ctx context.Context, params ticketing.CreateTicketParams) (entity.Ticket, error)
	CheckIn(ctx context.Context, ticketID string) (bool, error)
	Invalidate(ctx context.Context, ticketID string) (bool, error)
	Cancel(ctx context.Context, ticketID string, reason string) (*entity.Ticket, error)
	Refund(ctx context.Context, ticketID string) (*entity.Ticket, error)
	Transfer(ctx context.Context, ticketID string, toUserID string, toEmail string) (*entity.Ticket, error)
	Delete(ctx context.Context, ticketID string) (bool, error)
	Get(ctx context.Context, ticketID string) (entity.Ticket, error)
	ListForUser(ctx context.Context, userID string) ([]entity.Ticket, error)
}

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, eventID string, userID string, email string) (entity.PaymentIntent, error)
	ConfirmPaymentAndIssueTicket(ctx context.Context, paymentIntentID string, eventID string, userID string, email string) (entity.Ticket, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type EventsRepository interface {
	Add(ctx context.Context, event entity.Event) error
}

type UsersRepository interface {
	Add(ctx context.Context, user entity.User) error
}

type TicketHistory interface {
	TicketHistory(ctx context.Context, ticketID string) ([]entity.DataLakeEvent, error)
}

type Server struct {
	addr     string
	e        *echo.Echo
	tickets  TicketManager
	payments PaymentGateway
	events   EventsRepository
	users    UsersRepository
	history  TicketHistory
}

func NewServer(
	addr string,
	tickets TicketManager,
	payments PaymentGateway,
	events EventsRepository,
	users UsersRepository,
	history TicketHistory,
) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware("ticketing"))

	server := &Server{
		addr:     addr,
		e:        e,
		tickets:  tickets,
		payments: payments,
		events:   events,
		users:    users,
		history:  history,
	}

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.POST("/events", server.PostEvents)
	e.POST("/users", server.PostUsers)

	e.POST("/payments/intents", server.PostPaymentIntents)
	e.POST("/payments/confirm", server.PostPaymentsConfirm)
	e.POST("/payments/webhook", server.PostPaymentsWebhook)

	e.POST("/tickets", server.PostTickets)
	e.GET("/tickets", server.GetTickets)
	e.GET("/tickets/:id", server.GetTicket)
	e.GET("/tickets/:id/history", server.GetTicketHistory)
	e.POST("/tickets/:id/check-in", server.PostTicketCheckIn)
	e.POST("/tickets/:id/invalidate", server.PostTicketInvalidate)
	e.POST("/tickets/:id/cancel", server.PostTicketCancel)
	e.POST("/tickets/:id/refund", server.PostTicketRefund)
	e.POST("/tickets/:id/transfer", server.PostTicketTransfer)
	e.DELETE("/tickets/:id", server.DeleteTicket)

	return server
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(context.Background())
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

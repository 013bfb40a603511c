package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"ticketing/entity"
	"ticketing/ticketing"
)

type postTicketsRequest struct {
	EventID       string `json:"event_id"`
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	TermsAccepted bool   `json:"terms_accepted"`
}

type postTicketCancelRequest struct {
	Reason string `json:"reason"`
}

type postTicketTransferRequest struct {
	ToUserID string `json:"to_user_id"`
	ToEmail  string `json:"to_email"`
}

type ticketHistoryEntry struct {
	EventID     string          `json:"event_id"`
	EventName   string          `json:"event_name"`
	PublishedAt time.Time       `json:"published_at"`
	Payload     json.RawMessage `json:"payload"`
}

func (s Server) PostTickets(c echo.Context) error {
	var request postTicketsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	ticket, err := s.tickets.CreateTicket(c.Request().Context(), ticketing.CreateTicketParams{
		EventID:       request.EventID,
		UserID:        request.UserID,
		Email:         request.Email,
		TermsAccepted: request.TermsAccepted,
	})
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusCreated, ticket)
}

func (s Server) GetTickets(c echo.Context) error {
	userID := c.QueryParam("user_id")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id query parameter is required")
	}

	tickets, err := s.tickets.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if tickets == nil {
		tickets = []entity.Ticket{}
	}

	return c.JSON(http.StatusOK, tickets)
}

func (s Server) GetTicket(c echo.Context) error {
	ticket, err := s.tickets.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, ticket)
}

func (s Server) GetTicketHistory(c echo.Context) error {
	events, err := s.history.TicketHistory(c.Request().Context(), c.Param("id"))
	if err != nil {
		return fmt.Errorf("could not get ticket history: %w", err)
	}

	return c.JSON(http.StatusOK, lo.Map(events, func(event entity.DataLakeEvent, _ int) ticketHistoryEntry {
		return ticketHistoryEntry{
			EventID:     event.ID,
			EventName:   event.Name,
			PublishedAt: event.PublishedAt,
			Payload:     event.Payload,
		}
	}))
}

func (s Server) PostTicketCheckIn(c echo.Context) error {
	checkedIn, err := s.tickets.CheckIn(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"checked_in": checkedIn})
}

func (s Server) PostTicketInvalidate(c echo.Context) error {
	invalidated, err := s.tickets.Invalidate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"invalidated": invalidated})
}

func (s Server) PostTicketCancel(c echo.Context) error {
	var request postTicketCancelRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	ticket, err := s.tickets.Cancel(c.Request().Context(), c.Param("id"), request.Reason)
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if ticket == nil {
		return transitionNotApplied("cancelled")
	}

	return c.JSON(http.StatusOK, ticket)
}

func (s Server) PostTicketRefund(c echo.Context) error {
	ticket, err := s.tickets.Refund(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if ticket == nil {
		return transitionNotApplied("refunded")
	}

	return c.JSON(http.StatusOK, ticket)
}

func (s Server) PostTicketTransfer(c echo.Context) error {
	var request postTicketTransferRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.ToUserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "to_user_id is required")
	}

	ticket, err := s.tickets.Transfer(c.Request().Context(), c.Param("id"), request.ToUserID, request.ToEmail)
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if ticket == nil {
		return transitionNotApplied("transferred")
	}

	return c.JSON(http.StatusOK, ticket)
}

func (s Server) DeleteTicket(c echo.Context) error {
	deleted, err := s.tickets.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if !deleted {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}

	return c.NoContent(http.StatusNoContent)
}

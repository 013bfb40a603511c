package http

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

type postPaymentIntentsRequest struct {
	EventID string `json:"event_id"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

type postPaymentIntentsResponse struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	Status          string `json:"status"`
}

type postPaymentsConfirmRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
	EventID         string `json:"event_id"`
	UserID          string `json:"user_id"`
	Email           string `json:"email"`
}

func (s Server) PostPaymentIntents(c echo.Context) error {
	var request postPaymentIntentsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.EventID == "" || request.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id and user_id are required")
	}

	intent, err := s.payments.CreatePaymentIntent(c.Request().Context(), request.EventID, request.UserID, request.Email)
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusCreated, postPaymentIntentsResponse{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Amount:          intent.Amount,
		Currency:        intent.Currency,
		Status:          intent.Status,
	})
}

func (s Server) PostPaymentsConfirm(c echo.Context) error {
	var request postPaymentsConfirmRequest
	if err := c.Bind(&request); err != nil {
		return err
	}
	if request.PaymentIntentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_intent_id is required")
	}

	ticket, err := s.payments.ConfirmPaymentAndIssueTicket(
		c.Request().Context(),
		request.PaymentIntentID,
		request.EventID,
		request.UserID,
		request.Email,
	)
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusCreated, ticket)
}

// PostPaymentsWebhook needs the raw body, the signature covers the exact bytes sent.
func (s Server) PostPaymentsWebhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read request body")
	}

	err = s.payments.HandleWebhook(c.Request().Context(), payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

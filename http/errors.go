package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"

	"ticketing/entity"
)

// toHTTPError maps domain errors to responses. Fraud and provider details stay in the logs.
func toHTTPError(ctx context.Context, err error) error {
	var providerErr *entity.PaymentProviderError

	switch {
	case errors.Is(err, entity.ErrInvalidWebhookSignature):
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook signature")
	case errors.Is(err, entity.ErrValidation):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entity.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entity.ErrNoAvailableTickets):
		return echo.NewHTTPError(http.StatusConflict, "no available tickets")
	case errors.Is(err, entity.ErrPaymentAlreadyRedeemed):
		return echo.NewHTTPError(http.StatusConflict, "payment already redeemed for a ticket")
	case errors.Is(err, entity.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "ticket was changed concurrently, try again")
	case errors.Is(err, entity.ErrPaymentNotCompleted):
		return echo.NewHTTPError(http.StatusPaymentRequired, "payment not completed")
	case errors.Is(err, entity.ErrFraudSuspected):
		log.FromContext(ctx).WithError(err).Error("Rejected payment confirmation")
		return echo.NewHTTPError(http.StatusForbidden, "payment could not be verified")
	case errors.As(err, &providerErr):
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider unavailable")
	default:
		return err
	}
}

func transitionNotApplied(action string) error {
	return echo.NewHTTPError(http.StatusConflict, "ticket cannot be "+action+" in its current state")
}

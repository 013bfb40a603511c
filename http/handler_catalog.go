package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"ticketing/entity"
)

type postEventsRequest struct {
	EventID   string          `json:"event_id"`
	Title     string          `json:"title"`
	StartsAt  time.Time       `json:"starts_at"`
	VenueName string          `json:"venue_name"`
	VenueCity string          `json:"venue_city"`
	Price     decimal.Decimal `json:"price"`
	VatRegion string          `json:"vat_region"`
	Capacity  int             `json:"capacity"`
}

type postUsersRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
}

func (s Server) PostEvents(c echo.Context) error {
	var request postEventsRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if request.Price.IsNegative() {
		return echo.NewHTTPError(http.StatusBadRequest, "price must not be negative")
	}
	if request.Capacity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "capacity must not be negative")
	}

	event := entity.Event{
		EventID:   request.EventID,
		Title:     request.Title,
		StartsAt:  request.StartsAt,
		VenueName: request.VenueName,
		VenueCity: request.VenueCity,
		Price:     request.Price,
		VatRegion: request.VatRegion,
		Capacity:  request.Capacity,
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	if err := s.events.Add(c.Request().Context(), event); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, event)
}

func (s Server) PostUsers(c echo.Context) error {
	var request postUsersRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	if request.Email == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email is required")
	}

	user := entity.User{
		UserID: request.UserID,
		Email:  request.Email,
		Name:   request.Name,
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}

	if err := s.users.Add(c.Request().Context(), user); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, user)
}

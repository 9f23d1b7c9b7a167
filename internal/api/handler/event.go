package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
)

type EventHandler struct {
	eventService EventServiceInterface
}

func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

type CreateEventRequest struct {
	Name        string `json:"name" validate:"required" example:"東京ダービー"`
	Venue       string `json:"venue" example:"国立競技場"`
	Rows        int    `json:"rows" validate:"required,gt=0,max=1000" example:"40"`
	SeatsPerRow int    `json:"seats_per_row" validate:"required,gt=0,max=1000" example:"60"`
	StartAt     string `json:"start_at" validate:"required" example:"2025-12-15T19:00:00+09:00"`
}

type EventResponse struct {
	ID          string `json:"id" example:"0193a1f2-7c1e-7d2a-9a4b-3c5d6e7f8a9b"`
	Name        string `json:"name" example:"東京ダービー"`
	Venue       string `json:"venue" example:"国立競技場"`
	Rows        int    `json:"rows" example:"40"`
	SeatsPerRow int    `json:"seats_per_row" example:"60"`
	TotalSeats  int    `json:"total_seats" example:"2400"`
	StartAt     string `json:"start_at" example:"2025-12-15T19:00:00+09:00"`
	CreatedAt   string `json:"created_at" example:"2025-12-06T10:00:00+09:00"`
	UpdatedAt   string `json:"updated_at" example:"2025-12-06T10:00:00+09:00"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Venue:       e.Venue,
		Rows:        e.Grid.Rows,
		SeatsPerRow: e.Grid.SeatsPerRow,
		TotalSeats:  e.Grid.TotalSeats(),
		StartAt:     e.StartAt.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
}

// Create godoc
// @Summary イベントを作成
// @Description 座席グリッドを持つイベントを登録します
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "リクエストの形式が不正です")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	startAt, err := time.Parse(time.RFC3339, req.StartAt)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "開始時刻の形式が不正です")
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), application.CreateEventInput{
		Name:        req.Name,
		Venue:       req.Venue,
		Rows:        req.Rows,
		SeatsPerRow: req.SeatsPerRow,
		StartAt:     startAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	e, err := h.eventService.GetEvent(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary イベント一覧を取得
// @Description 開始時刻の昇順で返します
// @Tags events
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	events, err := h.eventService.ListEvents(c.Request().Context(), limit, offset)
	if err != nil {
		return err
	}

	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return c.JSON(http.StatusOK, responses)
}

package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/api/middleware"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/pricing"
)

type ReservationHandler struct {
	ledger LedgerInterface
	prices *pricing.Calculator
}

func NewReservationHandler(l LedgerInterface, prices *pricing.Calculator) *ReservationHandler {
	return &ReservationHandler{ledger: l, prices: prices}
}

type SeatRequest struct {
	Row    int `json:"row" example:"1"`
	Number int `json:"seat_number" example:"2"`
}

// CreateReservationRequest は予約確定のリクエスト
// 座標の範囲と重複はドメインで検証する
type CreateReservationRequest struct {
	EventID    string        `json:"event_id" validate:"required" example:"0193a1f2-7c1e-7d2a-9a4b-3c5d6e7f8a9b"`
	Seats      []SeatRequest `json:"seats" example:"[{\"row\":1,\"seat_number\":2}]"`
	PaymentRef string        `json:"payment_ref" validate:"max=64" example:"card-4242"`
}

type ReservationResponse struct {
	ID           string          `json:"id"`
	OwnerID      string          `json:"owner_id" example:"user-123"`
	EventID      string          `json:"event_id"`
	EventStartAt time.Time       `json:"event_start_at"`
	Seats        []seat.Seat     `json:"seats"`
	Status       string          `json:"status" example:"confirmed"`
	PaymentRef   string          `json:"payment_ref,omitempty"`
	TotalAmount  decimal.Decimal `json:"total_amount" swaggertype:"string" example:"500"`
	CreatedAt    time.Time       `json:"created_at"`
	CancelledAt  *time.Time      `json:"cancelled_at,omitempty"`
}

func (h *ReservationHandler) toResponse(r *reservation.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		EventID:      r.EventID,
		EventStartAt: r.EventStartAt,
		Seats:        r.Seats,
		Status:       string(r.Status),
		PaymentRef:   r.PaymentRef,
		TotalAmount:  decimal.Zero,
		CreatedAt:    r.CreatedAt,
		CancelledAt:  r.CancelledAt,
	}
	if h.prices != nil {
		resp.TotalAmount = h.prices.Total(len(r.Seats))
	}
	return resp
}

// Create godoc
// @Summary 予約を確定
// @Description 指定した座席をすべて確保するか、何も確保しません
// @Tags reservations
// @Accept json
// @Produce json
// @Param X-User-ID header string false "ユーザーID（JWT 未使用時）"
// @Param request body CreateReservationRequest true "予約情報"
// @Success 201 {object} ReservationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 401 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "座席が既に予約済み / 同時刻の予約あり"
// @Failure 422 {object} api.ErrorResponse "開始済みのイベント"
// @Failure 503 {object} api.ErrorResponse "再試行可能"
// @Router /reservations [post]
func (h *ReservationHandler) Create(c echo.Context) error {
	var req CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "無効なリクエスト")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	seats := make([]seat.Seat, len(req.Seats))
	for i, s := range req.Seats {
		seats[i] = seat.Seat{Row: s.Row, Number: s.Number}
	}

	r, err := h.ledger.CommitReservation(c.Request().Context(), application.CommitInput{
		OwnerID:    middleware.UserID(c),
		EventID:    req.EventID,
		Seats:      seats,
		PaymentRef: req.PaymentRef,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, h.toResponse(r))
}

// GetByID godoc
// @Summary 予約を取得
// @Description 自分の予約のみ取得できます
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /reservations/{id} [get]
func (h *ReservationHandler) GetByID(c echo.Context) error {
	r, err := h.ledger.GetReservation(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toResponse(r))
}

// GetUserReservations godoc
// @Summary 自分の予約一覧を取得
// @Description 作成日時の新しい順に返します
// @Tags reservations
// @Produce json
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} ReservationResponse
// @Failure 401 {object} api.ErrorResponse
// @Router /reservations [get]
func (h *ReservationHandler) GetUserReservations(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	reservations, err := h.ledger.ListOwnerReservations(c.Request().Context(), middleware.UserID(c), limit, offset)
	if err != nil {
		return err
	}
	resp := make([]ReservationResponse, len(reservations))
	for i, r := range reservations {
		resp[i] = h.toResponse(r)
	}
	return c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary 予約をキャンセル
// @Description 開始時刻のキャンセル締め切り前であれば座席を解放します
// @Tags reservations
// @Produce json
// @Param id path string true "予約ID"
// @Success 200 {object} ReservationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "キャンセル済み"
// @Failure 422 {object} api.ErrorResponse "締め切り後"
// @Router /reservations/{id}/cancel [post]
// @Router /reservations/{id} [delete]
func (h *ReservationHandler) Cancel(c echo.Context) error {
	r, err := h.ledger.CancelReservation(c.Request().Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.toResponse(r))
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/application"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

type SeatHandler struct {
	availability AvailabilityInterface
	hub          SeatObserverHub
}

// NewSeatHandler は座席ハンドラーを作成する
// hub が nil の場合、WebSocket の購読は 503 を返す
func NewSeatHandler(a AvailabilityInterface, hub SeatObserverHub) *SeatHandler {
	return &SeatHandler{availability: a, hub: hub}
}

type SeatSummaryResponse struct {
	EventID       string      `json:"event_id"`
	Rows          int         `json:"rows" example:"40"`
	SeatsPerRow   int         `json:"seats_per_row" example:"60"`
	TotalSeats    int         `json:"total_seats" example:"2400"`
	Available     int         `json:"available" example:"2398"`
	ReservedSeats []seat.Seat `json:"reserved_seats"`
}

type SeatStatusResponse struct {
	EventID string      `json:"event_id"`
	Row     int         `json:"row" example:"1"`
	Number  int         `json:"seat_number" example:"2"`
	Status  seat.Status `json:"status" example:"vacant"`
}

type AvailableCountResponse struct {
	EventID        string `json:"event_id"`
	AvailableCount int    `json:"available_count" example:"2398"`
}

func toSeatSummaryResponse(s *application.Summary) *SeatSummaryResponse {
	reserved := s.ReservedSeats
	if reserved == nil {
		reserved = []seat.Seat{}
	}
	return &SeatSummaryResponse{
		EventID:       s.EventID,
		Rows:          s.Grid.Rows,
		SeatsPerRow:   s.Grid.SeatsPerRow,
		TotalSeats:    s.TotalSeats,
		Available:     s.Available,
		ReservedSeats: reserved,
	}
}

// GetByEvent godoc
// @Summary イベントの座席状況を取得
// @Description 予約済み座席の一覧と空席数を返します
// @Tags seats
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} SeatSummaryResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/seats [get]
func (h *SeatHandler) GetByEvent(c echo.Context) error {
	summary, err := h.availability.Summary(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSeatSummaryResponse(summary))
}

// GetStatus godoc
// @Summary 座席の状態を取得
// @Tags seats
// @Produce json
// @Param id path string true "イベントID"
// @Param row path int true "列"
// @Param number path int true "座席番号"
// @Success 200 {object} SeatStatusResponse
// @Failure 400 {object} api.ErrorResponse "範囲外"
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id}/seats/{row}/{number} [get]
func (h *SeatHandler) GetStatus(c echo.Context) error {
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "列の形式が不正です")
	}
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "座席番号の形式が不正です")
	}

	eventID := c.Param("id")
	s := seat.Seat{Row: row, Number: number}
	status, err := h.availability.SeatStatus(c.Request().Context(), eventID, s)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SeatStatusResponse{EventID: eventID, Row: row, Number: number, Status: status})
}

// CountAvailable godoc
// @Summary 空席数を取得
// @Description 表示用の空席数（キャッシュ優先）
// @Tags seats
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} AvailableCountResponse
// @Router /events/{id}/seats/available/count [get]
func (h *SeatHandler) CountAvailable(c echo.Context) error {
	eventID := c.Param("id")
	count, err := h.availability.CountAvailable(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, AvailableCountResponse{EventID: eventID, AvailableCount: count})
}

// Watch godoc
// @Summary 座席変更を購読
// @Description WebSocket で seatReserved / seatCancelled を受け取ります
// @Tags seats
// @Param id path string true "イベントID"
// @Router /events/{id}/seats/ws [get]
func (h *SeatHandler) Watch(c echo.Context) error {
	if h.hub == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "リアルタイム配信は無効です")
	}
	eventID := c.Param("id")
	// 存在しないイベントの購読は拒否する
	if _, err := h.availability.CountAvailable(c.Request().Context(), eventID); err != nil {
		return err
	}
	// アップグレード後は HTTP で応答できないため、失敗はログのみ
	if err := h.hub.ServeWS(c.Response(), c.Request(), eventID); err != nil {
		logger.FromContext(c.Request().Context()).Debug("WebSocket 購読を終了しました",
			zap.String("event_id", eventID), zap.Error(err))
	}
	return nil
}

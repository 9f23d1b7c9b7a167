package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/logger"
)

// CodeValidation はリクエスト形式の検証エラーを表すコード
const CodeValidation = "VALIDATION_ERROR"

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error   string     `json:"error"`
	Code    string     `json:"code"`
	Details string     `json:"details,omitempty"`
	Seat    *seat.Seat `json:"seat,omitempty"`
}

// StatusOf はドメインエラーコードを HTTP ステータスに対応付ける
func StatusOf(code reservation.Code) int {
	switch code {
	case reservation.CodeOwnerRequired,
		reservation.CodeSeatsRequired,
		reservation.CodeDuplicateSeat,
		reservation.CodeOutOfBounds:
		return http.StatusBadRequest
	case reservation.CodeForbidden:
		return http.StatusForbidden
	case reservation.CodeEventNotFound, reservation.CodeReservationNotFound:
		return http.StatusNotFound
	case reservation.CodeSeatAlreadyReserved,
		reservation.CodeTimeSlotConflict,
		reservation.CodeAlreadyCancelled:
		return http.StatusConflict
	case reservation.CodeEventInPast, reservation.CodeCancellationWindowClosed:
		return http.StatusUnprocessableEntity
	case reservation.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// httpCode は "Too Many Requests" を "TOO_MANY_REQUESTS" の形にする
func httpCode(status int) string {
	if status == http.StatusBadRequest {
		return CodeValidation
	}
	return strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))
}

// isEventValidation はイベント作成時の入力エラーかを返す
func isEventValidation(err error) bool {
	var ve validator.ValidationErrors
	return errors.Is(err, event.ErrEventNameRequired) ||
		errors.Is(err, event.ErrStartAtRequired) ||
		errors.Is(err, seat.ErrInvalidGrid) ||
		errors.As(err, &ve)
}

// NewErrorResponse はエラーからステータスとレスポンスを組み立てる
func NewErrorResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return he.Code, ErrorResponse{Error: message, Code: httpCode(he.Code)}
	}

	if isEventValidation(err) {
		return http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: CodeValidation}
	}

	code := reservation.CodeOf(err)
	status := StatusOf(code)
	resp := ErrorResponse{Error: err.Error(), Code: string(code)}
	if status == http.StatusInternalServerError {
		resp.Error = "内部サーバーエラー"
	}
	if code == reservation.CodeTransient {
		resp.Details = "再試行してください"
	}
	if s, ok := reservation.SeatOf(err); ok {
		resp.Seat = &s
	}
	return status, resp
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, resp := NewErrorResponse(err)

	if status >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", status),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	var sendErr error
	if c.Request().Method == http.MethodHead {
		sendErr = c.NoContent(status)
	} else {
		sendErr = c.JSON(status, resp)
	}
	if sendErr != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(sendErr))
	}
}

package reservation

import (
	"errors"
	"fmt"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// Reservation ドメインのエラー定義
var (
	// 入力検証
	ErrOwnerIDRequired = errors.New("ユーザーIDは必須です")
	ErrSeatsRequired   = errors.New("座席が選択されていません")
	ErrDuplicateSeat   = errors.New("同じ座席が重複して指定されています")
	ErrEventInPast     = errors.New("開始済みのイベントは予約できません")
	ErrOutOfBounds     = errors.New("座席が会場の範囲外です")

	// 競合
	ErrTimeSlotConflict    = errors.New("同じ時刻に開始するイベントの予約が既にあります")
	ErrSeatAlreadyReserved = errors.New("座席は既に予約されています")

	// 所有者・キャンセル期限
	ErrReservationNotFound      = errors.New("予約が見つかりません")
	ErrForbidden                = errors.New("この予約を操作する権限がありません")
	ErrAlreadyCancelled         = errors.New("予約は既にキャンセルされています")
	ErrCancellationWindowClosed = errors.New("イベント開始直前のためキャンセルできません")

	// インフラ（再試行可能）
	ErrTransient = errors.New("一時的なエラーが発生しました。再試行してください")
)

// SeatError は特定の座席に起因するエラー
type SeatError struct {
	Seat seat.Seat
	Err  error
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("%s（列%d 座席%d）", e.Err.Error(), e.Seat.Row, e.Seat.Number)
}

func (e *SeatError) Unwrap() error {
	return e.Err
}

// NewSeatError は座席付きのエラーを作成する
func NewSeatError(s seat.Seat, err error) error {
	return &SeatError{Seat: s, Err: err}
}

// SeatOf はエラーに紐づく座席を取り出す
func SeatOf(err error) (seat.Seat, bool) {
	var se *SeatError
	if errors.As(err, &se) {
		return se.Seat, true
	}
	return seat.Seat{}, false
}

// Transient はインフラ起因の失敗を再試行可能なエラーとしてラップする
func Transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransient, err)
}

// Code はクライアントが判別に使う安定したエラーコード
type Code string

const (
	CodeOwnerRequired            Code = "OWNER_REQUIRED"
	CodeSeatsRequired            Code = "SEATS_REQUIRED"
	CodeDuplicateSeat            Code = "DUPLICATE_SEAT"
	CodeEventInPast              Code = "EVENT_IN_PAST"
	CodeTimeSlotConflict         Code = "TIME_SLOT_CONFLICT"
	CodeOutOfBounds              Code = "OUT_OF_BOUNDS"
	CodeSeatAlreadyReserved      Code = "SEAT_ALREADY_RESERVED"
	CodeEventNotFound            Code = "EVENT_NOT_FOUND"
	CodeReservationNotFound      Code = "RESERVATION_NOT_FOUND"
	CodeForbidden                Code = "FORBIDDEN"
	CodeAlreadyCancelled         Code = "ALREADY_CANCELLED"
	CodeCancellationWindowClosed Code = "CANCELLATION_WINDOW_CLOSED"
	CodeTransient                Code = "TRANSIENT"
	CodeInternal                 Code = "INTERNAL"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrOwnerIDRequired, CodeOwnerRequired},
	{ErrSeatsRequired, CodeSeatsRequired},
	{ErrDuplicateSeat, CodeDuplicateSeat},
	{ErrEventInPast, CodeEventInPast},
	{ErrTimeSlotConflict, CodeTimeSlotConflict},
	{ErrOutOfBounds, CodeOutOfBounds},
	{ErrSeatAlreadyReserved, CodeSeatAlreadyReserved},
	{event.ErrEventNotFound, CodeEventNotFound},
	{ErrReservationNotFound, CodeReservationNotFound},
	{ErrForbidden, CodeForbidden},
	{ErrAlreadyCancelled, CodeAlreadyCancelled},
	{ErrCancellationWindowClosed, CodeCancellationWindowClosed},
	{ErrTransient, CodeTransient},
}

// CodeOf はエラーに対応するコードを返す（未知のエラーは INTERNAL）
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

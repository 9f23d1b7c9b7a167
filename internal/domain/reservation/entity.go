package reservation

import (
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// Status は予約の状態を表す
// confirmed → cancelled の一方向にのみ遷移する
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// DefaultCancellationWindow はキャンセル受付の締め切り（開始時刻の何時間前まで）の既定値
const DefaultCancellationWindow = 72 * time.Hour

// Reservation は予約エンティティを表す
// イベントはIDでのみ参照し、イベント側から予約への逆参照は持たない
type Reservation struct {
	ID           string
	OwnerID      string
	EventID      string
	EventStartAt time.Time
	Seats        []seat.Seat
	Status       Status
	PaymentRef   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CancelledAt  *time.Time
}

// NewConfirmed は確定状態の予約を作成する
// 検証済みのリクエストに対して台帳のコミット処理からのみ呼び出す
func NewConfirmed(id, ownerID string, ev *event.Event, seats []seat.Seat, paymentRef string, now time.Time) *Reservation {
	copied := make([]seat.Seat, len(seats))
	copy(copied, seats)
	return &Reservation{
		ID:           id,
		OwnerID:      ownerID,
		EventID:      ev.ID,
		EventStartAt: ev.StartAt,
		Seats:        copied,
		Status:       StatusConfirmed,
		PaymentRef:   paymentRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsConfirmed は予約が確定状態かを返す
func (r *Reservation) IsConfirmed() bool {
	return r.Status == StatusConfirmed
}

// IsCancelled は予約がキャンセル済みかを返す
func (r *Reservation) IsCancelled() bool {
	return r.Status == StatusCancelled
}

// CancellationDeadline はキャンセル可能な最終時刻を返す
func (r *Reservation) CancellationDeadline(window time.Duration) time.Time {
	return r.EventStartAt.Add(-window)
}

// Cancel は予約をキャンセルする
// 所有者 → 状態 → キャンセル期限 の順に検証する
func (r *Reservation) Cancel(requesterID string, now time.Time, window time.Duration) error {
	if requesterID != r.OwnerID {
		return ErrForbidden
	}
	if r.IsCancelled() {
		return ErrAlreadyCancelled
	}
	if now.After(r.CancellationDeadline(window)) {
		return ErrCancellationWindowClosed
	}
	r.Status = StatusCancelled
	r.UpdatedAt = now
	r.CancelledAt = &now
	return nil
}

// Clone は座席スライスを含めて複製する
func (r *Reservation) Clone() *Reservation {
	c := *r
	c.Seats = make([]seat.Seat, len(r.Seats))
	copy(c.Seats, r.Seats)
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		c.CancelledAt = &at
	}
	return &c
}

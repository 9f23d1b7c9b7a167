package reservation

import (
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// Request は予約リクエストの検証入力
type Request struct {
	OwnerID string
	EventID string
	Event   *event.Event
	Seats   []seat.Seat
}

// Snapshot は検証時点で読み取った共有状態
type Snapshot struct {
	// Occupied はイベントの確定予約が占有している座席
	Occupied seat.Set
	// OwnerStarts は申込者の確定予約が参照するイベントの開始時刻
	OwnerStarts []time.Time
}

// Validate は予約リクエストが受け付け可能かを判定する（副作用なし）
//
// 検証順序は固定で、最初の失敗で打ち切る:
//  1. 座席が1つ以上、かつ重複なし
//  2. イベントが未開始
//  3. 同じ開始時刻の確定予約を持っていない
//  4. 全座席が会場の範囲内
//  5. どの座席も占有されていない（リクエスト順で最初に見つかった座席を報告）
//
// 結果は検証時点のスナップショットに対してのみ有効。台帳はトランザクション内で読み直した
// スナップショットで再度呼び出す。
func Validate(req Request, snap Snapshot, now time.Time) error {
	if err := ValidateInput(req.OwnerID, req.Seats); err != nil {
		return err
	}

	ev := req.Event
	if ev == nil || (req.EventID != "" && ev.ID != req.EventID) {
		return event.ErrEventNotFound
	}
	if ev.HasStarted(now) {
		return ErrEventInPast
	}

	for _, start := range snap.OwnerStarts {
		if start.Equal(ev.StartAt) {
			return ErrTimeSlotConflict
		}
	}

	for _, s := range req.Seats {
		if !ev.Grid.Contains(s) {
			return NewSeatError(s, ErrOutOfBounds)
		}
	}

	for _, s := range req.Seats {
		if snap.Occupied.Has(s) {
			return NewSeatError(s, ErrSeatAlreadyReserved)
		}
	}
	return nil
}

// ValidateInput は共有状態を読まずに判定できる入力検証（申込者、座席の有無と重複）を行う
func ValidateInput(ownerID string, seats []seat.Seat) error {
	if ownerID == "" {
		return ErrOwnerIDRequired
	}
	if len(seats) == 0 {
		return ErrSeatsRequired
	}
	seen := make(seat.Set, len(seats))
	for _, s := range seats {
		if seen.Has(s) {
			return NewSeatError(s, ErrDuplicateSeat)
		}
		seen.Add(s)
	}
	return nil
}

// FirstOccupied はリクエスト順で最初に占有されている座席を返す
func FirstOccupied(seats []seat.Seat, occupied seat.Set) (seat.Seat, bool) {
	for _, s := range seats {
		if occupied.Has(s) {
			return s, true
		}
	}
	return seat.Seat{}, false
}

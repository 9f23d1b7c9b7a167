package event

import (
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
)

// Event は会場で開催される1回の試合・公演を表す
// 予約処理からは {ID, Grid, StartAt} のみを読み取り専用で参照する
type Event struct {
	ID        string
	Name      string
	Venue     string
	Grid      seat.Grid
	StartAt   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewEvent は新しいイベントを作成する
func NewEvent(id, name, venue string, grid seat.Grid, startAt time.Time, now time.Time) *Event {
	return &Event{
		ID:        id,
		Name:      name,
		Venue:     venue,
		Grid:      grid,
		StartAt:   startAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Name == "" {
		return ErrEventNameRequired
	}
	if err := e.Grid.Validate(); err != nil {
		return err
	}
	if e.StartAt.IsZero() {
		return ErrStartAtRequired
	}
	return nil
}

// HasStarted は now 時点で開始済み（開始時刻を含む）かを返す
func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartAt.After(now)
}

package application

import (
	"context"
	"fmt"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/clock"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/pkg/idgen"
)

// EventService はイベントカタログの登録と参照を行う
// 予約処理はイベントを読み取り専用で参照する
type EventService struct {
	eventRepo event.Repository
	ids       idgen.Generator
	clock     clock.Clock
}

func NewEventService(eventRepo event.Repository, ids idgen.Generator, clk clock.Clock) *EventService {
	return &EventService{eventRepo: eventRepo, ids: ids, clock: clk}
}

type CreateEventInput struct {
	Name        string
	Venue       string
	Rows        int
	SeatsPerRow int
	StartAt     time.Time
}

func (s *EventService) CreateEvent(ctx context.Context, input CreateEventInput) (*event.Event, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return nil, fmt.Errorf("イベントIDの生成に失敗: %w", err)
	}
	grid := seat.Grid{Rows: input.Rows, SeatsPerRow: input.SeatsPerRow}
	e := event.NewEvent(id, input.Name, input.Venue, grid, input.StartAt, s.clock.Now())
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.eventRepo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (*event.Event, error) {
	return s.eventRepo.GetByID(ctx, nil, id)
}

func (s *EventService) ListEvents(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	limit, offset = normalizePage(limit, offset)
	return s.eventRepo.List(ctx, limit, offset)
}

// ListUpcoming は未開始のイベントを開始時刻順に取得する
func (s *EventService) ListUpcoming(ctx context.Context, limit int) ([]*event.Event, error) {
	limit, _ = normalizePage(limit, 0)
	return s.eventRepo.ListUpcoming(ctx, s.clock.Now(), limit)
}

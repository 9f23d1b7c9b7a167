package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// EventRepository はイベントリポジトリのメモリ実装
type EventRepository struct {
	store *Store
}

func NewEventRepository(s *Store) *EventRepository {
	return &EventRepository{store: s}
}

func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	if err := r.store.acquire(ctx); err != nil {
		return err
	}
	defer r.store.release()
	if _, exists := r.store.events[e.ID]; exists {
		return fmt.Errorf("イベント作成に失敗しました: ID %s は既に存在します", e.ID)
	}
	c := *e
	r.store.events[e.ID] = &c
	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*event.Event, error) {
	var out *event.Event
	err := r.store.view(ctx, tx, func() error {
		e, ok := r.store.events[id]
		if !ok {
			return event.ErrEventNotFound
		}
		c := *e
		out = &c
		return nil
	})
	return out, err
}

func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	return r.list(ctx, func(*event.Event) bool { return true }, limit, offset)
}

func (r *EventRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*event.Event, error) {
	return r.list(ctx, func(e *event.Event) bool { return e.StartAt.After(from) }, limit, 0)
}

func (r *EventRepository) list(ctx context.Context, match func(*event.Event) bool, limit, offset int) ([]*event.Event, error) {
	var all []*event.Event
	err := r.store.view(ctx, nil, func() error {
		for _, e := range r.store.events {
			if match(e) {
				c := *e
				all = append(all, &c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].StartAt.Equal(all[j].StartAt) {
			return all[i].StartAt.Before(all[j].StartAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

var _ event.Repository = (*EventRepository)(nil)

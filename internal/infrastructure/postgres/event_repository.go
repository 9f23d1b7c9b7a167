package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

const eventColumns = `id, name, venue, seat_rows, seats_per_row, start_at, created_at, updated_at`

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Venue       string    `db:"venue"`
	SeatRows    int       `db:"seat_rows"`
	SeatsPerRow int       `db:"seats_per_row"`
	StartAt     time.Time `db:"start_at"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() *event.Event {
	return &event.Event{
		ID:        r.ID,
		Name:      r.Name,
		Venue:     r.Venue,
		Grid:      seat.Grid{Rows: r.SeatRows, SeatsPerRow: r.SeatsPerRow},
		StartAt:   r.StartAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, e *event.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Name, e.Venue, e.Grid.Rows, e.Grid.SeatsPerRow, e.StartAt, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return classify("イベント作成に失敗しました", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*event.Event, error) {
	q, err := executor(r.db, tx)
	if err != nil {
		return nil, err
	}

	var row eventRow
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		return nil, classify("イベント取得に失敗しました", err)
	}
	return row.toEntity(), nil
}

// List はイベント一覧を開始時刻順に取得する
func (r *EventRepository) List(ctx context.Context, limit, offset int) ([]*event.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		ORDER BY start_at, id
		LIMIT $1 OFFSET $2
	`
	return r.selectEvents(ctx, query, limit, offset)
}

// ListUpcoming は from より後に開始するイベントを取得する
func (r *EventRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*event.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE start_at > $1
		ORDER BY start_at, id
		LIMIT $2
	`
	return r.selectEvents(ctx, query, from, limit)
}

func (r *EventRepository) selectEvents(ctx context.Context, query string, args ...any) ([]*event.Event, error) {
	var rows []eventRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, len(rows))
	for i := range rows {
		events[i] = rows[i].toEntity()
	}
	return events, nil
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// ErrTxRequired は更新系の操作がトランザクション外で呼ばれたことを表す
var ErrTxRequired = errors.New("トランザクションが必要です")

const reservationColumns = `id, owner_id, event_id, event_start_at, status, payment_ref, created_at, updated_at, cancelled_at`

type reservationRow struct {
	ID           string     `db:"id"`
	OwnerID      string     `db:"owner_id"`
	EventID      string     `db:"event_id"`
	EventStartAt time.Time  `db:"event_start_at"`
	Status       string     `db:"status"`
	PaymentRef   string     `db:"payment_ref"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	CancelledAt  *time.Time `db:"cancelled_at"`
}

type reservationSeatRow struct {
	ReservationID string `db:"reservation_id"`
	Row           int    `db:"seat_row"`
	Number        int    `db:"seat_number"`
}

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func requireTx(tx transaction.Tx) (*sqlx.Tx, error) {
	if tx == nil {
		return nil, ErrTxRequired
	}
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, ErrForeignTx
	}
	return sqlxTx, nil
}

// Create は予約と占有座席を保存する
// 座席は1文の複数行INSERTで行優先順に挿入し、並行する予約とのロック順序を揃える
func (r *ReservationRepository) Create(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx, err := requireTx(tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := sqlxTx.ExecContext(ctx, query,
		res.ID, res.OwnerID, res.EventID, res.EventStartAt, string(res.Status),
		res.PaymentRef, res.CreatedAt, res.UpdatedAt, res.CancelledAt,
	); err != nil {
		return classify("予約作成に失敗", err)
	}

	if len(res.Seats) == 0 {
		return nil
	}
	seatQuery, args := buildSeatInsert(res)
	if _, err := sqlxTx.ExecContext(ctx, seatQuery, args...); err != nil {
		return classify("予約座席の確保に失敗", err)
	}
	return nil
}

// buildSeatInsert は予約座席の複数行INSERTを組み立てる
// position には要求された順序を保存する
func buildSeatInsert(res *reservation.Reservation) (string, []any) {
	order := make([]int, len(res.Seats))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return res.Seats[order[a]].Less(res.Seats[order[b]]) })

	var sb strings.Builder
	sb.WriteString(`INSERT INTO reservation_seats (reservation_id, event_id, seat_row, seat_number, position, active) VALUES `)
	args := make([]any, 0, len(order)*6)
	for i, pos := range order {
		if i > 0 {
			sb.WriteString(", ")
		}
		n := len(args)
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5, n+6)
		s := res.Seats[pos]
		args = append(args, res.ID, res.EventID, s.Row, s.Number, pos, res.IsConfirmed())
	}
	return sb.String(), args
}

func (r *ReservationRepository) GetByID(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	q, err := executor(r.db, tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, q, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

// GetByIDForUpdate は行ロックを取得して予約を読み取る
func (r *ReservationRepository) GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*reservation.Reservation, error) {
	sqlxTx, err := requireTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlxTx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) get(ctx context.Context, q sqlx.ExtContext, query, id string) (*reservation.Reservation, error) {
	var row reservationRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, classify("予約取得に失敗", err)
	}
	seats, err := r.loadSeats(ctx, q, []string{row.ID})
	if err != nil {
		return nil, err
	}
	return row.toEntity(seats[row.ID]), nil
}

// ListByOwner は本人の予約を新しい順に取得する
func (r *ReservationRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE owner_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &rows, query, ownerID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	if len(rows) == 0 {
		return []*reservation.Reservation{}, nil
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	seats, err := r.loadSeats(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}

	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity(seats[rows[i].ID])
	}
	return result, nil
}

// UpdateStatus は予約の状態を更新し、座席の占有をそれに合わせる
func (r *ReservationRepository) UpdateStatus(ctx context.Context, tx transaction.Tx, res *reservation.Reservation) error {
	sqlxTx, err := requireTx(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE reservations SET status = $1, updated_at = $2, cancelled_at = $3
		WHERE id = $4 AND NOT (status = 'cancelled' AND $1 = 'confirmed')
	`
	result, err := sqlxTx.ExecContext(ctx, query, string(res.Status), res.UpdatedAt, res.CancelledAt, res.ID)
	if err != nil {
		return classify("予約更新に失敗", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗: %w", err)
	}
	if rows == 0 {
		var exists bool
		if err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM reservations WHERE id = $1)`, res.ID); err != nil {
			return classify("予約更新に失敗", err)
		}
		if !exists {
			return reservation.ErrReservationNotFound
		}
		return fmt.Errorf("予約更新に失敗: キャンセル済みの予約は確定に戻せません")
	}

	if _, err := sqlxTx.ExecContext(ctx,
		`UPDATE reservation_seats SET active = $1 WHERE reservation_id = $2`,
		res.IsConfirmed(), res.ID,
	); err != nil {
		return classify("予約座席の更新に失敗", err)
	}
	return nil
}

// OccupiedSeats は確定予約が占有する座席を行優先順で返す
func (r *ReservationRepository) OccupiedSeats(ctx context.Context, tx transaction.Tx, eventID string) ([]seat.Seat, error) {
	q, err := executor(r.db, tx)
	if err != nil {
		return nil, err
	}

	var rows []reservationSeatRow
	query := `
		SELECT reservation_id, seat_row, seat_number
		FROM reservation_seats
		WHERE event_id = $1 AND active
		ORDER BY seat_row, seat_number
	`
	if err := sqlx.SelectContext(ctx, q, &rows, query, eventID); err != nil {
		return nil, classify("占有座席の取得に失敗", err)
	}

	seats := make([]seat.Seat, len(rows))
	for i, row := range rows {
		seats[i] = seat.Seat{Row: row.Row, Number: row.Number}
	}
	return seats, nil
}

// ConfirmedStartTimes は from 以降に開始する本人の確定予約の開始時刻を返す
func (r *ReservationRepository) ConfirmedStartTimes(ctx context.Context, tx transaction.Tx, ownerID string, from time.Time) ([]time.Time, error) {
	q, err := executor(r.db, tx)
	if err != nil {
		return nil, err
	}

	var starts []time.Time
	query := `
		SELECT event_start_at
		FROM reservations
		WHERE owner_id = $1 AND status = 'confirmed' AND event_start_at >= $2
		ORDER BY event_start_at
	`
	if err := sqlx.SelectContext(ctx, q, &starts, query, ownerID, from); err != nil {
		return nil, classify("予約済み時間帯の取得に失敗", err)
	}
	return starts, nil
}

// loadSeats は予約IDごとの座席を要求順で返す
func (r *ReservationRepository) loadSeats(ctx context.Context, q sqlx.QueryerContext, ids []string) (map[string][]seat.Seat, error) {
	var rows []reservationSeatRow
	query := `
		SELECT reservation_id, seat_row, seat_number
		FROM reservation_seats
		WHERE reservation_id = ANY($1)
		ORDER BY reservation_id, position
	`
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(ids)); err != nil {
		return nil, classify("予約座席の取得に失敗", err)
	}

	out := make(map[string][]seat.Seat, len(ids))
	for _, row := range rows {
		out[row.ReservationID] = append(out[row.ReservationID], seat.Seat{Row: row.Row, Number: row.Number})
	}
	return out, nil
}

func (row *reservationRow) toEntity(seats []seat.Seat) *reservation.Reservation {
	return &reservation.Reservation{
		ID:           row.ID,
		OwnerID:      row.OwnerID,
		EventID:      row.EventID,
		EventStartAt: row.EventStartAt,
		Seats:        seats,
		Status:       reservation.Status(row.Status),
		PaymentRef:   row.PaymentRef,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
		CancelledAt:  row.CancelledAt,
	}
}

var _ reservation.Repository = (*ReservationRepository)(nil)

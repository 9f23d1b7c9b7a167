package reservation

import (
	"context"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/seat"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
// 読み取り系で tx が nil の場合はトランザクション外で1回のスナップショットとして読み取る
type Repository interface {
	// Create は確定予約と座席を保存する（トランザクション必須）
	// 座席の一意制約違反は ErrSeatAlreadyReserved、同時刻制約違反は ErrTimeSlotConflict、
	// 直列化失敗は transaction.ErrConflict を返す
	Create(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// GetByIDForUpdate は行ロックを取得して予約を取得する（トランザクション必須）
	GetByIDForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Reservation, error)

	// ListByOwner はユーザーの予約一覧を新しい順に取得する
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*Reservation, error)

	// UpdateStatus は予約の状態を保存し、キャンセル時は座席を解放する（トランザクション必須）
	UpdateStatus(ctx context.Context, tx transaction.Tx, reservation *Reservation) error

	// OccupiedSeats はイベントの確定予約が占有している座席を取得する
	OccupiedSeats(ctx context.Context, tx transaction.Tx, eventID string) ([]seat.Seat, error)

	// ConfirmedStartTimes はユーザーの確定予約のうち from 以降に開始するイベントの開始時刻を取得する
	ConfirmedStartTimes(ctx context.Context, tx transaction.Tx, ownerID string, from time.Time) ([]time.Time, error)
}

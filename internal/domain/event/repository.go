package event

import (
	"context"
	"time"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, event *Event) error

	// GetByID はIDからイベントを取得する（tx が nil の場合はトランザクション外で読み取る）
	GetByID(ctx context.Context, tx transaction.Tx, id string) (*Event, error)

	// List はイベント一覧を開始時刻順に取得する
	List(ctx context.Context, limit, offset int) ([]*Event, error)

	// ListUpcoming は from 以降に開始するイベントを取得する
	ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*Event, error)
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

// ErrForeignTx は別のストアで開始されたトランザクションが渡されたことを表す
var ErrForeignTx = errors.New("このストアのトランザクションではありません")

// TxWrapper は sqlx.Tx を transaction.Tx インターフェースでラップする
type TxWrapper struct {
	*sqlx.Tx
}

// Commit はトランザクションをコミットする
// 直列化失敗はコミット時に報告されることがあるため、ここでも分類する
func (t *TxWrapper) Commit() error {
	if err := t.Tx.Commit(); err != nil {
		return classify("コミットに失敗", err)
	}
	return nil
}

// Rollback はトランザクションをロールバックする
// コミット・ロールバック済みの場合は何もしない
func (t *TxWrapper) Rollback() error {
	if err := t.Tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// TxManager は sqlx.DB を使用したトランザクションマネージャー
// 予約の整合性は SERIALIZABLE 分離レベルと部分一意インデックスで担保する
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// Begin は SERIALIZABLE のトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	return &TxWrapper{Tx: tx}, nil
}

// UnwrapTx は transaction.Tx から sqlx.Tx を取り出す
// リポジトリ実装で使用する
func UnwrapTx(tx transaction.Tx) *sqlx.Tx {
	if wrapper, ok := tx.(*TxWrapper); ok {
		return wrapper.Tx
	}
	return nil
}

// executor は tx が nil ならDB、そうでなければトランザクションを返す
func executor(db *sqlx.DB, tx transaction.Tx) (sqlx.ExtContext, error) {
	if tx == nil {
		return db, nil
	}
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return nil, ErrForeignTx
	}
	return sqlxTx, nil
}

var _ transaction.Manager = (*TxManager)(nil)

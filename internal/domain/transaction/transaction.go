package transaction

import (
	"context"
	"errors"
)

// ErrConflict は並行トランザクションとの直列化競合（シリアライゼーション失敗・デッドロック）を表す
// ストアがこのエラーを返した場合、トランザクションは中断済みで何も永続化されていない
var ErrConflict = errors.New("トランザクションの競合が発生しました")

// Tx はトランザクションを表すインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
type Tx interface {
	// Commit はトランザクションをコミットする
	Commit() error
	// Rollback はトランザクションをロールバックする（コミット後の呼び出しは何もしない）
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	// Begin は新しいトランザクションを開始する
	Begin(ctx context.Context) (Tx, error)
}

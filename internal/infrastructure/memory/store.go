package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/event"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-stadium-seat-reservation/internal/domain/transaction"
)

var (
	ErrTxDone     = errors.New("トランザクションは既に終了しています")
	ErrForeignTx  = errors.New("このストアのトランザクションではありません")
	ErrTxRequired = errors.New("トランザクションが必要です")
)

// Store はプロセス内で完結するストア
// 書き込みトランザクションは1つずつ直列に実行され（セマフォを保持）、PostgreSQL 実装と同じ制約を検査する
type Store struct {
	sem chan struct{}

	// 以下はセマフォ保持中のみ読み書きする
	events       map[string]*event.Event
	reservations map[string]*reservation.Reservation
	order        []string
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		sem:          make(chan struct{}, 1),
		events:       make(map[string]*event.Event),
		reservations: make(map[string]*reservation.Reservation),
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.sem
}

// view は tx が nil ならセマフォを短時間取得して fn を実行し、tx があればその中で実行する
func (s *Store) view(ctx context.Context, t transaction.Tx, fn func() error) error {
	if t == nil {
		if err := s.acquire(ctx); err != nil {
			return err
		}
		defer s.release()
		return fn()
	}
	mt, err := s.unwrap(t)
	if err != nil {
		return err
	}
	return mt.run(fn)
}

// update はトランザクション内で fn を実行する（tx 必須）
func (s *Store) update(t transaction.Tx, fn func(mt *memTx) error) error {
	if t == nil {
		return ErrTxRequired
	}
	mt, err := s.unwrap(t)
	if err != nil {
		return err
	}
	return mt.run(func() error { return fn(mt) })
}

func (s *Store) unwrap(t transaction.Tx) (*memTx, error) {
	mt, ok := t.(*memTx)
	if !ok || mt.store != s {
		return nil, ErrForeignTx
	}
	return mt, nil
}

// memTx は undo ログを持つトランザクション
type memTx struct {
	store *Store
	mu    sync.Mutex
	undo  []func()
	done  bool
}

func (t *memTx) run(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	return fn()
}

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}

func (t *memTx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

func (t *memTx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.done = true
	t.undo = nil
	t.store.release()
	return nil
}

// TxManager はストアのトランザクションを開始する
type TxManager struct {
	store *Store
}

func NewTxManager(s *Store) *TxManager {
	return &TxManager{store: s}
}

// Begin は他のトランザクションの終了を待ってから開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := m.store.acquire(ctx); err != nil {
		return nil, err
	}
	return &memTx{store: m.store}, nil
}

var _ transaction.Manager = (*TxManager)(nil)

package idgen

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator は一意なIDを生成する
type Generator interface {
	NewID() (string, error)
}

type uuidV7 struct{}

// UUIDv7 は生成順にソート可能な UUID v7 を返す Generator
// 同一プロセス内では単調増加が保証される
func UUIDv7() Generator {
	return uuidV7{}
}

func (uuidV7) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("IDの生成に失敗: %w", err)
	}
	return id.String(), nil
}

// Sequence はテスト用に決まった順序でIDを返す Generator
type Sequence struct {
	mu     sync.Mutex
	prefix string
	next   int
}

// NewSequence は "prefix-000001", "prefix-000002", ... を返す Generator を作成する
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("%s-%06d", s.prefix, s.next), nil
}

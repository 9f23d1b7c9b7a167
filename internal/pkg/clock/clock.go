package clock

import (
	"sync"
	"time"
)

// Clock は現在時刻を提供する
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Real はシステム時刻を返す Clock
func Real() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

// Fixed はテスト用に時刻を固定・操作できる Clock
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed は指定時刻で固定された Clock を作成する
func NewFixed(now time.Time) *Fixed {
	return &Fixed{now: now}
}

func (c *Fixed) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set は時刻を変更する
func (c *Fixed) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// Advance は時刻を進める
func (c *Fixed) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

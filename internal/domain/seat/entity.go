package seat

import (
	"fmt"
	"iter"
	"sort"
)

// Status は座席の状態を表す（予約から導出される）
type Status string

const (
	StatusVacant   Status = "vacant"
	StatusReserved Status = "reserved"
)

// Seat は会場内の座席座標 (列, 座席番号) を表す
// 座席そのものは永続化されず、存在は Grid の範囲から、占有は予約から導出する
type Seat struct {
	Row    int `json:"row"`
	Number int `json:"seat_number"`
}

// String は "R1-S2" 形式の表記を返す
func (s Seat) String() string {
	return fmt.Sprintf("R%d-S%d", s.Row, s.Number)
}

// Less は行優先の順序で比較する
func (s Seat) Less(o Seat) bool {
	if s.Row != o.Row {
		return s.Row < o.Row
	}
	return s.Number < o.Number
}

// Grid は会場の座席空間（列数 × 1列あたりの座席数）を表す値型
type Grid struct {
	Rows        int
	SeatsPerRow int
}

// NewGrid は寸法を検証して Grid を作成する
func NewGrid(rows, seatsPerRow int) (Grid, error) {
	g := Grid{Rows: rows, SeatsPerRow: seatsPerRow}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// MaxDimension は列数と1列あたりの座席数の上限
const MaxDimension = 1000

// Validate は寸法が 1 以上 MaxDimension 以下であることを検証する
func (g Grid) Validate() error {
	if g.Rows < 1 || g.SeatsPerRow < 1 || g.Rows > MaxDimension || g.SeatsPerRow > MaxDimension {
		return ErrInvalidGrid
	}
	return nil
}

// IsValidCoordinate は座標が範囲内かを返す
func (g Grid) IsValidCoordinate(row, number int) bool {
	return row >= 1 && row <= g.Rows && number >= 1 && number <= g.SeatsPerRow
}

// Contains は座席が範囲内かを返す
func (g Grid) Contains(s Seat) bool {
	return g.IsValidCoordinate(s.Row, s.Number)
}

// TotalSeats は総座席数を返す
func (g Grid) TotalSeats() int {
	return g.Rows * g.SeatsPerRow
}

// Enumerate は全座席を行優先で列挙する
// Grid の寸法のみに依存するため、何度でも同じ順序で再列挙できる
func (g Grid) Enumerate() iter.Seq[Seat] {
	return func(yield func(Seat) bool) {
		for r := 1; r <= g.Rows; r++ {
			for n := 1; n <= g.SeatsPerRow; n++ {
				if !yield(Seat{Row: r, Number: n}) {
					return
				}
			}
		}
	}
}

// Set は座席の集合
type Set map[Seat]struct{}

// NewSet は座席一覧から集合を作成する
func NewSet(seats ...Seat) Set {
	s := make(Set, len(seats))
	for _, se := range seats {
		s[se] = struct{}{}
	}
	return s
}

// Add は座席を追加する
func (s Set) Add(se Seat) {
	s[se] = struct{}{}
}

// Has は座席が含まれるかを返す
func (s Set) Has(se Seat) bool {
	_, ok := s[se]
	return ok
}

// Len は要素数を返す
func (s Set) Len() int {
	return len(s)
}

// Sorted は行優先でソートした座席一覧を返す
func (s Set) Sorted() []Seat {
	out := make([]Seat, 0, len(s))
	for se := range s {
		out = append(out, se)
	}
	SortRowMajor(out)
	return out
}

// SortRowMajor は座席一覧を行優先でソートする
func SortRowMajor(seats []Seat) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Less(seats[j]) })
}

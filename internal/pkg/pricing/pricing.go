package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultSeatPrice は1席あたりの既定価格
const DefaultSeatPrice = "250"

var ErrInvalidPrice = errors.New("座席価格が不正です")

// Calculator は座席数から合計金額を計算する
// 価格は予約の整合性とは無関係な表示用の設定値
type Calculator struct {
	seatPrice decimal.Decimal
}

// NewCalculator は1席あたりの価格文字列から Calculator を作成する
func NewCalculator(seatPrice string) (*Calculator, error) {
	p, err := decimal.NewFromString(seatPrice)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPrice, seatPrice, err)
	}
	if p.IsNegative() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, seatPrice)
	}
	return &Calculator{seatPrice: p}, nil
}

// SeatPrice は1席あたりの価格を返す
func (c *Calculator) SeatPrice() decimal.Decimal {
	return c.seatPrice
}

// Total は座席数に応じた合計金額を返す
func (c *Calculator) Total(seatCount int) decimal.Decimal {
	return c.seatPrice.Mul(decimal.NewFromInt(int64(seatCount)))
}

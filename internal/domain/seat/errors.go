package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrInvalidGrid = errors.New("列数と1列あたりの座席数は1以上1000以下である必要があります")
)

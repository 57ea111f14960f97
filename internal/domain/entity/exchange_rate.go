package entity

import (
	"github.com/shopspring/decimal"
)

// ExchangeRate is the directional rate converting one unit of Source into Target
type ExchangeRate struct {
	Source string          `json:"source"`
	Target string          `json:"target"`
	Rate   decimal.Decimal `json:"rate"`
}

// PairKey returns the cache key for an ordered currency pair
func PairKey(source, target string) string {
	return source + ":" + target
}

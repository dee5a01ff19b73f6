package storage

import (
	"fmt"

	"github.com/shopspring/decimal"
)

func parseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("storage: parse money value %q: %w", s, err)
	}
	return d, nil
}

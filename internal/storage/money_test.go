package storage

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseMoney(t *testing.T) {
	got, err := parseMoney("1799.98")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if !got.Equal(decimal.RequireFromString("1799.98")) {
		t.Fatalf("got %s, want 1799.98", got)
	}

	if _, err := parseMoney("not-money"); err == nil {
		t.Fatalf("expected parse error")
	}
}

package invoice_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/invoice"
	"github.com/example/order-pipeline/internal/models"
)

func TestBuild(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	items := []models.OrderItem{
		{Name: "Mouse", Price: decimal.RequireFromString("29.99"), Quantity: 2},
	}

	inv := invoice.Build(
		"ORD-1",
		items,
		decimal.RequireFromString("59.98"),
		decimal.RequireFromString("12.00"),
		decimal.RequireFromString("47.98"),
		"SAVE20",
		now,
	)

	if inv.OrderID != "ORD-1" {
		t.Fatalf("got order id %q", inv.OrderID)
	}
	if inv.ItemCount != 1 {
		t.Fatalf("got item count %d, want 1", inv.ItemCount)
	}
	if inv.Status != models.StatusCompleted {
		t.Fatalf("got status %q, want %q", inv.Status, models.StatusCompleted)
	}
	if inv.PromoCode != "SAVE20" {
		t.Fatalf("got promo code %q", inv.PromoCode)
	}
	if inv.RecoveredFromDLQ {
		t.Fatal("fresh invoice must not be marked recovered")
	}
	if !inv.Timestamp.Equal(now) {
		t.Fatalf("got timestamp %s, want %s", inv.Timestamp, now)
	}
}

func TestBuildPromoCodeSentinel(t *testing.T) {
	inv := invoice.Build("ORD-2", nil, decimal.Zero, decimal.Zero, decimal.Zero, "", time.Now())
	if inv.PromoCode != models.PromoCodeNone {
		t.Fatalf("got promo code %q, want %q", inv.PromoCode, models.PromoCodeNone)
	}
}

func TestMarkRecovered(t *testing.T) {
	inv := invoice.Build("ORD-3", nil, decimal.Zero, decimal.Zero, decimal.Zero, "", time.Now())

	fixes := []string{"fixed negative price for Laptop"}
	invoice.MarkRecovered(&inv, fixes)

	if inv.Status != models.StatusRecovered {
		t.Fatalf("got status %q, want %q", inv.Status, models.StatusRecovered)
	}
	if !inv.RecoveredFromDLQ {
		t.Fatal("invoice must be flagged as recovered")
	}
	if len(inv.DLQFixes) != 1 || inv.DLQFixes[0] != fixes[0] {
		t.Fatalf("got fixes %v, want %v", inv.DLQFixes, fixes)
	}
}

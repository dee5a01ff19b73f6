package repair_test

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/models"
	"github.com/example/order-pipeline/internal/repair"
)

func item(name string, price string, qty int) models.OrderItem {
	return models.OrderItem{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

func TestRepairValidOrderIsUnchanged(t *testing.T) {
	msg := &models.OrderMessage{
		OrderID: "ORD-1",
		Items:   []models.OrderItem{item("Mouse", "29.99", 2)},
	}

	outcome := repair.Repair(msg)
	if outcome.Kind != repair.Unchanged {
		t.Fatalf("got kind %v, want Unchanged", outcome.Kind)
	}
	if len(outcome.Fixes) != 0 {
		t.Fatalf("expected no fixes, got %v", outcome.Fixes)
	}
	if outcome.Message != nil {
		t.Fatal("unchanged outcome must not carry a message")
	}
}

func TestRepairFixesNegativePriceAndQuantity(t *testing.T) {
	msg := &models.OrderMessage{
		OrderID: "ORD-2",
		Items:   []models.OrderItem{item("Laptop", "-999.99", -2)},
	}

	outcome := repair.Repair(msg)
	if outcome.Kind != repair.Repaired {
		t.Fatalf("got kind %v, want Repaired", outcome.Kind)
	}
	if len(outcome.Fixes) != 2 {
		t.Fatalf("got %d fixes, want 2: %v", len(outcome.Fixes), outcome.Fixes)
	}

	fixed := outcome.Message.Items[0]
	if !fixed.Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("got price %s, want 999.99", fixed.Price)
	}
	if fixed.Quantity != 1 {
		t.Fatalf("got quantity %d, want 1", fixed.Quantity)
	}

	for _, fix := range outcome.Fixes {
		if !strings.Contains(fix, "Laptop") {
			t.Fatalf("fix %q does not name the item", fix)
		}
	}

	// The original payload must be untouched.
	if !msg.Items[0].Price.Equal(decimal.RequireFromString("-999.99")) {
		t.Fatalf("original price mutated: %s", msg.Items[0].Price)
	}
	if msg.Items[0].Quantity != -2 {
		t.Fatalf("original quantity mutated: %d", msg.Items[0].Quantity)
	}
}

func TestRepairNoItemsIsUnrepairable(t *testing.T) {
	tests := []struct {
		name string
		msg  *models.OrderMessage
	}{
		{"nil message", nil},
		{"empty items", &models.OrderMessage{OrderID: "ORD-3"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			outcome := repair.Repair(tc.msg)
			if outcome.Kind != repair.Unrepairable {
				t.Fatalf("got kind %v, want Unrepairable", outcome.Kind)
			}
			if len(outcome.Fixes) != 1 || !strings.Contains(outcome.Fixes[0], "cannot fix") {
				t.Fatalf("expected a cannot-fix issue, got %v", outcome.Fixes)
			}
		})
	}
}

func TestRepairOnlyTouchesBrokenItems(t *testing.T) {
	msg := &models.OrderMessage{
		OrderID: "ORD-4",
		Items: []models.OrderItem{
			item("Mouse", "29.99", 2),
			item("Laptop", "-999.99", 1),
		},
	}

	outcome := repair.Repair(msg)
	if outcome.Kind != repair.Repaired {
		t.Fatalf("got kind %v, want Repaired", outcome.Kind)
	}
	if len(outcome.Fixes) != 1 {
		t.Fatalf("got fixes %v, want exactly one", outcome.Fixes)
	}
	if !outcome.Message.Items[0].Price.Equal(decimal.RequireFromString("29.99")) {
		t.Fatalf("healthy item mutated: %s", outcome.Message.Items[0].Price)
	}
	if !outcome.Message.Items[1].Price.Equal(decimal.RequireFromString("999.99")) {
		t.Fatalf("broken item not fixed: %s", outcome.Message.Items[1].Price)
	}
}

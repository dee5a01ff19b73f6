package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/models"
	"github.com/example/order-pipeline/internal/pricing"
)

func item(name string, price string, qty int) models.OrderItem {
	return models.OrderItem{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

func mustEqual(t *testing.T, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(want)) {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name  string
		items []models.OrderItem
		want  string
	}{
		{
			name:  "empty order",
			items: nil,
			want:  "0",
		},
		{
			name:  "single item",
			items: []models.OrderItem{item("Mouse", "29.99", 2)},
			want:  "59.98",
		},
		{
			name: "multiple items",
			items: []models.OrderItem{
				item("Mouse", "29.99", 2),
				item("Keyboard", "49.50", 1),
			},
			want: "109.48",
		},
		{
			name:  "rounds half away from zero",
			items: []models.OrderItem{item("Widget", "10.005", 3)},
			want:  "30.02",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mustEqual(t, pricing.Subtotal(tc.items), tc.want)
		})
	}
}

func TestSubtotalIsIdempotent(t *testing.T) {
	items := []models.OrderItem{
		item("Mouse", "29.99", 2),
		item("Widget", "10.005", 3),
	}

	first := pricing.Subtotal(items)
	second := pricing.Subtotal(items)
	if !first.Equal(second) {
		t.Fatalf("repeated calls diverged: %s vs %s", first, second)
	}
}

func TestApplyDiscount(t *testing.T) {
	tests := []struct {
		name         string
		subtotal     string
		promoCode    string
		wantFinal    string
		wantDiscount string
	}{
		{"save10", "100", "SAVE10", "90.00", "10.00"},
		{"save20", "100", "SAVE20", "80.00", "20.00"},
		{"welcome", "100", "WELCOME", "85.00", "15.00"},
		{"unknown code", "100", "UNKNOWN", "100.00", "0.00"},
		{"empty code", "100", "", "100.00", "0.00"},
		{"rounds discount", "59.98", "SAVE20", "47.98", "12.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			final, discount := pricing.ApplyDiscount(decimal.RequireFromString(tc.subtotal), tc.promoCode)
			mustEqual(t, final, tc.wantFinal)
			mustEqual(t, discount, tc.wantDiscount)
		})
	}
}

func TestBulkDiscount(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		want     string
	}{
		{"below first bracket", "100", "0"},
		{"five percent", "100.01", "5.00"},
		{"ten percent", "500.01", "50.00"},
		{"fifteen percent", "1000.01", "150.00"},
		{"bracket boundary is exclusive", "500", "25.00"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mustEqual(t, pricing.BulkDiscount(decimal.RequireFromString(tc.subtotal)), tc.want)
		})
	}
}

func TestTax(t *testing.T) {
	mustEqual(t, pricing.Tax(decimal.RequireFromString("100")), "8.00")
	mustEqual(t, pricing.Tax(decimal.RequireFromString("47.98")), "3.84")
}

func TestPromoPolicyQuote(t *testing.T) {
	policy, err := pricing.NewPolicy(pricing.PolicyPromo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	quote := policy.Quote([]models.OrderItem{item("Mouse", "29.99", 2)}, "SAVE20")
	mustEqual(t, quote.Subtotal, "59.98")
	mustEqual(t, quote.DiscountAmount, "12.00")
	mustEqual(t, quote.FinalTotal, "47.98")
	if !quote.Tax.IsZero() {
		t.Fatalf("promo policy must not apply tax, got %s", quote.Tax)
	}
}

func TestVolumePolicyQuote(t *testing.T) {
	policy, err := pricing.NewPolicy(pricing.PolicyVolume)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 600 subtotal lands in the 10% bracket; tax applies to the discounted
	// amount. The promo code must be ignored on this path.
	quote := policy.Quote([]models.OrderItem{item("Desk", "300", 2)}, "SAVE20")
	mustEqual(t, quote.Subtotal, "600")
	mustEqual(t, quote.DiscountAmount, "60.00")
	mustEqual(t, quote.Tax, "43.20")
	mustEqual(t, quote.FinalTotal, "583.20")
}

func TestNewPolicyUnknownMode(t *testing.T) {
	if _, err := pricing.NewPolicy("hybrid"); err == nil {
		t.Fatal("expected error for unknown policy mode")
	}
}

package order_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/models"
	"github.com/example/order-pipeline/internal/order"
)

func msg(items ...models.OrderItem) *models.OrderMessage {
	return &models.OrderMessage{
		OrderID:       "ORD-1",
		CorrelationID: "corr-1",
		Items:         items,
	}
}

func item(name string, price string, qty int) models.OrderItem {
	return models.OrderItem{
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		msg        *models.OrderMessage
		wantReason string
	}{
		{
			name:       "empty items",
			msg:        msg(),
			wantReason: "order must have at least one item",
		},
		{
			name:       "blank item name",
			msg:        msg(item("   ", "10", 1)),
			wantReason: "item name is required",
		},
		{
			name:       "non-positive quantity",
			msg:        msg(item("Mouse", "10", 0)),
			wantReason: "item quantity must be positive",
		},
		{
			name: "valid order",
			msg:  msg(item("Mouse", "29.99", 2)),
		},
		{
			name: "negative price passes the lenient tier",
			msg:  msg(item("Laptop", "-999.99", 2)),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := order.Validate(tc.msg)
			if tc.wantReason == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *order.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %T (%v)", err, err)
			}
			if verr.Reason != tc.wantReason {
				t.Fatalf("got reason %q, want %q", verr.Reason, tc.wantReason)
			}
		})
	}
}

func TestValidateFirstFailureWins(t *testing.T) {
	// All fields are invalid; the empty-items rule must still win.
	err := order.Validate(&models.OrderMessage{})

	var verr *order.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T (%v)", err, err)
	}
	if verr.Reason != "order must have at least one item" {
		t.Fatalf("got reason %q, want empty-items reason", verr.Reason)
	}
}

func TestCheckBusinessRules(t *testing.T) {
	tests := []struct {
		name     string
		msg      *models.OrderMessage
		wantItem string
	}{
		{
			name: "valid order",
			msg:  msg(item("Mouse", "29.99", 2)),
		},
		{
			name:     "negative price",
			msg:      msg(item("Laptop", "-999.99", 2)),
			wantItem: "Laptop",
		},
		{
			name:     "non-positive quantity",
			msg:      msg(item("Mouse", "29.99", -2)),
			wantItem: "Mouse",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := order.CheckBusinessRules(tc.msg)
			if tc.wantItem == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var berr *order.BusinessRuleError
			if !errors.As(err, &berr) {
				t.Fatalf("expected BusinessRuleError, got %T (%v)", err, err)
			}
			if berr.Item != tc.wantItem {
				t.Fatalf("got item %q, want %q", berr.Item, tc.wantItem)
			}
			if !strings.Contains(err.Error(), tc.wantItem) {
				t.Fatalf("error %q does not name the offending item", err.Error())
			}
		})
	}
}

func TestTwoTierSplit(t *testing.T) {
	// The recovery demonstration relies on bad prices passing ingress
	// validation and failing the business gate.
	bad := msg(item("Laptop", "-999.99", 2))

	if err := order.Validate(bad); err != nil {
		t.Fatalf("lenient tier rejected negative price: %v", err)
	}
	if err := order.CheckBusinessRules(bad); err == nil {
		t.Fatal("strict tier accepted negative price")
	}
}

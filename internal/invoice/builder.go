// Package invoice assembles persisted invoice records from validated order
// data and pricing results.
package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/order-pipeline/internal/models"
)

// Build composes an invoice from the supplied order data and pricing
// results. It performs no validation; callers are expected to have validated
// and priced the order already. The invoice defaults to the completed
// status; recovery callers mark it recovered afterwards.
func Build(orderID string, items []models.OrderItem, subtotal, discountAmount, finalTotal decimal.Decimal, promoCode string, now time.Time) models.Invoice {
	if promoCode == "" {
		promoCode = models.PromoCodeNone
	}
	return models.Invoice{
		OrderID:        orderID,
		Items:          items,
		ItemCount:      len(items),
		Subtotal:       subtotal,
		DiscountAmount: discountAmount,
		FinalTotal:     finalTotal,
		PromoCode:      promoCode,
		Status:         models.StatusCompleted,
		Timestamp:      now.UTC(),
	}
}

// MarkRecovered transitions the invoice onto the recovery path, recording
// the fixes the repairer applied.
func MarkRecovered(inv *models.Invoice, fixes []string) {
	inv.Status = models.StatusRecovered
	inv.RecoveredFromDLQ = true
	inv.DLQFixes = fixes
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle statuses.
const (
	StatusCompleted = "completed"
	StatusRecovered = "RECOVERED"

	// NotificationStatusRecovered is the status carried on notifications
	// emitted for orders replayed out of the DLQ.
	NotificationStatusRecovered = "recovered_from_dlq"

	// PromoCodeNone is the sentinel stored on invoices without a promo code.
	PromoCodeNone = "None"
)

// Invoice is the persisted result of a successfully processed order. It is
// written once per processing attempt, keyed by order id; a DLQ replay for
// the same order overwrites it (last write wins).
type Invoice struct {
	OrderID          string          `json:"order_id"`
	CorrelationID    string          `json:"correlation_id"`
	Items            []OrderItem     `json:"items"`
	ItemCount        int             `json:"item_count"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	PromoCode        string          `json:"promo_code"`
	Status           string          `json:"status"`
	RecoveredFromDLQ bool            `json:"recovered_from_dlq"`
	DLQFixes         []string        `json:"dlq_fixes,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

// StatusRecord tracks order state in the table store. Both workers write it;
// updates are last-write-wins by timestamp, no locking assumed.
type StatusRecord struct {
	OrderID          string          `json:"order_id"`
	UserID           string          `json:"user_id,omitempty"`
	Status           string          `json:"status"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	FinalTotal       decimal.Decimal `json:"final_total"`
	ItemsJSON        string          `json:"items_json"`
	PromoCode        string          `json:"promo_code"`
	RecoveredFromDLQ bool            `json:"recovered_from_dlq"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// NotificationEnvelope is the fire-and-forget message published for every
// completed or recovered order. No acknowledgement is tracked.
type NotificationEnvelope struct {
	OrderID         string          `json:"order_id"`
	CorrelationID   string          `json:"correlation_id"`
	Status          string          `json:"status"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	InvoiceLocation string          `json:"invoice_location"`
	FixesApplied    []string        `json:"fixes_applied,omitempty"`
}

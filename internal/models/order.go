package models

import "github.com/shopspring/decimal"

func init() {
	// Monetary fields are serialized as JSON numbers to match the wire
	// contract of the ingress API and persisted invoices.
	decimal.MarshalJSONWithoutQuotes = true
}

// OrderItem is a single line item on an order. Valid items carry a positive
// unit price and quantity; upstream test traffic deliberately violates this
// to exercise the recovery path.
type OrderItem struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// OrderMessage is the task payload produced by the ingress API and consumed
// by the task and DLQ workers. It is immutable once enqueued; the transport
// may redeliver it on failure. AuthToken is an opaque principal identifier
// attached upstream and is never validated here.
type OrderMessage struct {
	OrderID       string      `json:"order_id"`
	CorrelationID string      `json:"correlation_id"`
	Items         []OrderItem `json:"items"`
	PromoCode     string      `json:"promo_code,omitempty"`
	UserID        string      `json:"user_id,omitempty"`
	AuthToken     string      `json:"auth_token,omitempty"`
}

// Clone returns a deep copy of the message so repairs can be applied without
// mutating the original payload.
func (m *OrderMessage) Clone() *OrderMessage {
	if m == nil {
		return nil
	}
	clone := *m
	if len(m.Items) > 0 {
		clone.Items = make([]OrderItem, len(m.Items))
		copy(clone.Items, m.Items)
	}
	return &clone
}

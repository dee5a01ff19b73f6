// Package order holds the two validation tiers applied to inbound order
// messages. Structural validation (Validate) is lenient on price sign so
// that bad prices surface downstream where they can be auto-repaired; the
// business-rule gate (CheckBusinessRules) is the strict tier enforced by the
// task worker before any side effect.
package order

import (
	"fmt"
	"strings"

	"github.com/example/order-pipeline/internal/models"
)

// ValidationError reports a structural rule violation. Rules are evaluated
// in a fixed order and the first failure wins.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// BusinessRuleError reports an item that violates the pricing invariants
// checked by the task worker.
type BusinessRuleError struct {
	Item   string
	Reason string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("invalid item %q: %s", e.Item, e.Reason)
}

// Validate checks the message against the structural rules, first failure
// wins:
//
//  1. the order must contain at least one item
//  2. every item name must be non-empty after trimming
//  3. every item quantity must be positive
//
// Negative unit prices deliberately pass this tier.
func Validate(msg *models.OrderMessage) error {
	if msg == nil || len(msg.Items) == 0 {
		return &ValidationError{Reason: "order must have at least one item"}
	}
	for _, item := range msg.Items {
		if strings.TrimSpace(item.Name) == "" {
			return &ValidationError{Reason: "item name is required"}
		}
		if item.Quantity <= 0 {
			return &ValidationError{Reason: "item quantity must be positive"}
		}
	}
	return nil
}

// CheckBusinessRules enforces the strict pricing invariants: no negative
// unit price, no non-positive quantity. A violation here forces the message
// onto the dead-letter path where the repairer can heal it.
func CheckBusinessRules(msg *models.OrderMessage) error {
	if msg == nil {
		return &ValidationError{Reason: "order must have at least one item"}
	}
	for _, item := range msg.Items {
		if item.Price.IsNegative() {
			return &BusinessRuleError{Item: item.Name, Reason: "unit price must not be negative"}
		}
		if item.Quantity <= 0 {
			return &BusinessRuleError{Item: item.Name, Reason: "quantity must be positive"}
		}
	}
	return nil
}

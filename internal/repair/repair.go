// Package repair implements best-effort healing of orders that failed the
// task worker's business-rule gate.
package repair

import (
	"fmt"

	"github.com/example/order-pipeline/internal/models"
)

// Kind tags the three possible repair outcomes so callers never have to
// disambiguate a shared nil sentinel.
type Kind int

const (
	// Unchanged means the order needed no correction; callers should skip
	// the replay rather than treat this as a failure.
	Unchanged Kind = iota
	// Repaired means known-bad fields were corrected and the order can be
	// replayed through the pipeline.
	Repaired
	// Unrepairable means the order cannot be healed automatically and is
	// left for manual intervention.
	Unrepairable
)

// Outcome is the result of a repair attempt. Message is populated only for
// Repaired outcomes and is a deep copy; the original payload is never
// mutated.
type Outcome struct {
	Kind    Kind
	Message *models.OrderMessage
	Fixes   []string
}

// Repair inspects the order for known-bad fields and corrects them: a
// negative price is replaced with its absolute value and a non-positive
// quantity is reset to one. An order without items cannot be fixed.
func Repair(msg *models.OrderMessage) Outcome {
	if msg == nil || len(msg.Items) == 0 {
		return Outcome{
			Kind:  Unrepairable,
			Fixes: []string{"cannot fix: no items in order"},
		}
	}

	fixed := msg.Clone()
	var fixes []string
	for i := range fixed.Items {
		item := &fixed.Items[i]
		if item.Price.IsNegative() {
			item.Price = item.Price.Abs()
			fixes = append(fixes, fmt.Sprintf("fixed negative price for %s", item.Name))
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
			fixes = append(fixes, fmt.Sprintf("fixed invalid quantity for %s", item.Name))
		}
	}

	if len(fixes) == 0 {
		return Outcome{Kind: Unchanged}
	}
	return Outcome{Kind: Repaired, Message: fixed, Fixes: fixes}
}

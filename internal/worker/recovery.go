package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"

	"github.com/example/order-pipeline/internal/invoice"
	"github.com/example/order-pipeline/internal/metrics"
	"github.com/example/order-pipeline/internal/models"
	"github.com/example/order-pipeline/internal/pricing"
	"github.com/example/order-pipeline/internal/repair"
)

// RecoveryConfig contains the runtime settings for the recovery engine.
type RecoveryConfig struct {
	InvoiceBucket string
}

// RecoveryDependencies collects the collaborators required by the recovery
// engine.
type RecoveryDependencies struct {
	Policy    pricing.Policy
	Store     ObjectStore
	Statuses  StatusStore
	Notifier  Notifier
	Committer Committer
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Summary aggregates the outcome of one recovery batch. It is observational
// only and drives no further control flow.
type Summary struct {
	Total     int
	Recovered int
	Skipped   int
	Failed    int
}

// RecoveryEngine consumes the failure queue: it attempts to auto-repair each
// message and replays repaired orders through pricing, persistence and
// notification. A single message's failure never aborts the batch; every
// per-message error is caught, logged with the order id and counted.
type RecoveryEngine struct {
	cfg       RecoveryConfig
	policy    pricing.Policy
	store     ObjectStore
	statuses  StatusStore
	notifier  Notifier
	committer Committer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRecoveryEngine constructs a recovery engine, validating collaborators
// up front.
func NewRecoveryEngine(cfg RecoveryConfig, deps RecoveryDependencies) (*RecoveryEngine, error) {
	if deps.Policy == nil {
		return nil, errors.New("worker: pricing policy dependency is required")
	}
	if deps.Store == nil {
		return nil, errors.New("worker: object store dependency is required")
	}
	if deps.Statuses == nil {
		return nil, errors.New("worker: status store dependency is required")
	}
	if deps.Notifier == nil {
		return nil, errors.New("worker: notifier dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "recovery_engine").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &RecoveryEngine{
		cfg:       cfg,
		policy:    deps.Policy,
		store:     deps.Store,
		statuses:  deps.Statuses,
		notifier:  deps.Notifier,
		committer: deps.Committer,
		logger:    logger,
		now:       nowFunc,
	}, nil
}

// ProcessBatch handles a batch of dead-lettered records with per-message
// failure isolation and returns the aggregate counters.
func (e *RecoveryEngine) ProcessBatch(ctx context.Context, records []*Record) Summary {
	summary := Summary{Total: len(records)}

	for _, record := range records {
		if record == nil {
			continue
		}

		switch err := e.processRecord(ctx, record); {
		case err == nil:
			summary.Recovered++
		case errors.Is(err, errSkipped):
			summary.Skipped++
		default:
			summary.Failed++
		}

		// Offsets advance regardless of outcome; unrepairable orders are
		// surfaced through logs and counters for manual intervention.
		if err := e.committer.Commit(ctx, record); err != nil {
			e.logger.Error().Err(err).Msg("recovery: failed to commit record offset")
		}
	}

	e.logger.Info().
		Int("total", summary.Total).
		Int("recovered", summary.Recovered).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("recovery: batch processed")

	return summary
}

// errSkipped marks records that were neither recovered nor failed: already
// valid orders and unrepairable ones.
var errSkipped = errors.New("recovery: record skipped")

func (e *RecoveryEngine) processRecord(ctx context.Context, record *Record) error {
	orderID := UnknownOrderID
	correlationID := UnknownCorrelationID

	var msg models.OrderMessage
	if err := json.Unmarshal(record.Value, &msg); err != nil {
		e.logger.Error().
			Str("order_id", orderID).
			Err(err).
			Msg("recovery: failed to decode dead-lettered message")
		return fmt.Errorf("decode dead-lettered message: %w", err)
	}
	orderID = orderIDOr(msg.OrderID)
	correlationID = correlationIDOr(msg.CorrelationID)

	log := e.logger.With().
		Str("order_id", orderID).
		Str("correlation_id", correlationID).
		Logger()
	log.Info().Msg("recovery: processing failed order")

	outcome := repair.Repair(&msg)
	switch outcome.Kind {
	case repair.Unrepairable:
		metrics.OrdersUnrepairable.Inc()
		log.Error().
			Strs("issues", outcome.Fixes).
			Msg("recovery: order cannot be auto-fixed, requires manual intervention")
		return errSkipped
	case repair.Unchanged:
		log.Info().Msg("recovery: order needed no repair, skipping replay")
		return errSkipped
	}

	log.Info().Strs("fixes", outcome.Fixes).Msg("recovery: order fixed, reprocessing")

	if err := e.replay(ctx, outcome.Message, correlationID, outcome.Fixes); err != nil {
		log.Error().Err(err).Msg("recovery: failed to replay repaired order")
		return err
	}

	metrics.OrdersRecovered.Inc()
	log.Info().Msg("recovery: order recovered and completed")
	return nil
}

// replay runs a repaired order through the same pricing, persistence and
// notification stages as the primary path, marked as recovered.
func (e *RecoveryEngine) replay(ctx context.Context, msg *models.OrderMessage, correlationID string, fixes []string) error {
	quote := e.policy.Quote(msg.Items, msg.PromoCode)

	inv := invoice.Build(msg.OrderID, msg.Items, quote.Subtotal, quote.DiscountAmount, quote.FinalTotal, msg.PromoCode, e.now())
	inv.CorrelationID = correlationID
	invoice.MarkRecovered(&inv, fixes)

	body, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invoice: %w", err)
	}

	key := invoiceKey(e.cfg.InvoiceBucket, msg.OrderID)
	if err := e.store.Put(ctx, key, body); err != nil {
		return fmt.Errorf("persist invoice: %w", err)
	}

	itemsJSON, err := json.Marshal(msg.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	rec := models.StatusRecord{
		OrderID:          msg.OrderID,
		UserID:           msg.UserID,
		Status:           models.StatusRecovered,
		Subtotal:         quote.Subtotal,
		DiscountAmount:   quote.DiscountAmount,
		FinalTotal:       quote.FinalTotal,
		ItemsJSON:        string(itemsJSON),
		PromoCode:        inv.PromoCode,
		RecoveredFromDLQ: true,
		UpdatedAt:        e.now(),
	}
	if err := e.statuses.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("upsert status record: %w", err)
	}

	env := models.NotificationEnvelope{
		OrderID:         msg.OrderID,
		CorrelationID:   correlationID,
		Status:          models.NotificationStatusRecovered,
		FinalTotal:      quote.FinalTotal,
		InvoiceLocation: key,
		FixesApplied:    fixes,
	}
	if err := e.notifier.Notify(ctx, env); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}

// HandleRecord adapts the recovery engine to the per-record consumer
// callback by treating each delivery as a single-message batch.
func (e *RecoveryEngine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}
	e.ProcessBatch(ctx, []*Record{record})
}

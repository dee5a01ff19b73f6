// Package worker contains the two message-processing engines of the order
// pipeline: the task engine driving the primary path from queued order to
// persisted invoice and notification, and the recovery engine replaying
// repaired messages out of the failure queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/example/order-pipeline/internal/invoice"
	"github.com/example/order-pipeline/internal/metrics"
	"github.com/example/order-pipeline/internal/models"
	"github.com/example/order-pipeline/internal/order"
	"github.com/example/order-pipeline/internal/pricing"
	"github.com/example/order-pipeline/internal/util"
)

// Sentinels recorded when a payload cannot be decoded far enough to recover
// its identifiers.
const (
	UnknownOrderID       = "Unknown"
	UnknownCorrelationID = "N/A"
)

// Config contains the runtime settings the task engine relies on to
// orchestrate processing, retries and dead-lettering.
type Config struct {
	InvoiceBucket     string
	MaxAttempts       int
	BaseBackoff       time.Duration
	MaxBackoff        time.Duration
	WorkerConcurrency int
}

// ObjectStore persists invoice documents keyed by object name. Writes are
// idempotent overwrites; re-processing the same order id is safe.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte) error
}

// StatusStore upserts order status records keyed by order id.
type StatusStore interface {
	Upsert(ctx context.Context, rec models.StatusRecord) error
}

// Notifier publishes fire-and-forget notification envelopes downstream.
type Notifier interface {
	Notify(ctx context.Context, env models.NotificationEnvelope) error
}

// DeadLetterer moves a failed message to the failure queue. The payload is
// the unmodified original message body; meta describes the failure.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, key, payload []byte, meta models.DeadLetterMeta) error
}

// Committer acknowledges records with the underlying transport.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// CommitFunc adapts a plain function to the Committer interface.
type CommitFunc func(ctx context.Context, record *Record) error

// Commit implements Committer.
func (f CommitFunc) Commit(ctx context.Context, record *Record) error {
	return f(ctx, record)
}

// Dependencies collects the runtime collaborators required by the task
// engine.
type Dependencies struct {
	Policy     pricing.Policy
	Store      ObjectStore
	Statuses   StatusStore
	Notifier   Notifier
	DeadLetter DeadLetterer
	Committer  Committer
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Engine is the primary task consumer. Each record walks the lifecycle
// decode -> validate -> price -> persist -> notify -> acknowledge; failures
// leave the record unacknowledged until it is handed to the failure queue,
// so the retry/dead-letter mechanism is the sole recovery path.
type Engine struct {
	cfg        Config
	policy     pricing.Policy
	store      ObjectStore
	statuses   StatusStore
	notifier   Notifier
	deadLetter DeadLetterer
	committer  Committer
	logger     zerolog.Logger

	semaphore *semaphore.Weighted

	now func() time.Time

	randMu sync.Mutex
	rnd    *rand.Rand
}

// NewEngine constructs a task engine, validating configuration and
// collaborators to surface misconfiguration at startup.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.MaxAttempts < 1 {
		return nil, errors.New("worker: max attempts must be >= 1")
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, errors.New("worker: worker concurrency must be >= 1")
	}
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
	if deps.DeadLetter == nil {
		return nil, errors.New("worker: dead-letterer dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "task_engine").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Engine{
		cfg:        cfg,
		policy:     deps.Policy,
		store:      deps.Store,
		statuses:   deps.Statuses,
		notifier:   deps.Notifier,
		deadLetter: deps.DeadLetter,
		committer:  deps.Committer,
		logger:     logger,
		semaphore:  semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
		now:        nowFunc,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// HandleRecord triggers asynchronous processing of a delivered record,
// bounded by the configured concurrency limit.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.logger.Error().Err(err).Msg("worker: failed to acquire concurrency semaphore")
		return
	}

	go e.processRecord(ctx, record.Clone())
}

func (e *Engine) processRecord(ctx context.Context, record *Record) {
	defer e.semaphore.Release(1)

	if ctx.Err() != nil {
		e.logger.Warn().Msg("worker: context cancelled before processing began")
		return
	}

	state := StateReceived

	var msg models.OrderMessage
	if err := json.Unmarshal(record.Value, &msg); err != nil {
		e.reject(ctx, record, &msg, models.FailureTypeValidation, fmt.Errorf("decode order message: %w", err))
		return
	}

	// Producers that skip the correlation id still get a traceable one.
	if msg.CorrelationID == "" {
		msg.CorrelationID = util.NewCorrelationID()
	} else if canonical, err := util.ParseCorrelationID(msg.CorrelationID); err == nil {
		msg.CorrelationID = canonical
	}

	log := e.logger.With().
		Str("order_id", msg.OrderID).
		Str("correlation_id", msg.CorrelationID).
		Logger()
	log.Info().
		Str("state", state.String()).
		Int("items", len(msg.Items)).
		Bool("authenticated", msg.AuthToken != "").
		Msg("worker: order received")

	if err := order.Validate(&msg); err != nil {
		log.Warn().Err(err).Msg("worker: structural validation failed")
		e.reject(ctx, record, &msg, models.FailureTypeValidation, err)
		return
	}

	// Strict business tier: negative prices slip through ingress validation
	// on purpose and must be stopped here, forcing the repair path.
	if err := order.CheckBusinessRules(&msg); err != nil {
		log.Warn().Err(err).Msg("worker: business rule violated")
		e.reject(ctx, record, &msg, models.FailureTypeBusinessRule, err)
		return
	}
	state = StateValidated
	log.Debug().Str("state", state.String()).Msg("worker: order validated")

	quote := e.policy.Quote(msg.Items, msg.PromoCode)
	state = StatePriced
	log.Debug().
		Str("state", state.String()).
		Str("subtotal", quote.Subtotal.String()).
		Str("discount", quote.DiscountAmount.String()).
		Str("final_total", quote.FinalTotal.String()).
		Msg("worker: order priced")

	attempt := 1
	firstFailedAt := time.Time{}

	for {
		start := e.now()
		reached, err := e.settle(ctx, &msg, quote)
		duration := e.now().Sub(start)

		if err == nil {
			state = StateAcknowledged
			if cerr := e.committer.Commit(ctx, record); cerr != nil {
				log.Error().Err(cerr).Msg("worker: failed to commit record offset")
			}
			metrics.OrdersProcessed.Inc()
			metrics.ProcessingDuration.Observe(duration.Seconds())
			log.Info().
				Str("state", state.String()).
				Int("attempt", attempt).
				Dur("duration", duration).
				Msg("worker: order completed")
			return
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Err(err).Msg("worker: context cancelled during settlement; deferring commit for reprocessing")
			return
		}

		now := e.now()
		if firstFailedAt.IsZero() {
			firstFailedAt = now
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Str("reached", reached.String()).
			Msg("worker: settlement attempt failed")

		if attempt >= e.cfg.MaxAttempts {
			state = StateFailed
			log.Warn().Str("state", state.String()).Msg("worker: retry budget exhausted")
			e.handOff(ctx, record, models.DeadLetterMeta{
				OrderID:       orderIDOr(msg.OrderID),
				CorrelationID: correlationIDOr(msg.CorrelationID),
				FailureType:   models.FailureTypeTransient,
				Attempts:      attempt,
				LastError:     err.Error(),
				FirstFailedAt: firstFailedAt,
				LastAttemptAt: now,
			}, log)
			return
		}

		backoff := e.computeBackoff(attempt)
		if !e.wait(ctx, backoff) {
			log.Warn().Int("attempt", attempt).Msg("worker: context cancelled while waiting for retry")
			return
		}
		attempt++
	}
}

// settle performs the side-effecting stages: persist invoice, upsert status,
// publish notification. It returns the furthest state reached alongside any
// error so retries can be logged against the failing stage.
func (e *Engine) settle(ctx context.Context, msg *models.OrderMessage, quote pricing.Quote) (State, error) {
	inv := invoice.Build(msg.OrderID, msg.Items, quote.Subtotal, quote.DiscountAmount, quote.FinalTotal, msg.PromoCode, e.now())
	inv.CorrelationID = msg.CorrelationID

	body, err := json.Marshal(inv)
	if err != nil {
		return StatePriced, fmt.Errorf("marshal invoice: %w", err)
	}

	key := invoiceKey(e.cfg.InvoiceBucket, msg.OrderID)
	if err := e.store.Put(ctx, key, body); err != nil {
		return StatePriced, fmt.Errorf("persist invoice: %w", err)
	}

	itemsJSON, err := json.Marshal(msg.Items)
	if err != nil {
		return StatePersisted, fmt.Errorf("marshal items: %w", err)
	}
	rec := models.StatusRecord{
		OrderID:        msg.OrderID,
		UserID:         msg.UserID,
		Status:         models.StatusCompleted,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		FinalTotal:     quote.FinalTotal,
		ItemsJSON:      string(itemsJSON),
		PromoCode:      inv.PromoCode,
		UpdatedAt:      e.now(),
	}
	if err := e.statuses.Upsert(ctx, rec); err != nil {
		return StatePersisted, fmt.Errorf("upsert status record: %w", err)
	}

	env := models.NotificationEnvelope{
		OrderID:         msg.OrderID,
		CorrelationID:   msg.CorrelationID,
		Status:          models.StatusCompleted,
		FinalTotal:      quote.FinalTotal,
		InvoiceLocation: key,
	}
	if err := e.notifier.Notify(ctx, env); err != nil {
		return StatePersisted, fmt.Errorf("publish notification: %w", err)
	}

	return StateNotified, nil
}

// reject handles deterministic failures: the record is handed straight to
// the failure queue since redelivery cannot change the outcome.
func (e *Engine) reject(ctx context.Context, record *Record, msg *models.OrderMessage, failureType string, cause error) {
	now := e.now()
	log := e.logger.With().
		Str("order_id", orderIDOr(msg.OrderID)).
		Str("correlation_id", correlationIDOr(msg.CorrelationID)).
		Logger()
	log.Warn().Str("state", StateRejected.String()).Err(cause).Msg("worker: order rejected")

	e.handOff(ctx, record, models.DeadLetterMeta{
		OrderID:       orderIDOr(msg.OrderID),
		CorrelationID: correlationIDOr(msg.CorrelationID),
		FailureType:   failureType,
		Attempts:      1,
		LastError:     cause.Error(),
		FirstFailedAt: now,
		LastAttemptAt: now,
	}, log)
}

// handOff dead-letters the original payload. Only a successful hand-off
// acknowledges the record; if the failure queue is unreachable the record
// stays uncommitted and the transport redelivers it.
func (e *Engine) handOff(ctx context.Context, record *Record, meta models.DeadLetterMeta, log zerolog.Logger) {
	if err := e.deadLetter.DeadLetter(ctx, record.Key, record.Value, meta); err != nil {
		log.Error().Err(err).Msg("worker: failed to dead-letter record; leaving for redelivery")
		return
	}
	metrics.OrdersDeadLettered.Inc()
	if err := e.committer.Commit(ctx, record); err != nil {
		log.Error().Err(err).Msg("worker: failed to commit record offset after dead-letter")
	}
	log.Info().
		Str("failure_type", meta.FailureType).
		Int("attempts", meta.Attempts).
		Msg("worker: order moved to failure queue")
}

func (e *Engine) computeBackoff(attempt int) time.Duration {
	if e.cfg.BaseBackoff <= 0 {
		return 0
	}

	multiplier := math.Pow(2, float64(attempt-1))
	raw := time.Duration(float64(e.cfg.BaseBackoff) * multiplier)
	if e.cfg.MaxBackoff > 0 && raw > e.cfg.MaxBackoff {
		raw = e.cfg.MaxBackoff
	}

	return e.fullJitter(raw)
}

func (e *Engine) fullJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	e.randMu.Lock()
	defer e.randMu.Unlock()

	return time.Duration(e.rnd.Int63n(int64(max) + 1))
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// invoiceKey is the object key an invoice is stored under and the exact
// location advertised on notifications, so readers can fetch what was
// notified without reassembling a path.
func invoiceKey(bucket, orderID string) string {
	return bucket + "/" + orderID + ".json"
}

func orderIDOr(id string) string {
	if id == "" {
		return UnknownOrderID
	}
	return id
}

func correlationIDOr(id string) string {
	if id == "" {
		return UnknownCorrelationID
	}
	return id
}

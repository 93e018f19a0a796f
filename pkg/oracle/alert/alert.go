// Package alert evaluates operator-defined threshold rules against accepted
// consensus results and fires best-effort notifications.
package alert

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/metrics"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
)

// Threshold holds the optional bound pair for one asset.
type Threshold struct {
	Upper *decimal.Decimal `json:"upper,omitempty"`
	Lower *decimal.Decimal `json:"lower,omitempty"`
}

// Rule is one operator-defined alert. Rules are mutated only by the engine
// (trigger bookkeeping) and never deleted automatically.
type Rule struct {
	ID              uuid.UUID            `json:"id"`
	Thresholds      map[string]Threshold `json:"thresholds"`
	NotifyTarget    string               `json:"notify_target"`
	Active          bool                 `json:"active"`
	TriggeredCount  int                  `json:"triggered_count"`
	LastTriggeredAt *time.Time           `json:"last_triggered_at,omitempty"`
}

// Engine owns all alert rules and their evaluation.
type Engine struct {
	mu         sync.Mutex
	rules      map[uuid.UUID]*Rule
	assetOrder []string // Fixed evaluation precedence across assets
	notifier   Notifier
	logger     *logging.Logger
	deliveryWG sync.WaitGroup
}

// NewEngine creates an alert engine. assetOrder fixes the per-rule evaluation
// order across assets; assets not listed are never evaluated.
func NewEngine(assetOrder []string, notifier Notifier, logger *logging.Logger) *Engine {
	return &Engine{
		rules:      make(map[uuid.UUID]*Rule),
		assetOrder: assetOrder,
		notifier:   notifier,
		logger:     logger,
	}
}

// CreateRule registers a new active rule and returns a snapshot of it.
func (e *Engine) CreateRule(thresholds map[string]Threshold, notifyTarget string) (Rule, error) {
	if notifyTarget == "" {
		return Rule{}, ErrMissingNotifyTarget
	}
	if len(thresholds) == 0 {
		return Rule{}, ErrNoThresholds
	}
	for asset, t := range thresholds {
		if t.Upper == nil && t.Lower == nil {
			return Rule{}, fmt.Errorf("%w: asset %s", ErrNoThresholds, asset)
		}
	}

	rule := &Rule{
		ID:           uuid.New(),
		Thresholds:   thresholds,
		NotifyTarget: notifyTarget,
		Active:       true,
	}

	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()

	e.logger.Info("Alert rule created", "id", rule.ID.String(), "target", notifyTarget)
	return *rule, nil
}

// Deactivate marks a rule inactive. Deactivation is explicit; rules are never
// removed automatically.
func (e *Engine) Deactivate(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	rule, ok := e.rules[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRuleNotFound, id.String())
	}
	rule.Active = false
	return nil
}

// ActiveCount returns the number of active rules.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	count := 0
	for _, rule := range e.rules {
		if rule.Active {
			count++
		}
	}
	return count
}

// Rules returns a snapshot of all rules.
func (e *Engine) Rules() []Rule {
	e.mu.Lock()
	defer e.mu.Unlock()

	rules := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		rules = append(rules, *rule)
	}
	return rules
}

// Evaluate checks every active rule against the result. Conditions are
// checked in fixed precedence (upper before lower, assets in configured
// order) and each rule fires at most once per call. Delivery is
// fire-and-forget; a slow webhook never delays the cycle.
func (e *Engine) Evaluate(result *consensus.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := time.Now()
	for _, rule := range e.rules {
		if !rule.Active {
			continue
		}

		reason, ok := e.match(rule, result)
		if !ok {
			continue
		}

		rule.TriggeredCount++
		triggeredAt := now
		rule.LastTriggeredAt = &triggeredAt

		e.logger.Info("Alert rule triggered",
			"id", rule.ID.String(),
			"reason", reason,
			"count", rule.TriggeredCount)

		e.deliver(rule.ID, rule.NotifyTarget, reason, result)
	}
}

// match returns the first crossing in precedence order, if any.
func (e *Engine) match(rule *Rule, result *consensus.Result) (string, bool) {
	for _, asset := range e.assetOrder {
		threshold, ok := rule.Thresholds[asset]
		if !ok {
			continue
		}
		price, ok := result.Prices[asset]
		if !ok {
			continue
		}

		if threshold.Upper != nil && price.GreaterThanOrEqual(*threshold.Upper) {
			return fmt.Sprintf("%s above %s", asset, threshold.Upper.String()), true
		}
		if threshold.Lower != nil && price.LessThanOrEqual(*threshold.Lower) {
			return fmt.Sprintf("%s below %s", asset, threshold.Lower.String()), true
		}
	}
	return "", false
}

// deliver sends the notification asynchronously. Failures are logged and
// never retried within the same evaluation.
func (e *Engine) deliver(id uuid.UUID, target, reason string, result *consensus.Result) {
	note := Notification{
		AlertID:   id,
		Reason:    reason,
		Prices:    result.Prices,
		Timestamp: result.CapturedAt,
	}

	e.deliveryWG.Add(1)
	go func() {
		defer e.deliveryWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := e.notifier.Notify(ctx, target, note); err != nil {
			e.logger.Warn("Alert delivery failed", "id", id.String(), "target", target, "error", err.Error())
			metrics.RecordAlertDelivery("error")
			return
		}
		metrics.RecordAlertDelivery("ok")
	}()
}

// WaitDeliveries blocks until all in-flight deliveries finish. Used in tests
// and during shutdown.
func (e *Engine) WaitDeliveries() {
	e.deliveryWG.Wait()
}

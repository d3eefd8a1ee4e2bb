package billing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/billingkit/pkg/billing"
	"github.com/dmitrymomot/billingkit/pkg/gateway"
)

// Customer identifies who a plan-based subscription is created for.
// Method defaults to lightning when empty.
type Customer struct {
	ID     string
	Name   string
	Email  string
	Method billing.PaymentMethod
}

// Engine is the recurring-payment engine: it owns the plan catalog, the
// subscription store, the payment history, and the scheduling loop that
// drives billing attempts against the payment gateway.
//
// Construct with New, start the scheduling loop with Start, and shut down
// with Stop. All exposed operations are safe for concurrent use; attempts
// for a single subscription are serialized.
type Engine struct {
	catalog *billing.Catalog
	store   *billing.Store
	history *billing.HistoryLog
	gw      gateway.Gateway
	table   *dueTable

	cfg Config
	log *slog.Logger
	now func() time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	sem    chan struct{}
}

// New creates a billing engine. The catalog may be empty but not nil; the
// gateway executes every billing attempt.
func New(catalog *billing.Catalog, gw gateway.Gateway, opts ...Option) (*Engine, error) {
	if catalog == nil {
		return nil, ErrCatalogNil
	}
	if gw == nil {
		return nil, ErrGatewayNil
	}

	e := &Engine{
		catalog: catalog,
		store:   billing.NewStore(),
		history: billing.NewHistoryLog(),
		gw:      gw,
		table:   newDueTable(),
		cfg:     DefaultConfig(),
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := e.cfg.Validate(); err != nil {
		return nil, err
	}
	e.sem = make(chan struct{}, e.cfg.MaxConcurrentAttempts)

	return e, nil
}

// Start launches the scheduling loop and the safety sweep. Subscriptions can
// be created before Start; their entries fire once the loop is running.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cancel != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(ctx)

	e.log.Info("billing engine started",
		slog.Duration("tick_interval", e.cfg.TickInterval),
		slog.Duration("sweep_interval", e.cfg.SweepInterval),
		slog.Duration("retry_backoff", e.cfg.RetryBackoff))

	return nil
}

// Stop shuts the engine down gracefully: no new attempts fire, and attempts
// already in flight finish and record their outcome.
func (e *Engine) Stop() error {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if cancel == nil {
		return ErrNotStarted
	}
	cancel()
	e.wg.Wait()

	e.log.Info("billing engine stopped")
	return nil
}

// Run starts the engine and returns a closure suitable for errgroup.
func (e *Engine) Run(ctx context.Context) func() error {
	return func() error {
		if err := e.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return e.Stop()
	}
}

// run is the single scheduling loop; due entries and the safety sweep both
// execute here, so the table is driven from one place.
func (e *Engine) run(ctx context.Context) {
	defer e.wg.Done()

	tick := time.NewTicker(e.cfg.TickInterval)
	defer tick.Stop()
	sweep := time.NewTicker(e.cfg.SweepInterval)
	defer sweep.Stop()

	// Catch anything already due at startup.
	e.sweep()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			e.dispatchDue(ctx)
		case <-sweep.C:
			e.sweep()
			e.dispatchDue(ctx)
		}
	}
}

// dispatchDue claims every due entry and processes each in its own goroutine,
// bounded by the attempt semaphore. A slow gateway call suspends only the
// goroutine handling that one subscription.
func (e *Engine) dispatchDue(ctx context.Context) {
	for _, id := range e.table.claimDue(e.now()) {
		e.wg.Add(1)
		go func(id uuid.UUID) {
			defer e.wg.Done()
			defer e.table.release(id)

			select {
			case e.sem <- struct{}{}:
				defer func() { <-e.sem }()
			case <-ctx.Done():
				// Shutting down before a slot freed up; the sweep
				// re-arms this subscription on the next start.
				return
			}

			e.processSubscription(id)
		}(id)
	}
}

// sweep re-scans the store for due subscriptions the table has no entry for.
// It is the safety net guaranteeing eventual billing even if an entry is lost.
func (e *Engine) sweep() {
	rearmed := 0
	for _, sub := range e.store.DueForBilling(e.now()) {
		if e.table.tracked(sub.ID) {
			continue
		}
		e.table.arm(sub.ID, *sub.NextPaymentAt)
		rearmed++
	}
	if rearmed > 0 {
		e.log.Info("sweep re-armed due subscriptions", slog.Int("count", rearmed))
	}
}

// CreateRecurringPayment creates a subscription from explicit parameters and
// arms its first billing attempt.
func (e *Engine) CreateRecurringPayment(p billing.CreateParams) (*billing.Subscription, error) {
	sub, err := e.store.Create(p, e.now())
	if err != nil {
		return nil, err
	}

	e.table.arm(sub.ID, *sub.NextPaymentAt)
	e.log.Info("subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("customer_id", sub.CustomerID),
		slog.Time("first_payment_at", *sub.NextPaymentAt))

	return sub, nil
}

// CreateSubscriptionFromPlan instantiates a catalog plan for a customer.
// Returns billing.ErrPlanNotFound for unknown plans.
func (e *Engine) CreateSubscriptionFromPlan(planID string, customer Customer) (*billing.Subscription, error) {
	plan, err := e.catalog.Get(planID)
	if err != nil {
		return nil, err
	}

	method := customer.Method
	if method == "" {
		method = billing.MethodLightning
	}

	return e.CreateRecurringPayment(billing.CreateParams{
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		Amount:        plan.Price,
		Description:   plan.Name,
		Frequency:     plan.Frequency,
		Method:        method,
		PlanID:        plan.ID,
		MaxPayments:   plan.MaxPayments,
		TrialDays:     plan.TrialDays,
	})
}

// Pause suspends billing for an active subscription and drops its pending
// scheduled entry.
func (e *Engine) Pause(id uuid.UUID) error {
	if err := e.store.Pause(id, e.now()); err != nil {
		return err
	}
	e.table.disarm(id)
	e.log.Info("subscription paused", slog.String("subscription_id", id.String()))
	return nil
}

// Resume reactivates a paused subscription. The preserved next payment date
// is re-armed; if it is already past, the attempt fires on the next tick.
func (e *Engine) Resume(id uuid.UUID) error {
	sub, err := e.store.Resume(id, e.now())
	if err != nil {
		return err
	}
	e.table.arm(id, *sub.NextPaymentAt)
	e.log.Info("subscription resumed",
		slog.String("subscription_id", id.String()),
		slog.Time("next_payment_at", *sub.NextPaymentAt))
	return nil
}

// Cancel terminates a subscription. Cancelling twice fails; the record stays
// cancelled either way.
func (e *Engine) Cancel(id uuid.UUID, reason string) error {
	if err := e.store.Cancel(id, reason, e.now()); err != nil {
		return err
	}
	e.table.disarm(id)
	e.log.Info("subscription cancelled",
		slog.String("subscription_id", id.String()),
		slog.String("reason", reason))
	return nil
}

// UpdateAmount changes the billed amount of an active subscription without
// touching its schedule.
func (e *Engine) UpdateAmount(id uuid.UUID, amount int64) error {
	return e.store.UpdateAmount(id, amount, e.now())
}

// GetSubscription returns a subscription by ID.
func (e *Engine) GetSubscription(id uuid.UUID) (*billing.Subscription, error) {
	return e.store.Get(id)
}

// GetCustomerSubscriptions returns all subscriptions of one customer.
func (e *Engine) GetCustomerSubscriptions(customerID string) []*billing.Subscription {
	return e.store.ByCustomer(customerID)
}

// GetActiveSubscriptions returns all currently active subscriptions.
func (e *Engine) GetActiveSubscriptions() []*billing.Subscription {
	return e.store.Active()
}

// GetPaymentHistory returns the billing attempt records of a subscription,
// oldest first.
func (e *Engine) GetPaymentHistory(id uuid.UUID) []billing.PaymentRecord {
	return e.history.BySubscription(id)
}

// GetAnalytics computes a fresh portfolio snapshot. It never fails; an empty
// engine produces a zeroed snapshot.
func (e *Engine) GetAnalytics() billing.Snapshot {
	return billing.Analyze(e.store.All(), e.history.All(), e.now(), e.cfg.ChurnRate)
}

// GetUpcomingPayments returns active subscriptions due within the given
// number of days.
func (e *Engine) GetUpcomingPayments(days int) []*billing.Subscription {
	return billing.UpcomingWithin(e.store.Active(), e.now(), days)
}

// ListActivePlans returns catalog plans available for new subscriptions.
func (e *Engine) ListActivePlans() []billing.Plan {
	return e.catalog.ListActive()
}

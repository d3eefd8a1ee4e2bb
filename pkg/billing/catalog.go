package billing

import (
	"fmt"
	"sync"
)

// Catalog holds registered subscription plans. Plans are registered once at
// startup (or through an admin flow) and read afterward; ListActive preserves
// registration order.
type Catalog struct {
	mu    sync.RWMutex
	plans map[string]Plan
	order []string
}

// NewCatalog returns an empty plan catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		plans: make(map[string]Plan),
	}
}

// Register adds a plan to the catalog.
// Returns ErrDuplicatePlan if a plan with the same ID exists and ErrInvalidPlan
// if the plan fails validation.
func (c *Catalog) Register(plan Plan) error {
	if err := plan.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.plans[plan.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePlan, plan.ID)
	}

	c.plans[plan.ID] = plan.clone()
	c.order = append(c.order, plan.ID)
	return nil
}

// Get returns the plan with the given ID or ErrPlanNotFound.
func (c *Catalog) Get(id string) (Plan, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	plan, ok := c.plans[id]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	return plan.clone(), nil
}

// ListActive returns all plans with the Active flag set, in registration order.
func (c *Catalog) ListActive() []Plan {
	c.mu.RLock()
	defer c.mu.RUnlock()

	active := make([]Plan, 0, len(c.order))
	for _, id := range c.order {
		if plan := c.plans[id]; plan.Active {
			active = append(active, plan.clone())
		}
	}
	return active
}

// SetActive toggles a plan's availability for new subscriptions.
// The rest of the plan stays immutable after registration.
func (c *Catalog) SetActive(id string, active bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	plan, ok := c.plans[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	plan.Active = active
	c.plans[id] = plan
	return nil
}

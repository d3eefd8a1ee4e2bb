package billing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// dueTable is the scheduling state: one due time per subscription, plus the
// set of subscriptions currently being processed. A single table driven by
// one loop replaces a timer per subscription, which keeps cancellation and
// the safety sweep trivial and bounds resource use at scale.
type dueTable struct {
	mu       sync.Mutex
	due      map[uuid.UUID]time.Time
	inflight map[uuid.UUID]struct{}
}

func newDueTable() *dueTable {
	return &dueTable{
		due:      make(map[uuid.UUID]time.Time),
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// arm schedules (or reschedules) a billing attempt. Arming an ID supersedes
// any prior entry for that ID.
func (t *dueTable) arm(id uuid.UUID, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.due[id] = at
}

// disarm drops a pending entry. An attempt already claimed keeps running;
// disarm only prevents entries that have not fired yet.
func (t *dueTable) disarm(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.due, id)
}

// tracked reports whether the ID has a pending entry or an attempt in flight.
// The sweep uses this to find due subscriptions the table lost.
func (t *dueTable) tracked(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.due[id]; ok {
		return true
	}
	_, ok := t.inflight[id]
	return ok
}

// claimDue removes every entry due at now and marks its ID in flight.
// An ID already in flight is left armed: processing of one subscription is
// strictly serialized, so its next attempt waits for release.
func (t *dueTable) claimDue(now time.Time) []uuid.UUID {
	t.mu.Lock()
	defer t.mu.Unlock()

	var claimed []uuid.UUID
	for id, at := range t.due {
		if at.After(now) {
			continue
		}
		if _, busy := t.inflight[id]; busy {
			continue
		}
		delete(t.due, id)
		t.inflight[id] = struct{}{}
		claimed = append(claimed, id)
	}
	return claimed
}

// release marks an attempt finished so the next entry for the ID can fire.
func (t *dueTable) release(id uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.inflight, id)
}

func (t *dueTable) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.due)
}

package billing

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is the audit trail of one billing attempt.
// Records are append-only: never mutated, never deleted.
type PaymentRecord struct {
	ID             uuid.UUID
	SubscriptionID uuid.UUID
	Amount         Money
	Success        bool
	TransactionID  string // set on success
	ErrorMessage   string // set on failure
	PaidAt         time.Time
	CreatedAt      time.Time
}

// HistoryLog stores payment records in arrival order.
type HistoryLog struct {
	mu      sync.RWMutex
	records []PaymentRecord
	bySub   map[uuid.UUID][]int
}

// NewHistoryLog returns an empty payment history.
func NewHistoryLog() *HistoryLog {
	return &HistoryLog{
		bySub: make(map[uuid.UUID][]int),
	}
}

// Append records the outcome of a billing attempt.
func (h *HistoryLog) Append(rec PaymentRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.bySub[rec.SubscriptionID] = append(h.bySub[rec.SubscriptionID], len(h.records))
	h.records = append(h.records, rec)
}

// BySubscription returns all records for one subscription, oldest first.
func (h *HistoryLog) BySubscription(id uuid.UUID) []PaymentRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	idxs := h.bySub[id]
	out := make([]PaymentRecord, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, h.records[i])
	}
	return out
}

// All returns a snapshot of every record, oldest first.
func (h *HistoryLog) All() []PaymentRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]PaymentRecord, len(h.records))
	copy(out, h.records)
	return out
}

// Package billing provides the domain model for a recurring-payment engine:
// subscription plans, subscription records with a status state machine, an
// append-only payment history, and portfolio analytics derived from both.
//
// The package holds no goroutines and performs no I/O. The Catalog, Store, and
// HistoryLog types own their data behind mutexes and hand out deep copies, so
// callers can never mutate a record except through the documented operations.
// Scheduling and gateway interaction live one level up, in svc/billing.
//
// # Status state machine
//
// A subscription moves through five states:
//
//	active    — billed once per interval
//	paused    — billing suspended, schedule preserved
//	failed    — last attempt declined, a retry is pending
//	cancelled — terminal
//	completed — terminal, payment cap reached
//
// Every mutation validates its transition against this machine and returns
// ErrInvalidStateTransition when the current status forbids it. Terminal
// records are never deleted; they remain for audit.
//
// # Time
//
// All operations that stamp or compare time take an explicit time.Time from
// the caller. The engine passes its clock; tests pass fixed instants.
package billing

package billing_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/billing"
)

var testNow = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

func createParams() billing.CreateParams {
	return billing.CreateParams{
		CustomerID:    "cust-1",
		CustomerName:  "Ada",
		CustomerEmail: "ada@example.com",
		Amount:        billing.Money{Amount: 1000, Currency: "USD"},
		Description:   "newsletter",
		Frequency:     billing.FrequencyDaily,
		Method:        billing.MethodLightning,
	}
}

func mustCreate(t *testing.T, st *billing.Store, p billing.CreateParams) *billing.Subscription {
	t.Helper()
	sub, err := st.Create(p, testNow)
	require.NoError(t, err)
	return sub
}

func TestStore_Create(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())

		assert.Equal(t, billing.StatusActive, sub.Status)
		assert.Equal(t, testNow, sub.StartDate, "start defaults to creation time")
		require.NotNil(t, sub.NextPaymentAt)
		assert.Equal(t, testNow.AddDate(0, 0, 1), *sub.NextPaymentAt, "first attempt due one interval after start")
		assert.Zero(t, sub.PaymentCount)
		assert.Zero(t, sub.TotalCollected)
	})

	t.Run("explicit start and trial shift the first due date", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		p := createParams()
		p.StartDate = testNow.AddDate(0, 0, 3)
		p.TrialDays = 7
		p.Frequency = billing.FrequencyWeekly

		sub := mustCreate(t, st, p)
		assert.Equal(t, p.StartDate.AddDate(0, 0, 14), *sub.NextPaymentAt)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()

		p := createParams()
		p.CustomerID = ""
		_, err := st.Create(p, testNow)
		assert.ErrorIs(t, err, billing.ErrMissingCustomer)

		p = createParams()
		p.Amount.Amount = 0
		_, err = st.Create(p, testNow)
		assert.ErrorIs(t, err, billing.ErrInvalidAmount)

		p = createParams()
		p.Frequency = "hourly"
		_, err = st.Create(p, testNow)
		assert.ErrorIs(t, err, billing.ErrInvalidFrequency)

		p = createParams()
		p.Method = "card"
		_, err = st.Create(p, testNow)
		assert.ErrorIs(t, err, billing.ErrInvalidMethod)
	})
}

func TestStore_Get(t *testing.T) {
	t.Parallel()

	st := billing.NewStore()
	_, err := st.Get(uuid.New())
	assert.ErrorIs(t, err, billing.ErrSubscriptionNotFound)

	sub := mustCreate(t, st, createParams())
	got, err := st.Get(sub.ID)
	require.NoError(t, err)

	// Accessors hand out copies; mutating one must not leak into the store.
	got.Metadata["tampered"] = "yes"
	again, err := st.Get(sub.ID)
	require.NoError(t, err)
	assert.NotContains(t, again.Metadata, "tampered")
}

func TestStore_PauseResume(t *testing.T) {
	t.Parallel()

	t.Run("pause then resume leaves the schedule unchanged", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())
		due := *sub.NextPaymentAt

		require.NoError(t, st.Pause(sub.ID, testNow.Add(time.Hour)))
		paused, err := st.Get(sub.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusPaused, paused.Status)
		assert.Equal(t, due, *paused.NextPaymentAt, "pause preserves the next payment date")

		resumed, err := st.Resume(sub.ID, testNow.Add(2*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, resumed.Status)
		assert.Equal(t, due, *resumed.NextPaymentAt, "resume re-arms the same date")
	})

	t.Run("pause requires active", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())
		require.NoError(t, st.Pause(sub.ID, testNow))
		assert.ErrorIs(t, st.Pause(sub.ID, testNow), billing.ErrInvalidStateTransition)
	})

	t.Run("resume requires paused", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())
		_, err := st.Resume(sub.ID, testNow)
		assert.ErrorIs(t, err, billing.ErrInvalidStateTransition)
	})
}

func TestStore_Cancel(t *testing.T) {
	t.Parallel()

	t.Run("cancel from active stores the reason", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())

		require.NoError(t, st.Cancel(sub.ID, "too expensive", testNow))
		got, err := st.Get(sub.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCancelled, got.Status)
		assert.Equal(t, "too expensive", got.Metadata["cancellation_reason"])
		assert.Nil(t, got.NextPaymentAt)
	})

	t.Run("second cancel fails, status stays cancelled", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())

		require.NoError(t, st.Cancel(sub.ID, "", testNow))
		assert.ErrorIs(t, st.Cancel(sub.ID, "", testNow), billing.ErrInvalidStateTransition)

		got, err := st.Get(sub.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCancelled, got.Status)
	})

	t.Run("cancel from paused and failed", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		paused := mustCreate(t, st, createParams())
		require.NoError(t, st.Pause(paused.ID, testNow))
		assert.NoError(t, st.Cancel(paused.ID, "", testNow))

		failed := mustCreate(t, st, createParams())
		_, err := st.RecordFailure(failed.ID, testNow.Add(24*time.Hour), testNow)
		require.NoError(t, err)
		assert.NoError(t, st.Cancel(failed.ID, "", testNow))
	})

	t.Run("cancel after completion fails", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		p := createParams()
		p.MaxPayments = 1
		sub := mustCreate(t, st, p)

		_, err := st.RecordSuccess(sub.ID, 1000, testNow.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.ErrorIs(t, st.Cancel(sub.ID, "", testNow), billing.ErrInvalidStateTransition)
	})
}

func TestStore_UpdateAmount(t *testing.T) {
	t.Parallel()

	st := billing.NewStore()
	sub := mustCreate(t, st, createParams())
	due := *sub.NextPaymentAt

	require.NoError(t, st.UpdateAmount(sub.ID, 2000, testNow))
	got, err := st.Get(sub.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.Amount.Amount)
	assert.Equal(t, due, *got.NextPaymentAt, "schedule untouched")

	assert.ErrorIs(t, st.UpdateAmount(sub.ID, 0, testNow), billing.ErrInvalidAmount)
	assert.ErrorIs(t, st.UpdateAmount(sub.ID, -5, testNow), billing.ErrInvalidAmount)

	require.NoError(t, st.Pause(sub.ID, testNow))
	assert.ErrorIs(t, st.UpdateAmount(sub.ID, 3000, testNow), billing.ErrInvalidStateTransition)

	assert.ErrorIs(t, st.UpdateAmount(uuid.New(), 1000, testNow), billing.ErrSubscriptionNotFound)
}

func TestStore_RecordSuccess(t *testing.T) {
	t.Parallel()

	t.Run("advances one interval from the payment date", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())

		paidAt := testNow.AddDate(0, 0, 1).Add(2 * time.Hour) // fired late
		updated, err := st.RecordSuccess(sub.ID, 1000, paidAt)
		require.NoError(t, err)

		assert.Equal(t, billing.StatusActive, updated.Status)
		assert.Equal(t, 1, updated.PaymentCount)
		assert.Equal(t, int64(1000), updated.TotalCollected)
		assert.Equal(t, paidAt, *updated.LastPaymentAt)
		assert.Equal(t, paidAt.AddDate(0, 0, 1), *updated.NextPaymentAt)
	})

	t.Run("completes at the payment cap", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		p := createParams()
		p.MaxPayments = 2
		sub := mustCreate(t, st, p)

		_, err := st.RecordSuccess(sub.ID, 1000, testNow.AddDate(0, 0, 1))
		require.NoError(t, err)

		updated, err := st.RecordSuccess(sub.ID, 1000, testNow.AddDate(0, 0, 2))
		require.NoError(t, err)
		assert.Equal(t, billing.StatusCompleted, updated.Status)
		assert.Nil(t, updated.NextPaymentAt)
		assert.Equal(t, 2, updated.PaymentCount)
		assert.LessOrEqual(t, updated.PaymentCount, updated.MaxPayments)

		// Terminal: further outcomes are rejected.
		_, err = st.RecordSuccess(sub.ID, 1000, testNow.AddDate(0, 0, 3))
		assert.ErrorIs(t, err, billing.ErrInvalidStateTransition)
	})

	t.Run("retry success returns a failed subscription to active", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())

		_, err := st.RecordFailure(sub.ID, testNow.Add(24*time.Hour), testNow)
		require.NoError(t, err)

		updated, err := st.RecordSuccess(sub.ID, 1000, testNow.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, billing.StatusActive, updated.Status)
		assert.Equal(t, 1, updated.PaymentCount)
	})

	t.Run("rejected for paused subscriptions", func(t *testing.T) {
		t.Parallel()

		st := billing.NewStore()
		sub := mustCreate(t, st, createParams())
		require.NoError(t, st.Pause(sub.ID, testNow))

		_, err := st.RecordSuccess(sub.ID, 1000, testNow)
		assert.ErrorIs(t, err, billing.ErrInvalidStateTransition)
	})
}

func TestStore_RecordFailure(t *testing.T) {
	t.Parallel()

	st := billing.NewStore()
	sub := mustCreate(t, st, createParams())

	retryAt := testNow.Add(24 * time.Hour)
	updated, err := st.RecordFailure(sub.ID, retryAt, testNow)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusFailed, updated.Status)
	assert.Equal(t, retryAt, *updated.NextPaymentAt, "next payment date becomes the retry time")

	// Retries may fail repeatedly; the status stays failed.
	later := retryAt.Add(24 * time.Hour)
	updated, err = st.RecordFailure(sub.ID, later, retryAt)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusFailed, updated.Status)
	assert.Equal(t, later, *updated.NextPaymentAt)

	require.NoError(t, st.Cancel(sub.ID, "", testNow))
	_, err = st.RecordFailure(sub.ID, later, testNow)
	assert.ErrorIs(t, err, billing.ErrInvalidStateTransition)
}

func TestStore_DueForBilling(t *testing.T) {
	t.Parallel()

	st := billing.NewStore()

	dueSub := mustCreate(t, st, createParams()) // due tomorrow
	notDue := createParams()
	notDue.Frequency = billing.FrequencyWeekly
	mustCreate(t, st, notDue)

	pausedParams := createParams()
	pausedSub := mustCreate(t, st, pausedParams)
	require.NoError(t, st.Pause(pausedSub.ID, testNow))

	failedSub := mustCreate(t, st, createParams())
	_, err := st.RecordFailure(failedSub.ID, testNow.Add(12*time.Hour), testNow)
	require.NoError(t, err)

	now := testNow.AddDate(0, 0, 1)
	due := st.DueForBilling(now)
	ids := make([]uuid.UUID, 0, len(due))
	for _, s := range due {
		ids = append(ids, s.ID)
	}

	assert.Contains(t, ids, dueSub.ID, "active and past due")
	assert.Contains(t, ids, failedSub.ID, "failed with pending retry")
	assert.Len(t, ids, 2, "paused and not-yet-due excluded")
}

func TestStore_Listings(t *testing.T) {
	t.Parallel()

	st := billing.NewStore()

	first := mustCreate(t, st, createParams())
	other := createParams()
	other.CustomerID = "cust-2"
	second := mustCreate(t, st, other)
	third := mustCreate(t, st, createParams())
	require.NoError(t, st.Cancel(third.ID, "", testNow))

	all := st.All()
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID, "creation order")

	active := st.Active()
	require.Len(t, active, 2)

	mine := st.ByCustomer("cust-1")
	require.Len(t, mine, 2, "all statuses included")
	assert.Equal(t, first.ID, mine[0].ID)
	assert.Equal(t, third.ID, mine[1].ID)

	assert.Len(t, st.ByCustomer("cust-2"), 1)
	assert.Equal(t, second.ID, st.ByCustomer("cust-2")[0].ID)
}

package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxrelay/relay-api/internal/domain"
	"github.com/inboxrelay/relay-api/internal/task"
)

// fakeAccountStore implements the due-for-check scan over canned IDs.
type fakeAccountStore struct {
	dueIDs      []int64
	dueErr      error
	gotCooldown time.Duration
}

func (f *fakeAccountStore) Upsert(context.Context, *domain.WatchedAccount) error { return nil }

func (f *fakeAccountStore) GetByID(context.Context, int64) (*domain.WatchedAccount, error) {
	return nil, nil
}

func (f *fakeAccountStore) DueForCheck(_ context.Context, cooldown time.Duration) ([]int64, error) {
	f.gotCooldown = cooldown
	return f.dueIDs, f.dueErr
}

func (f *fakeAccountStore) MarkChecked(context.Context, int64) error           { return nil }
func (f *fakeAccountStore) RecordMessage(context.Context, int64, string) error { return nil }

func TestInboxCheckProducer_EnqueuesOneTaskPerDueAccount(t *testing.T) {
	taskStore := task.NewMemoryTaskStore()
	accounts := &fakeAccountStore{dueIDs: []int64{3, 7, 11}}

	producer := NewInboxCheckProducer(
		accounts, taskStore, time.Minute, 45*time.Second, setupTestLogger())
	require.NoError(t, producer.Run(context.Background()))

	assert.Equal(t, 45*time.Second, accounts.gotCooldown)

	pending, err := taskStore.GetPendingBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	gotIDs := make([]int64, 0, len(pending))
	for _, tk := range pending {
		assert.Equal(t, task.TypeCheckInbox, tk.Type)
		var p task.CheckInboxPayload
		require.NoError(t, json.Unmarshal(tk.Payload, &p))
		gotIDs = append(gotIDs, p.AccountID)
	}
	assert.Equal(t, []int64{3, 7, 11}, gotIDs)
}

func TestInboxCheckProducer_NoDueAccountsEnqueuesNothing(t *testing.T) {
	taskStore := task.NewMemoryTaskStore()
	accounts := &fakeAccountStore{}

	producer := NewInboxCheckProducer(
		accounts, taskStore, time.Minute, time.Minute, setupTestLogger())
	require.NoError(t, producer.Run(context.Background()))

	assert.Zero(t, taskStore.Len())
}

func TestInboxCheckProducer_ScanErrorAbortsPass(t *testing.T) {
	taskStore := task.NewMemoryTaskStore()
	accounts := &fakeAccountStore{dueErr: errors.New("store unavailable")}

	producer := NewInboxCheckProducer(
		accounts, taskStore, time.Minute, time.Minute, setupTestLogger())
	err := producer.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list accounts due for check")
}

func TestInboxCheckProducer_EnqueueErrorAbortsPass(t *testing.T) {
	taskStore := task.NewMemoryTaskStore()
	taskStore.EnqueueErr = errors.New("write refused")
	accounts := &fakeAccountStore{dueIDs: []int64{1}}

	producer := NewInboxCheckProducer(
		accounts, taskStore, time.Minute, time.Minute, setupTestLogger())
	require.Error(t, producer.Run(context.Background()))
}

func TestDemoProducer_EnqueuesGreeting(t *testing.T) {
	taskStore := task.NewMemoryTaskStore()

	producer := NewDemoProducer(taskStore, time.Minute, setupTestLogger())
	require.NoError(t, producer.Run(context.Background()))

	pending, err := taskStore.GetPendingBatch(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.TypeDemo, pending[0].Type)
	assert.JSONEq(t, `{"message":"Hello, world!"}`, string(pending[0].Payload))
}

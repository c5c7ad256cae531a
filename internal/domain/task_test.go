package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestTaskStatus_Derivation(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name string
		task Task
		want TaskStatus
	}{
		{
			name: "no timestamps means pending",
			task: Task{},
			want: TaskStatusPending,
		},
		{
			name: "started only means in progress",
			task: Task{StartedAt: timePtr(now)},
			want: TaskStatusRunning,
		},
		{
			name: "completed set means completed",
			task: Task{StartedAt: timePtr(now), CompletedAt: timePtr(now.Add(time.Second))},
			want: TaskStatusCompleted,
		},
		{
			name: "failed set means failed",
			task: Task{StartedAt: timePtr(now), FailedAt: timePtr(now.Add(time.Second))},
			want: TaskStatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.task.Status())
		})
	}
}

func TestTask_Finished(t *testing.T) {
	now := time.Now().UTC()

	assert.False(t, (&Task{}).Finished())
	assert.False(t, (&Task{StartedAt: timePtr(now)}).Finished())
	assert.True(t, (&Task{CompletedAt: timePtr(now)}).Finished())
	assert.True(t, (&Task{FailedAt: timePtr(now)}).Finished())
}

func TestTask_Validate(t *testing.T) {
	now := time.Now().UTC()

	t.Run("valid task", func(t *testing.T) {
		task := Task{
			Type:    "Demo",
			Payload: json.RawMessage(`{"message":"hi"}`),
		}
		assert.NoError(t, task.Validate())
	})

	t.Run("empty type", func(t *testing.T) {
		task := Task{Payload: json.RawMessage(`{}`)}
		assert.ErrorIs(t, task.Validate(), ErrEmptyTaskType)
	})

	t.Run("malformed payload", func(t *testing.T) {
		task := Task{Type: "Demo", Payload: json.RawMessage(`{"message":`)}
		assert.ErrorIs(t, task.Validate(), ErrInvalidPayload)
	})

	t.Run("nil payload is allowed", func(t *testing.T) {
		task := Task{Type: "Demo"}
		assert.NoError(t, task.Validate())
	})

	t.Run("completed and failed are mutually exclusive", func(t *testing.T) {
		task := Task{
			Type:        "Demo",
			StartedAt:   timePtr(now),
			CompletedAt: timePtr(now),
			FailedAt:    timePtr(now),
		}
		assert.ErrorIs(t, task.Validate(), ErrConflictingTask)
	})
}

func TestParseTaskStatus(t *testing.T) {
	for _, valid := range []string{"pending", "in_progress", "completed", "failed"} {
		status, ok := ParseTaskStatus(valid)
		assert.True(t, ok)
		assert.Equal(t, TaskStatus(valid), status)
	}

	_, ok := ParseTaskStatus("running")
	assert.False(t, ok)
}

func TestCustomer_CanReceiveChecks(t *testing.T) {
	token := "ExponentPushToken[abc]"
	empty := ""

	assert.True(t, (&Customer{IsSubscribed: true, PushToken: &token}).CanReceiveChecks())
	assert.False(t, (&Customer{IsSubscribed: false, PushToken: &token}).CanReceiveChecks())
	assert.False(t, (&Customer{IsSubscribed: true}).CanReceiveChecks())
	assert.False(t, (&Customer{IsSubscribed: true, PushToken: &empty}).CanReceiveChecks())
}

func TestWatchedAccount_Validate(t *testing.T) {
	account := WatchedAccount{
		CustomerID: "cus_123",
		Username:   "nightowl",
		Session:    "reddit_session=abc",
	}
	assert.NoError(t, account.Validate())

	missingCustomer := account
	missingCustomer.CustomerID = ""
	assert.ErrorIs(t, missingCustomer.Validate(), ErrEmptyCustomerID)

	missingUsername := account
	missingUsername.Username = ""
	assert.ErrorIs(t, missingUsername.Validate(), ErrEmptyUsername)

	missingSession := account
	missingSession.Session = ""
	assert.ErrorIs(t, missingSession.Validate(), ErrEmptySession)
}

package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/inboxrelay/relay-api/internal/domain"
)

func TestStatusPredicate(t *testing.T) {
	tests := []struct {
		status domain.TaskStatus
		want   string
	}{
		{domain.TaskStatusPending, "started_at IS NULL"},
		{domain.TaskStatusRunning, "started_at IS NOT NULL AND completed_at IS NULL AND failed_at IS NULL"},
		{domain.TaskStatusCompleted, "completed_at IS NOT NULL"},
		{domain.TaskStatusFailed, "failed_at IS NOT NULL"},
		{domain.TaskStatus("bogus"), "FALSE"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusPredicate(tt.status))
	}
}

func TestNullTimePtr(t *testing.T) {
	assert.Nil(t, nullTimePtr(sql.NullTime{}))

	now := time.Now().UTC()
	got := nullTimePtr(sql.NullTime{Time: now, Valid: true})
	assert.NotNil(t, got)
	assert.Equal(t, now, *got)
}

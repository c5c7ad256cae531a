package task

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoHandler(t *testing.T) {
	handler := NewDemoHandler(setupTestLogger())
	assert.Equal(t, TypeDemo, handler.Type())

	require.NoError(t, handler.Execute(
		context.Background(), json.RawMessage(`{"message":"Hello, world!"}`)))

	err := handler.Execute(context.Background(), json.RawMessage(`{"message"`))
	require.Error(t, err)
}

package temporal

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZerologAdapterWritesKeyvals(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewZerologAdapter(zerolog.New(&buf))

	adapter.With("WorkflowID", "wf-1").Info("started", "Attempt", 2, "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "started", entry["message"])
	assert.Equal(t, "temporal_sdk", entry["component"])
	assert.Equal(t, "wf-1", entry["WorkflowID"])
	assert.Equal(t, float64(2), entry["Attempt"])
	assert.Contains(t, entry, "dangling")
}

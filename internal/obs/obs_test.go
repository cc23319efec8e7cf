package obs

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom_IncludesCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutputForTests(&buf)
	defer restore()

	ctx := WithCorrelation(context.Background(), Correlation{
		RequestID: "req-123",
		OwnerID:   "user-7",
	})
	From(ctx).Info("pipeline started", "stage", "fetching")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "req-123", record["request_id"])
	assert.Equal(t, "user-7", record["owner_id"])
	assert.Equal(t, "fetching", record["stage"])
	assert.NotContains(t, record, "doc_id")
}

func TestWithCorrelation_MergesWithoutClobbering(t *testing.T) {
	ctx := WithCorrelation(context.Background(), Correlation{RequestID: "req-a"})
	ctx = WithCorrelation(ctx, Correlation{DocID: "doc-1"})

	corr := CorrelationFromContext(ctx)
	assert.Equal(t, "req-a", corr.RequestID)
	assert.Equal(t, "doc-1", corr.DocID)
}

func TestNewRequestID_Unique(t *testing.T) {
	a := NewRequestID()
	b := NewRequestID()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "req-")
}

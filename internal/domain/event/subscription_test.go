package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePattern_Matches(t *testing.T) {
	tests := []struct {
		pattern   string
		eventType string
		want      bool
	}{
		{"order.created", "order.created", true},
		{"order.created", "order.completed", false},
		{"order.*", "order.created", true},
		{"order.*", "order.completed", true},
		{"order.*", "customer.created", false},
		{"order.*", "order", false},
		{"*", "order.created", true},
		{"*", "customer.created", true},
		{"*", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"/"+tt.eventType, func(t *testing.T) {
			p := ParsePattern(tt.pattern)
			assert.Equal(t, tt.want, p.Matches(tt.eventType))
		})
	}
}

func TestPattern_String(t *testing.T) {
	assert.Equal(t, "order.*", ParsePattern("order.*").String())
	assert.Equal(t, "*", ParsePattern("*").String())
}

func TestEvent_EncodeDecode(t *testing.T) {
	tenantID := uuid.New()
	evt := New("order.created", tenantID, "order", "o1", map[string]any{"total": 42.5})
	evt.WithCorrelation("corr-1", "cause-1")

	data, err := evt.Encode()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, "order.created", decoded.Type)
	assert.Equal(t, tenantID, decoded.TenantID)
	assert.Equal(t, "o1", decoded.EntityID)
	assert.Equal(t, "corr-1", decoded.Metadata.CorrelationID)
	assert.Equal(t, 42.5, decoded.Payload["total"])
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

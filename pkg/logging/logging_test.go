package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, "host", true)

	a.Info("frame routed", "tag", "AudioSegment", "bytes", 320)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "frame routed", decoded["message"])
	assert.Equal(t, "host", decoded["component"])
	assert.Equal(t, "AudioSegment", decoded["tag"])
	assert.EqualValues(t, 320, decoded["bytes"])
}

func TestAdapter_DebugSuppressedWithoutDebugFlag(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, "client", false)

	a.Debug("verbose detail", "n", 1)
	assert.Empty(t, strings.TrimSpace(buf.String()))

	a.Info("still logs")
	assert.NotEmpty(t, buf.String())
}

func TestAdapter_WithComponentAddsSubField(t *testing.T) {
	var buf bytes.Buffer
	a := New(&buf, "orchestrator", true).WithComponent("turn-loop")

	a.Warn("retry exhausted")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "turn-loop", decoded["subcomponent"])
}

package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithServiceStampsEntries(t *testing.T) {
	l := NewLoggerWithService("liveflow", Options{Level: "debug"})
	var buf bytes.Buffer
	l.SetOutput(&buf)

	l.WithField("k", "v").Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "liveflow", entry["service"])
	assert.Equal(t, "v", entry["k"])
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	l := NewLogger(Options{Level: "nonsense"})
	assert.Equal(t, "info", l.GetLevel().String())
}

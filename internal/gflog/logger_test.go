package gflog

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithFormat("json"), WithWriter(&buf))
	log.Info("step finished", "step", "align")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "step finished", entry["msg"])
	assert.Equal(t, "align", entry["step"])
}

func TestNewQuietSuppressesInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithQuiet(), WithWriter(&buf))
	log.Info("should not appear")
	assert.Empty(t, buf.String())

	log.Error("should appear")
	assert.Contains(t, buf.String(), "should appear")
}

func TestNewDebugLowersLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(WithDebug(), WithWriter(&buf))
	log.Debug("poll pass", "step", "align")
	assert.True(t, strings.Contains(buf.String(), "poll pass"))
}

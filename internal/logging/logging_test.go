package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("warn", "json", &buf)
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "ticker", "AKBNK.IS")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "AKBNK.IS", rec["ticker"])
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	l, err := New("", "", &buf)
	require.NoError(t, err)
	l.Debug("hidden")
	l.Info("run finished", "equity", 1.5)
	assert.Contains(t, buf.String(), "msg=\"run finished\" equity=1.5")
}

func TestNewRejectsUnknown(t *testing.T) {
	_, err := New("loud", "text", nil)
	assert.Error(t, err)
	_, err = New("info", "xml", nil)
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("WARNING")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, lvl)
	assert.NotNil(t, Discard())
}

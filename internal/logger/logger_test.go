package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-market-lab/internal/config"
)

func TestNew_JSONFieldNames(t *testing.T) {
	log, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)

	var buf bytes.Buffer
	log.SetOutput(&buf)
	log.WithComponent("loader").WithField("rows", 3).Info("loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "loaded", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "loader", entry["component"])
	assert.EqualValues(t, 3, entry["rows"])
	assert.Contains(t, entry, "timestamp")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
}

func TestNew_InvalidSettings(t *testing.T) {
	_, err := New(config.LoggingConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)

	_, err = New(config.LoggingConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestNew_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cardlab.log")
	log, err := New(config.LoggingConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1})
	require.NoError(t, err)
	log.Info("to file")
	assert.FileExists(t, path)
}

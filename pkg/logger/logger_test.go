package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidLevelFallsBackToInfo(t *testing.T) {
	log := New("loud")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}

func TestLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("debug", &buf)

	log.WithComponent("identifier").WithField("kind", "ORDER").Warn("fallback used")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "fallback used", entry["message"])
	assert.Equal(t, "warning", entry["level"])
	assert.Equal(t, "identifier", entry["component"])
	assert.Equal(t, "ORDER", entry["kind"])
	assert.Contains(t, entry, "timestamp")
}

func TestLogger_Audit(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithOutput("info", &buf)

	log.Audit("u-1", "payment.recorded", "invoice", logrus.Fields{"amount": "20.00"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["audit"])
	assert.Equal(t, "payment.recorded", entry["action"])
}

/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package telemetry

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})
	require.NoError(t, err)

	component := Component(logger, "controller")
	component.Info().Msg("hidden")
	component.Warn().Msg("shown")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "controller", line["component"])
	assert.Equal(t, "warn", line["level"])
}

func TestNewLoggerToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persistence.log")
	logger, logs, err := NewLogger(LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	logger.Info().Msg("written")
	require.NoError(t, logs.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written"`)

	_, logs, err = NewLogger(LoggingConfig{Output: "stderr"})
	require.NoError(t, err)
	assert.NoError(t, logs.Close())

	_, _, err = NewLogger(LoggingConfig{Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"":         zerolog.InfoLevel,
		"debug":    zerolog.DebugLevel,
		"WARN":     zerolog.WarnLevel,
		"disabled": zerolog.Disabled,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func counterValue(t *testing.T, m *Metrics, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, Namespace: "test"})
	require.True(t, m.Enabled())

	m.RecordStoreLoaded("local")
	m.RecordStoreLoaded("local")
	m.RecordSave("background", 3, 1, 0)
	m.RecordChangeEvent("Note")
	m.ObserveOperation("background", "ok", 10*time.Millisecond)

	assert.Equal(t, 2.0, counterValue(t, m, "test_stores_loaded_total", map[string]string{"kind": "local"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_saves_total", map[string]string{"context": "background"}))
	assert.Equal(t, 3.0, counterValue(t, m, "test_objects_changed_total", map[string]string{"change": "inserted"}))
	assert.Equal(t, 1.0, counterValue(t, m, "test_change_events_total", map[string]string{"type": "Note"}))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_saves_total")
}

func TestDisabledMetrics(t *testing.T) {
	for _, m := range []*Metrics{NewMetrics(MetricsConfig{}), nil} {
		assert.False(t, m.Enabled())
		assert.NotPanics(t, func() {
			m.RecordStoreLoaded("local")
			m.RecordStoreLoadFailure("local")
			m.ObserveLoad(time.Second)
			m.RecordSave("foreground", 1, 0, 0)
			m.ObserveOperation("foreground", "ok", time.Second)
			m.RecordChangeEvent("Note")
			m.RecordCloudPush("notes", 1)
		})
		assert.Nil(t, m.Registry())
	}
}

func TestEndSpan(t *testing.T) {
	_, span := StartSpan(t.Context(), "test")
	assert.NotPanics(t, func() { EndSpan(span, errors.New("boom")) })
}

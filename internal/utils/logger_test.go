package utils

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormat(t *testing.T) {
	cases := []struct {
		format, env, want string
	}{
		{"", "dev", "text"},
		{"", "", "text"},
		{"", "prod", "json"},
		{"", "Staging", "json"},
		{"text", "prod", "text"},
		{"JSON", "dev", "json"},
		{"yaml", "dev", "text"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, logFormat(tc.format, tc.env), "format=%q env=%q", tc.format, tc.env)
	}
}

func TestConfigureLogger_JSONCarriesService(t *testing.T) {
	l := logrus.New()
	configureLogger(l, "rental-service", "debug", "json")
	var buf bytes.Buffer
	l.SetOutput(&buf)
	l.AddHook(&serviceHook{service: "rental-service", runID: "42"})

	l.WithField("contract_id", "c-1").Debug("Contract expired")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "Contract expired", line["message"])
	assert.Equal(t, "rental-service", line["service"])
	assert.Equal(t, "42", line["run_id"])
	assert.Equal(t, "c-1", line["contract_id"])
	assert.Equal(t, "debug", line["level"])
}

func TestConfigureLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	l := logrus.New()
	var buf bytes.Buffer
	l.SetOutput(&buf)
	configureLogger(l, "rental-service", "loud", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestFirstNonEmptyAndVal(t *testing.T) {
	assert.Equal(t, "b", FirstNonEmpty("", "b", "c"))
	assert.Equal(t, "", FirstNonEmpty())
	assert.Equal(t, "", Val[string](nil))
	assert.Equal(t, 3, Val(Ptr(3)))
}

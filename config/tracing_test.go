package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akeren/waitlist-signup/internal/log"
)

func TestParseOTLPEndpoint(t *testing.T) {
	cases := []struct {
		raw  string
		want otlpTarget
	}{
		{"http://collector:4318", otlpTarget{hostport: "collector:4318", path: "/v1/traces", insecure: true}},
		{"https://otel.example.com/custom/traces", otlpTarget{hostport: "otel.example.com", path: "/custom/traces"}},
		{"localhost:4318", otlpTarget{hostport: "localhost:4318", path: "/v1/traces", insecure: true}},
	}
	for _, tc := range cases {
		got, err := parseOTLPEndpoint(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	for _, bad := range []string{"", "grpc://collector:4317", "collector:4318/v1/traces", "http://"} {
		_, err := parseOTLPEndpoint(bad)
		assert.Error(t, err, bad)
	}
}

func TestTraceSampleRatio(t *testing.T) {
	assert.Equal(t, 1.0, traceSampleRatio(""))
	assert.Equal(t, 0.25, traceSampleRatio("0.25"))
	assert.Equal(t, 1.0, traceSampleRatio("1.5"))
	assert.Equal(t, 1.0, traceSampleRatio("half"))
}

func TestSetupTracing_DisabledIsNoop(t *testing.T) {
	t.Setenv("OTEL_TRACES_ENABLED", "false")

	shutdown, err := SetupTracing(log.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, shutdown)
}

package utils

const defaultServiceName = "waitlist-signup"

// IsTracingEnabled is opt-in via OTEL_TRACES_ENABLED.
func IsTracingEnabled() bool {
	return GetEnvBool("OTEL_TRACES_ENABLED", false)
}

func OTelServiceName() string {
	return GetEnvTrimmedOrDefault("OTEL_SERVICE_NAME", defaultServiceName)
}

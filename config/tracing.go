package config

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/akeren/waitlist-signup/internal/log"
	"github.com/akeren/waitlist-signup/pkg/utils"
)

const defaultOTLPEndpoint = "http://localhost:4318"

// SetupTracing installs a global OTLP/HTTP tracer provider when
// OTEL_TRACES_ENABLED is true. The returned func flushes and stops it; it is
// nil when tracing is off.
func SetupTracing(logger *log.Logger) (func(context.Context) error, error) {
	if !utils.IsTracingEnabled() {
		return nil, nil
	}

	endpoint := utils.GetEnvTrimmedOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", defaultOTLPEndpoint)
	target, err := parseOTLPEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(target.hostport),
		otlptracehttp.WithURLPath(target.path),
	}
	if target.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("setup tracing exporter: %w", err)
	}

	serviceName := utils.OTelServiceName()
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if env := GetAppEnv(); env != "" {
		attrs = append(attrs, attribute.String("deployment.environment", env))
	}
	res, err := resource.New(context.Background(), resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("setup tracing resource: %w", err)
	}

	ratio := traceSampleRatio(utils.GetEnvTrimmed("OTEL_TRACES_SAMPLE_RATIO"))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	logger.Info("OpenTelemetry tracing enabled", "service", serviceName, "endpoint", endpoint, "sample_ratio", ratio)
	return tp.Shutdown, nil
}

// traceSampleRatio defaults to sampling everything.
func traceSampleRatio(raw string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || ratio < 0 || ratio > 1 {
		return 1
	}
	return ratio
}

type otlpTarget struct {
	hostport string
	path     string
	insecure bool
}

// parseOTLPEndpoint accepts http(s)://host:port[/path] or a bare host:port,
// which is treated as plain http.
func parseOTLPEndpoint(raw string) (otlpTarget, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return otlpTarget{}, fmt.Errorf("empty OTLP endpoint")
	}

	if !strings.Contains(raw, "://") {
		// otlptracehttp.WithEndpoint takes host:port only.
		if strings.ContainsAny(raw, "/?#") {
			return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: use http://host:port[/path] to give a path", raw)
		}
		return otlpTarget{hostport: raw, path: "/v1/traces", insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: %w", raw, err)
	}
	if u.Host == "" {
		return otlpTarget{}, fmt.Errorf("invalid OTLP endpoint %q: missing host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return otlpTarget{}, fmt.Errorf("unsupported OTLP endpoint scheme %q in %q", u.Scheme, raw)
	}

	path := u.EscapedPath()
	if path == "" || path == "/" {
		path = "/v1/traces"
	}
	return otlpTarget{hostport: u.Host, path: path, insecure: scheme == "http"}, nil
}

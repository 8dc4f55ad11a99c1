package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/signalsfoundry/mural/internal/errs"
	"github.com/signalsfoundry/mural/internal/logging"
)

// Span exporters a planning run can write to.
const (
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)

const tracingShutdownTimeout = 5 * time.Second

// TracingConfig selects where the spans of a planning run go. The planner
// builds it from the tracing section of its configuration file.
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Exporter    string
	Endpoint    string // OTLP collector, host:port
	SampleRatio float64

	// Writer receives stdout spans; nil means os.Stdout.
	Writer io.Writer
}

// Validate reports every unusable tracing setting. Settings are only
// checked when tracing is enabled.
func (c TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	col := errs.NewCollector("Tracing", "Validate")
	switch strings.ToLower(c.Exporter) {
	case ExporterStdout:
	case ExporterOTLP:
		col.Require(c.Endpoint != "", "tracing.endpoint")
	default:
		col.Addf("tracing.exporter %q is not %s or %s", c.Exporter, ExporterStdout, ExporterOTLP)
	}
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		col.Addf("tracing.sample_ratio %v outside [0, 1]", c.SampleRatio)
	}
	return col.Err()
}

// RunTracing owns the tracer provider installed for one planning run.
type RunTracing struct {
	provider *sdktrace.TracerProvider
	log      logging.Logger
}

// StartRunTracing installs the global tracer provider the scheduler spans
// are recorded with. Disabled tracing installs a no-op provider. Spans are
// tagged with the run ID carried by ctx, when there is one.
func StartRunTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (*RunTracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Debug(ctx, "tracing disabled")
		return &RunTracing{log: log}, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "mural"),
	}
	if id := logging.RunIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("mural.run_id", id))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	spanOpt, err := spanProcessor(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		sdktrace.WithResource(res),
		spanOpt,
	)
	otel.SetTracerProvider(tp)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", cfg.ServiceName),
		logging.Float("sample_ratio", cfg.SampleRatio),
	)
	return &RunTracing{provider: tp, log: log}, nil
}

// spanProcessor writes stdout spans as each one ends; OTLP spans are batched.
func spanProcessor(ctx context.Context, cfg TracingConfig) (sdktrace.TracerProviderOption, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterStdout:
		var w io.Writer = os.Stdout
		if cfg.Writer != nil {
			w = cfg.Writer
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithoutTimestamps())
		if err != nil {
			return nil, fmt.Errorf("stdout exporter: %w", err)
		}
		return sdktrace.WithSyncer(exp), nil
	default:
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		exp, err := otlptrace.New(ctx, client)
		if err != nil {
			return nil, fmt.Errorf("otlp exporter %s: %w", cfg.Endpoint, err)
		}
		return sdktrace.WithBatcher(exp), nil
	}
}

// Shutdown flushes outstanding spans within a bounded time. Failures are
// only logged.
func (rt *RunTracing) Shutdown(ctx context.Context) {
	if rt == nil || rt.provider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, tracingShutdownTimeout)
	defer cancel()
	if err := rt.provider.Shutdown(ctx); err != nil {
		rt.log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

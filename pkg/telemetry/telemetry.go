package telemetry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

var tracerName = "plc/interpreter-go/pkg/telemetry"

// Stage names one step of the program pipeline. The zero value is the
// root span covering a whole execution.
type Stage string

const (
	StageProgram Stage = "program"
	StageLex     Stage = "lex"
	StageParse   Stage = "parse"
	StageAnalyze Stage = "analyze"
	StageRun     Stage = "run"
)

func (s Stage) SpanName() string {
	if s == "" {
		return "plc." + string(StageProgram)
	}
	return "plc." + string(s)
}

type Instrumenter interface {
	Start(ctx context.Context, info StageStart) (context.Context, StageSpan)
	Shutdown(ctx context.Context) error
}

type StageStart struct {
	Stage Stage
	Path  string
	RunID string
}

// StageResult is reported when a stage finishes. Counts that do not apply
// to the stage stay zero and are not recorded.
type StageResult struct {
	Err     error
	Tokens  int
	Methods int
	Value   string
}

type StageSpan interface {
	End(result StageResult)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

type Option func(*providerOptions)

func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(buildResourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, err
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	var tpOpts []sdktrace.TracerProviderOption
	tpOpts = append(tpOpts, sdktrace.WithResource(res))
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, info StageStart) (context.Context, StageSpan) {
	ctx, span := m.tracer.Start(
		ctx,
		info.Stage.SpanName(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(buildSpanAttributes(info)...),
	)
	return ctx, &stageSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var shutdownErr error
	m.shutdown.Do(func() {
		shutdownErr = m.provider.Shutdown(ctx)
	})
	return shutdownErr
}

type stageSpan struct {
	span trace.Span
}

func (s *stageSpan) End(result StageResult) {
	if s == nil || s.span == nil {
		return
	}
	if result.Tokens > 0 {
		s.span.SetAttributes(attribute.Int("plc.tokens", result.Tokens))
	}
	if result.Methods > 0 {
		s.span.SetAttributes(attribute.Int("plc.methods", result.Methods))
	}
	if result.Value != "" {
		s.span.SetAttributes(attribute.String("plc.result", result.Value))
	}

	if result.Err != nil {
		s.span.RecordError(result.Err)
		s.span.SetAttributes(attribute.String("plc.error.kind", ErrorKind(result.Err)))
		if offset, ok := errorOffset(result.Err); ok {
			s.span.SetAttributes(attribute.Int("plc.error.offset", offset))
		}
		s.span.SetStatus(codes.Error, result.Err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "OK")
	}
	s.span.End()
}

func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ StageStart) (context.Context, StageSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(StageResult) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("telemetry endpoint is required")
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	client := otlptracegrpc.NewClient(clientOpts...)
	return otlptrace.New(ctx, client)
}

func buildResourceAttributes(cfg Config) []attribute.KeyValue {
	name := cfg.ServiceName
	if strings.TrimSpace(name) == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{
		semconv.ServiceName(name),
	}
	if strings.TrimSpace(cfg.Version) != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.Version))
	}
	return attrs
}

func buildSpanAttributes(info StageStart) []attribute.KeyValue {
	stage := info.Stage
	if stage == "" {
		stage = StageProgram
	}
	attrs := []attribute.KeyValue{
		attribute.String("plc.stage", string(stage)),
	}
	if path := strings.TrimSpace(info.Path); path != "" {
		attrs = append(attrs, attribute.String("plc.path", path))
	}
	if id := strings.TrimSpace(info.RunID); id != "" {
		attrs = append(attrs, attribute.String("plc.run_id", id))
	}
	return attrs
}

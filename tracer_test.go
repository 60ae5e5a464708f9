package jwtgate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	noop.Span
	attrs  []attribute.KeyValue
	errs   []error
	status codes.Code
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) { s.attrs = append(s.attrs, kv...) }
func (s *recordingSpan) RecordError(err error, _ ...oteltrace.EventOption) {
	s.errs = append(s.errs, err)
}
func (s *recordingSpan) SetStatus(code codes.Code, _ string) { s.status = code }
func (s *recordingSpan) End(...oteltrace.SpanEndOption)      { s.ended = true }

type recordingTracer struct {
	noop.Tracer
	names []string
	spans []*recordingSpan
}

func (t *recordingTracer) Start(ctx context.Context, name string, _ ...oteltrace.SpanStartOption) (context.Context, oteltrace.Span) {
	span := &recordingSpan{}
	t.names = append(t.names, name)
	t.spans = append(t.spans, span)
	return oteltrace.ContextWithSpan(ctx, span), span
}

func TestOpenTelemetryTracer(t *testing.T) {
	otel := &recordingTracer{}
	tracer := NewOpenTelemetryTracer(otel)

	ctx, span := tracer.StartSpan(context.Background(), "jwtgate.CheckToken")
	require.NotNil(t, ctx)

	span.SetTag("jwtgate.result", "rejected")
	span.SetTag("jwtgate.cached", true)
	span.SetTag("jwtgate.keys", 2)
	span.SetTag("jwtgate.other", []string{"a"})
	span.RecordError(errors.New("token is expired"))
	span.Finish()

	require.Len(t, otel.spans, 1)
	recorded := otel.spans[0]
	assert.Equal(t, []string{"jwtgate.CheckToken"}, otel.names)
	assert.Same(t, recorded, oteltrace.SpanFromContext(ctx))
	assert.Equal(t, []attribute.KeyValue{
		attribute.String("jwtgate.result", "rejected"),
		attribute.Bool("jwtgate.cached", true),
		attribute.Int("jwtgate.keys", 2),
		attribute.String("jwtgate.other", "[a]"),
	}, recorded.attrs)
	assert.Len(t, recorded.errs, 1)
	assert.Equal(t, codes.Error, recorded.status)
	assert.True(t, recorded.ended)
}

func TestOpenTelemetryTracer_Noop(t *testing.T) {
	tracer := NewOpenTelemetryTracer(noop.NewTracerProvider().Tracer("test"))

	_, span := tracer.StartSpan(context.Background(), "jwtgate.CheckToken")
	assert.NotPanics(t, func() {
		span.SetTag("jwtgate.result", "trusted")
		span.RecordError(errors.New("boom"))
		span.Finish()
	})
}

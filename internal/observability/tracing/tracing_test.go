package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/smallbiznis/feeledger/internal/feeerrors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanDropsSensitiveAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	_, span := StartSpan(context.Background(), "carry_forward",
		attribute.String("student_id", "7"),
		attribute.String("session_id", "abc"),
	)
	EndSpan(span, feeerrors.New(feeerrors.ErrAlreadyCarriedForward, "fees_already_carried_forward"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "session_id" {
			t.Fatalf("expected session_id to be dropped")
		}
	}
	if spans[0].Status().Code != codes.Error || spans[0].Status().Description != "already_carried_forward" {
		t.Fatalf("unexpected status %+v", spans[0].Status())
	}
}

func TestSafeErrorHidesMessage(t *testing.T) {
	err := SafeError(errors.New("password=hunter2"))
	if err == nil || err.Error() == "password=hunter2" {
		t.Fatalf("expected message to be hidden, got %v", err)
	}
}

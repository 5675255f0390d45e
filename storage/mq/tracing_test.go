package mq

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestHeaderCarrier(t *testing.T) {
	c := headerCarrier(amqp.Table{"n": 1})
	c.Set("traceparent", "00-abc-def-01")
	assert.Equal(t, "00-abc-def-01", c.Get("traceparent"))
	assert.Equal(t, "", c.Get("n"))
	assert.ElementsMatch(t, []string{"n", "traceparent"}, c.Keys())
}

func TestStartPublishSpan_InjectsTraceparent(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	t.Cleanup(func() { otel.SetTextMapPropagator(prevProp) })
	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	_, headers, end := startPublishSpan(context.Background(), ExchangeEvents, RoutingTripStarted)
	end(errors.New("boom"))

	assert.NotEmpty(t, headers["traceparent"])
}

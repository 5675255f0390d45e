package otel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGRPCEndpoint(t *testing.T) {
	assert.Equal(t, "localhost:4317", grpcEndpoint("http://localhost:4317"))
	assert.Equal(t, "collector:4317", grpcEndpoint("https://collector:4317"))
	assert.Equal(t, "collector:4317", grpcEndpoint("collector:4317"))
}

package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracer_ExportsSpans(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitTracer("amaru-test", &buf)
	require.NoError(t, err)

	_, span := Start(context.Background(), "pipeline.evaluate", attribute.String("candidate", "cd_1"))
	span.End()

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "pipeline.evaluate")
	assert.Contains(t, buf.String(), "cd_1")
}

func TestInitTracer_NoWriter(t *testing.T) {
	shutdown, err := InitTracer("amaru-test", nil)
	require.NoError(t, err)

	ctx, span := Start(context.Background(), "noop")
	assert.True(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, shutdown(ctx))
}

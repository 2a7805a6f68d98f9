package logging

import (
	"context"
	"testing"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := CorrelationIDFromContext(ctx); got != "" {
		t.Errorf("expected empty correlation id on bare context, got %q", got)
	}

	id := GenerateCorrelationID()
	if len(id) != 8 {
		t.Errorf("expected 8-character correlation id, got %q", id)
	}

	ctx = ContextWithCorrelationID(ctx, id)
	if got := CorrelationIDFromContext(ctx); got != id {
		t.Errorf("expected correlation id %q, got %q", id, got)
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	t.Parallel()

	id := GenerateRequestID()
	ctx := ContextWithRequestID(context.Background(), id)
	if got := RequestIDFromContext(ctx); got != id {
		t.Errorf("expected request id %q, got %q", id, got)
	}
}

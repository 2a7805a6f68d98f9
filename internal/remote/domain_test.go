package remote

import (
	"context"
	"errors"
	"testing"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
)

type fakeVerifier struct {
	endpoint string
	err      error
}

func (f *fakeVerifier) VerifyDomain(ctx context.Context) (string, error) {
	return f.endpoint, f.err
}

func TestFakeVerifierSatisfiesInterface(t *testing.T) {
	var v DomainVerifier = &fakeVerifier{endpoint: "https://example.us-east-1.es.amazonaws.com"}
	endpoint, err := v.VerifyDomain(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if endpoint == "" {
		t.Fatal("expected non-empty endpoint")
	}
}

func TestFakeVerifierPropagatesRemoteUnavailable(t *testing.T) {
	v := &fakeVerifier{err: errors.New("boom")}
	_, err := v.VerifyDomain(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	_ = apperrors.ErrRemoteUnavailable // documents the sentinel production code wraps
}

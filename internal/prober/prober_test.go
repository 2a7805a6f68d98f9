package prober

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

func ingestionLatencySampleCount(t *testing.T) uint64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.IngestionLatencyHistogram().Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

type fakeBulkProber struct {
	calls int
	err   error
}

func (f *fakeBulkProber) ProbeBulk(context.Context, string) error {
	f.calls++
	return f.err
}

func discardLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testProber(bulkErr error) (*Prober, *state.State, *fakeBulkProber) {
	st := state.New()
	remote := config.RemoteConfig{EndpointURL: "https://search-demo.us-east-1.es.amazonaws.com", Region: "us-east-1"}
	retry := config.RetryConfig{MaxAttempts: 1, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
	bulk := &fakeBulkProber{err: bulkErr}
	p := newWithBulkProber(remote, retry, st, bulk)
	return p, st, bulk
}

func TestHostOfStripsSchemeAndPath(t *testing.T) {
	cases := map[string]string{
		"https://search-demo.us-east-1.es.amazonaws.com":      "search-demo.us-east-1.es.amazonaws.com",
		"http://example.com/_bulk":                            "example.com",
		"https://example.com:9200/path":                       "example.com",
	}
	for in, want := range cases {
		if got := hostOf(in); got != want {
			t.Errorf("hostOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNoEndpointConfiguredMarksNotReady(t *testing.T) {
	st := state.New()
	remote := config.RemoteConfig{}
	retry := config.RetryConfig{MaxAttempts: 1, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
	p := newWithBulkProber(remote, retry, st, &fakeBulkProber{})

	p.runCycle(context.Background(), discardLogger())

	snap := st.Connectivity()
	if snap.AWSReady {
		t.Error("aws_ready should be false with no endpoint configured")
	}
}

func TestBulkProbeSkippedWhenDNSUnresolvable(t *testing.T) {
	st := state.New()
	remote := config.RemoteConfig{EndpointURL: "https://this-host-does-not-resolve.invalid", Region: "us-east-1"}
	retry := config.RetryConfig{MaxAttempts: 1, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond, Multiplier: 1}
	bulk := &fakeBulkProber{}
	p := newWithBulkProber(remote, retry, st, bulk)

	p.runCycle(context.Background(), discardLogger())

	if bulk.calls != 0 {
		t.Errorf("bulk probe should be skipped when DNS fails, got %d calls", bulk.calls)
	}
	snap := st.Connectivity()
	if snap.DNSOK || snap.AWSReady {
		t.Errorf("expected dns_ok=false aws_ready=false, got %+v", snap)
	}
}

func TestCheckBulkWithRetryExhaustsAttemptsOnPersistentFailure(t *testing.T) {
	p, _, bulk := testProber(errors.New("boom"))
	p.retry.MaxAttempts = 3

	ok := p.checkBulkWithRetry(context.Background(), p.remote.EndpointURL, loggerPtr())
	if ok {
		t.Fatal("expected checkBulkWithRetry to report failure")
	}
	if bulk.calls != 3 {
		t.Errorf("calls = %d, want 3 (MaxAttempts)", bulk.calls)
	}
}

func TestCheckBulkWithRetrySucceedsOnFirstAttempt(t *testing.T) {
	p, _, bulk := testProber(nil)
	before := ingestionLatencySampleCount(t)

	ok := p.checkBulkWithRetry(context.Background(), p.remote.EndpointURL, loggerPtr())
	if !ok {
		t.Fatal("expected success")
	}
	if bulk.calls != 1 {
		t.Errorf("calls = %d, want 1", bulk.calls)
	}
	if got := ingestionLatencySampleCount(t); got != before+1 {
		t.Errorf("ingestion_latency_seconds sample count = %d, want %d", got, before+1)
	}
}

func loggerPtr() *zerolog.Logger {
	l := discardLogger()
	return &l
}

// Package prober implements the Connectivity Prober worker: a 30-second
// cycle that verifies DNS resolution, a TLS handshake, and a signed
// OpenSearch bulk probe against the remote cluster, publishing each result
// to the Shared State bus.
package prober

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"
)

const cycleInterval = 30 * time.Second

// BulkProber performs the signed OpenSearch bulk probe. The production
// implementation is in aws.go; tests substitute a fake.
type BulkProber interface {
	ProbeBulk(ctx context.Context, endpoint string) error
}

// Prober is the Connectivity Prober worker.
type Prober struct {
	remote  config.RemoteConfig
	retry   config.RetryConfig
	state   *state.State
	dialer  *net.Dialer
	bulk    BulkProber
	breaker *gobreaker.CircuitBreaker[any]
}

// New constructs a Prober wired to production dependencies: real DNS/TLS
// dialing and an AWS SigV4-signed bulk probe.
func New(remote config.RemoteConfig, retry config.RetryConfig, st *state.State) *Prober {
	return newWithBulkProber(remote, retry, st, newSigV4BulkProber(remote))
}

func newWithBulkProber(remote config.RemoteConfig, retry config.RetryConfig, st *state.State, bulk BulkProber) *Prober {
	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "opensearch-bulk-probe",
		MaxRequests: 1,
		Interval:    cycleInterval,
		Timeout:     cycleInterval,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})

	return &Prober{
		remote:  remote,
		retry:   retry,
		state:   st,
		dialer:  &net.Dialer{Timeout: 10 * time.Second},
		bulk:    bulk,
		breaker: breaker,
	}
}

// String implements suture.Service.
func (p *Prober) String() string {
	return "connectivity-prober"
}

// Serve implements suture.Service.
func (p *Prober) Serve(ctx context.Context) error {
	log := logging.WithComponent("connectivity-prober")
	log.Info().Msg("connectivity prober started")

	ticker := time.NewTicker(cycleInterval)
	defer ticker.Stop()

	p.runCycle(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connectivity prober stopping")
			return ctx.Err()
		case <-ticker.C:
			p.runCycle(ctx, log)
		}
	}
}

// runCycle resolves DNS and the TLS handshake concurrently, then runs the
// bulk probe only if both succeeded, mirroring the original checker's
// gather-then-gate structure.
func (p *Prober) runCycle(ctx context.Context, log zerolog.Logger) {
	endpoint := p.remote.EndpointURL
	if endpoint == "" {
		log.Error().Msg("no opensearch endpoint configured, skipping connectivity cycle")
		p.state.SetConnectivitySample(false, false, false, false, time.Now())
		return
	}
	hostname := hostOf(endpoint)

	var dnsOK, tlsOK bool
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dnsOK = p.checkDNS(gctx, hostname, &log)
		return nil
	})
	g.Go(func() error {
		tlsOK = p.checkTLS(gctx, hostname, &log)
		return nil
	})
	_ = g.Wait()

	var openSearchOK bool
	if dnsOK && tlsOK {
		openSearchOK = p.checkBulkWithRetry(ctx, endpoint, &log)
		if !openSearchOK {
			p.state.IncrementEventsFailed(1)
		}
	} else {
		log.Warn().Msg("skipping bulk probe due to dns/tls failure")
	}

	awsReady := dnsOK && tlsOK && openSearchOK
	p.state.SetConnectivitySample(dnsOK, tlsOK, openSearchOK, awsReady, time.Now())

	log.Info().
		Bool("dns_ok", dnsOK).Bool("tls_ok", tlsOK).Bool("opensearch_ok", openSearchOK).Bool("aws_ready", awsReady).
		Msg("connectivity check complete")
}

func hostOf(endpoint string) string {
	h := strings.TrimPrefix(endpoint, "https://")
	h = strings.TrimPrefix(h, "http://")
	if idx := strings.Index(h, "/"); idx >= 0 {
		h = h[:idx]
	}
	if idx := strings.LastIndex(h, ":"); idx >= 0 && !strings.Contains(h[idx:], "]") {
		h = h[:idx]
	}
	return h
}

func (p *Prober) checkDNS(ctx context.Context, hostname string, log *zerolog.Logger) bool {
	addrs, err := net.DefaultResolver.LookupHost(ctx, hostname)
	if err != nil || len(addrs) == 0 {
		log.Error().Err(err).Str("hostname", hostname).Msg("dns resolution failed")
		return false
	}
	log.Info().Str("hostname", hostname).Str("address", addrs[0]).Msg("dns resolution successful")
	return true
}

func (p *Prober) checkTLS(ctx context.Context, hostname string, log *zerolog.Logger) bool {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := tls.DialWithDialer(p.dialer, "tcp", net.JoinHostPort(hostname, "443"), &tls.Config{
		ServerName: hostname,
		MinVersion: tls.VersionTLS12,
	})
	if err != nil {
		log.Error().Err(err).Str("hostname", hostname).Msg("tls handshake failed")
		return false
	}
	defer conn.Close()
	_ = dialCtx

	log.Info().Str("hostname", hostname).Msg("tls handshake successful")
	return true
}

// checkBulkWithRetry retries the bulk probe up to retry.MaxAttempts times
// with exponential backoff bounded by [MinBackoff, MaxBackoff], wrapping
// every attempt in the circuit breaker so a cluster in meltdown stops
// receiving probe traffic after three consecutive cycle failures.
func (p *Prober) checkBulkWithRetry(ctx context.Context, endpoint string, log *zerolog.Logger) bool {
	started := time.Now()
	backoff := p.retry.MinBackoff

	var lastErr error
	for attempt := 1; attempt <= p.retry.MaxAttempts; attempt++ {
		_, err := p.breaker.Execute(func() (any, error) {
			return nil, p.bulk.ProbeBulk(ctx, endpoint)
		})
		if err == nil {
			telemetry.ObserveIngestionLatency(time.Since(started).Seconds())
			log.Info().Str("endpoint", endpoint).Msg("opensearch bulk probe successful")
			return true
		}
		lastErr = err

		if attempt == p.retry.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * p.retry.Multiplier)
		if backoff > p.retry.MaxBackoff {
			backoff = p.retry.MaxBackoff
		}
	}

	telemetry.ObserveIngestionLatency(time.Since(started).Seconds())
	log.Error().Err(lastErr).Str("endpoint", endpoint).Msg("opensearch bulk probe failed")
	return false
}

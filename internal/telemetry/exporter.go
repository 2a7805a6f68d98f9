package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/httpservice"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// refreshInterval bounds how stale the gauges can be relative to Shared
// State; it is well under the <1s scrape-completion budget since refresh
// only copies already-computed values into gauges, no I/O.
const refreshInterval = 5 * time.Second

// reflector is a suture.Service that copies Shared State into the
// package's Prometheus gauges on a fixed interval.
type reflector struct {
	state *state.State

	lastEventsProcessed uint64
	lastEventsFailed    uint64
}

func (r *reflector) String() string { return "telemetry-reflector" }

func (r *reflector) Serve(ctx context.Context) error {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	r.refresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.refresh()
		}
	}
}

func (r *reflector) refresh() {
	snap := r.state.All()

	cpuUsagePercent.Set(snap.CPUPercent)
	ramUsagePercent.Set(snap.RAMPercent)
	throttleLevel.Set(float64(snap.ThrottleLevel))

	dnsStatus.Set(boolToFloat(snap.DNSOK))
	tlsStatus.Set(boolToFloat(snap.TLSOK))
	openSearchStatus.Set(boolToFloat(snap.OpenSearchOK))
	awsReady.Set(boolToFloat(snap.AWSReady))

	vectorStatus.Set(boolToFloat(snap.VectorRunning))
	suricataStatus.Set(boolToFloat(snap.SuricataRunning))
	redisStatus.Set(boolToFloat(snap.RedisRunning))
	pipelineOK.Set(boolToFloat(snap.PipelineOK))

	if snap.EventsProcessed > r.lastEventsProcessed {
		eventsProcessedTotal.Add(float64(snap.EventsProcessed - r.lastEventsProcessed))
		r.lastEventsProcessed = snap.EventsProcessed
	}
	if snap.EventsFailed > r.lastEventsFailed {
		eventsFailedTotal.Add(float64(snap.EventsFailed - r.lastEventsFailed))
		r.lastEventsFailed = snap.EventsFailed
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewReflector returns the suture.Service responsible for keeping gauges in
// sync with Shared State.
func NewReflector(st *state.State) interface {
	Serve(ctx context.Context) error
	String() string
} {
	return &reflector{state: st}
}

// NewExporterService builds the suture.Service that serves GET /metrics on
// the configured telemetry port.
func NewExporterService(addr string, shutdownTimeout time.Duration) *httpservice.Service {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	return httpservice.New("telemetry-exporter", server, shutdownTimeout)
}

// Addr formats a host:port telemetry listen address from a configured port.
func Addr(port int) string {
	return fmt.Sprintf(":%d", port)
}

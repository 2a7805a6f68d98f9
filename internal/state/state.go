// Package state implements the Shared State bus: the single process-wide
// view through which the supervisor, resource governor, connectivity
// prober, telemetry exporter, and control API communicate.
//
// Each well-known key has exactly one writer. Readers tolerate stale
// values. This is a typed struct behind a sync.RWMutex, never a raw
// map[string]any — stringly-keyed access was the pattern this package
// replaces (see the Design Notes in SPEC_FULL.md §9).
package state

import (
	"sync"
	"time"
)

// ThrottleLevel summarizes host resource pressure, 0 (none) through 3
// (heavy).
type ThrottleLevel int

const (
	ThrottleNone ThrottleLevel = iota
	ThrottleLight
	ThrottleMedium
	ThrottleHeavy
)

// State is the process-wide Shared State bus. The zero value is not usable;
// construct with New.
type State struct {
	mu sync.RWMutex

	// Resource Governor
	cpuPercent      float64
	ramPercent      float64
	throttleLevel   ThrottleLevel
	resourceOK      bool
	lastReclaimTime time.Time

	// Connectivity Prober
	dnsOK                  bool
	tlsOK                  bool
	openSearchOK           bool
	awsReady               bool
	lastConnectivityCheck  time.Time
	openSearchEndpoint     string

	// Supervisor
	vectorRunning   bool
	suricataRunning bool
	redisRunning    bool
	apiRunning      bool
	pipelineOK      bool

	// Counters (monotonic, any worker may increment)
	eventsProcessed uint64
	eventsFailed    uint64
}

// New returns an empty Shared State with all booleans false and counters
// zero, ready for workers to begin writing.
func New() *State {
	return &State{}
}

// SetResourceSample records one Resource Governor sampling cycle.
// resourceOK is computed by the caller per the cpu<=maxCPU && ram<=maxRAM
// invariant; this setter only stores it.
func (s *State) SetResourceSample(cpuPercent, ramPercent float64, level ThrottleLevel, resourceOK bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cpuPercent = cpuPercent
	s.ramPercent = ramPercent
	s.throttleLevel = level
	s.resourceOK = resourceOK
}

// SetLastReclaimTime records when the Resource Governor last forced a
// memory reclaim.
func (s *State) SetLastReclaimTime(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReclaimTime = t
}

// ResourceSnapshot is a consistent-per-key (not cross-key atomic) read of
// the Resource Governor's published state.
type ResourceSnapshot struct {
	CPUPercent      float64
	RAMPercent      float64
	ThrottleLevel   ThrottleLevel
	ResourceOK      bool
	LastReclaimTime time.Time
}

// Resource returns the latest Resource Governor snapshot.
func (s *State) Resource() ResourceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResourceSnapshot{
		CPUPercent:      s.cpuPercent,
		RAMPercent:      s.ramPercent,
		ThrottleLevel:   s.throttleLevel,
		ResourceOK:      s.resourceOK,
		LastReclaimTime: s.lastReclaimTime,
	}
}

// SetConnectivitySample records one Connectivity Prober cycle. awsReady is
// computed by the caller as dnsOK && tlsOK && openSearchOK.
func (s *State) SetConnectivitySample(dnsOK, tlsOK, openSearchOK, awsReady bool, checkedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dnsOK = dnsOK
	s.tlsOK = tlsOK
	s.openSearchOK = openSearchOK
	s.awsReady = awsReady
	s.lastConnectivityCheck = checkedAt
}

// SetOpenSearchEndpoint records the endpoint discovered in Phase A (or
// later re-resolved). Both the Supervisor (initial value) and the
// Connectivity Prober (display only, never re-assigns ownership) may read
// it; only the Supervisor writes it per spec.md §3.
func (s *State) SetOpenSearchEndpoint(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openSearchEndpoint = endpoint
}

// ConnectivitySnapshot is a consistent-per-key read of the Connectivity
// Prober's published state.
type ConnectivitySnapshot struct {
	DNSOK                 bool
	TLSOK                 bool
	OpenSearchOK          bool
	AWSReady              bool
	LastConnectivityCheck time.Time
	OpenSearchEndpoint    string
}

// Connectivity returns the latest Connectivity Prober snapshot.
func (s *State) Connectivity() ConnectivitySnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ConnectivitySnapshot{
		DNSOK:                 s.dnsOK,
		TLSOK:                 s.tlsOK,
		OpenSearchOK:          s.openSearchOK,
		AWSReady:              s.awsReady,
		LastConnectivityCheck: s.lastConnectivityCheck,
		OpenSearchEndpoint:    s.openSearchEndpoint,
	}
}

// SetVectorRunning, SetSuricataRunning, SetRedisRunning, and SetAPIRunning
// are the Supervisor's collaborator-status writers.
func (s *State) SetVectorRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectorRunning = running
}

func (s *State) SetSuricataRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suricataRunning = running
}

func (s *State) SetRedisRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redisRunning = running
}

func (s *State) SetAPIRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apiRunning = running
}

// SetPipelineOK records Phase E's verification result.
func (s *State) SetPipelineOK(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelineOK = ok
}

// SupervisorSnapshot is a consistent-per-key read of the Supervisor's
// published collaborator status.
type SupervisorSnapshot struct {
	VectorRunning   bool
	SuricataRunning bool
	RedisRunning    bool
	APIRunning      bool
	PipelineOK      bool
}

// Supervisor returns the latest Supervisor-published snapshot.
func (s *State) Supervisor() SupervisorSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SupervisorSnapshot{
		VectorRunning:   s.vectorRunning,
		SuricataRunning: s.suricataRunning,
		RedisRunning:    s.redisRunning,
		APIRunning:      s.apiRunning,
		PipelineOK:      s.pipelineOK,
	}
}

// IncrementEventsProcessed increments the monotonic events_processed
// counter by delta. Any worker may call this; it never decreases.
func (s *State) IncrementEventsProcessed(delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsProcessed += delta
}

// IncrementEventsFailed increments the monotonic events_failed counter by
// delta. Any worker may call this; it never decreases.
func (s *State) IncrementEventsFailed(delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventsFailed += delta
}

// Counters is a consistent-per-key read of both monotonic counters.
type Counters struct {
	EventsProcessed uint64
	EventsFailed    uint64
}

// CountersSnapshot returns the current counter values.
func (s *State) CountersSnapshot() Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counters{EventsProcessed: s.eventsProcessed, EventsFailed: s.eventsFailed}
}

// Snapshot is the entire Shared State rendered as one consistent-per-key
// read, used by Control API's GET /api/status and the Telemetry Exporter's
// scrape cycle.
type Snapshot struct {
	CPUPercent             float64       `json:"cpu_percent"`
	RAMPercent             float64       `json:"ram_percent"`
	ThrottleLevel          ThrottleLevel `json:"throttle_level"`
	ResourceOK             bool          `json:"resource_ok"`
	LastReclaimTime        time.Time     `json:"last_reclaim_time"`
	DNSOK                  bool          `json:"dns_ok"`
	TLSOK                  bool          `json:"tls_ok"`
	OpenSearchOK           bool          `json:"opensearch_ok"`
	AWSReady               bool          `json:"aws_ready"`
	LastConnectivityCheck  time.Time     `json:"last_connectivity_check"`
	OpenSearchEndpoint     string        `json:"opensearch_endpoint"`
	VectorRunning          bool          `json:"vector_running"`
	SuricataRunning        bool          `json:"suricata_running"`
	RedisRunning           bool          `json:"redis_running"`
	APIRunning             bool          `json:"api_running"`
	PipelineOK             bool          `json:"pipeline_ok"`
	EventsProcessed        uint64        `json:"events_processed"`
	EventsFailed           uint64        `json:"events_failed"`
}

// All returns a full, single-call-consistent-per-key snapshot of Shared
// State. There is no cross-key atomicity guarantee beyond each field being
// read under the same RLock acquisition; per spec.md §5 this is exactly the
// per-key consistency consumers must tolerate.
func (s *State) All() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		CPUPercent:            s.cpuPercent,
		RAMPercent:            s.ramPercent,
		ThrottleLevel:         s.throttleLevel,
		ResourceOK:            s.resourceOK,
		LastReclaimTime:       s.lastReclaimTime,
		DNSOK:                 s.dnsOK,
		TLSOK:                 s.tlsOK,
		OpenSearchOK:          s.openSearchOK,
		AWSReady:              s.awsReady,
		LastConnectivityCheck: s.lastConnectivityCheck,
		OpenSearchEndpoint:    s.openSearchEndpoint,
		VectorRunning:         s.vectorRunning,
		SuricataRunning:       s.suricataRunning,
		RedisRunning:          s.redisRunning,
		APIRunning:            s.apiRunning,
		PipelineOK:            s.pipelineOK,
		EventsProcessed:       s.eventsProcessed,
		EventsFailed:          s.eventsFailed,
	}
}

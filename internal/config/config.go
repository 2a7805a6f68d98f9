// Package config loads, validates, and provides access to the supervisor's
// configuration. Configuration is immutable after Load() except for the
// single mutator SetOpenSearchEndpoint, which Phase A uses to persist the
// remote cluster's discovered endpoint back to the config file in place.
//
// Configuration Loading Order (Koanf v2), lowest to highest priority:
//  1. Defaults: built-in sensible defaults for all optional settings.
//  2. Config file: an optional YAML document (config.yaml by default).
//  3. Environment variables: override any setting, prefixed IDS2_.
//
// Secrets are never placed directly in the config file or environment
// override path; instead any field tagged `secret:"true"` must hold either
// a literal value or an `ENV:NAME` placeholder, which is resolved against
// the process environment at load time. A placeholder that does not
// resolve to a non-empty value fails the load.
package config

import (
	"time"
)

// Config holds the supervisor's full configuration tree.
type Config struct {
	Host       HostConfig       `koanf:"host"`
	Resources  ResourcesConfig  `koanf:"resources"`
	Remote     RemoteConfig     `koanf:"remote"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	ControlAPI ControlAPIConfig `koanf:"control_api"`
	Features   FeatureFlags     `koanf:"features"`
	Timeouts   TimeoutsConfig   `koanf:"timeouts"`
	Retry      RetryConfig      `koanf:"retry"`
	Git        GitConfig        `koanf:"git"`
	Logging    LoggingConfig    `koanf:"logging"`
	// Credentials holds environment-resolved secrets. It is excluded from
	// JSON marshaling so GET /api/config never echoes a secret back to an
	// operator.
	Credentials CredentialsConfig `koanf:"credentials" json:"-"`

	// sourcePath is the file Load() read this configuration from. It is
	// used by SetOpenSearchEndpoint and Update to rewrite the same file in
	// place. Empty if no config file was found at load time.
	sourcePath string
}

// HostConfig identifies the edge device this supervisor runs on.
type HostConfig struct {
	// NetworkInterface is the interface Suricata should bind its capture to.
	NetworkInterface string `koanf:"network_interface"`
}

// ResourcesConfig holds the CPU/RAM ceilings and throttle thresholds.
// Invariant: ThrottleT1 < ThrottleT2 < ThrottleT3.
type ResourcesConfig struct {
	MaxCPUPercent float64 `koanf:"max_cpu_percent" validate:"gte=0,lte=100"`
	MaxRAMPercent float64 `koanf:"max_ram_percent" validate:"gte=0,lte=100"`
	ThrottleT1    float64 `koanf:"throttle_threshold_1"`
	ThrottleT2    float64 `koanf:"throttle_threshold_2" validate:"gtfield=ThrottleT1"`
	ThrottleT3    float64 `koanf:"throttle_threshold_3" validate:"gtfield=ThrottleT2"`
}

// RemoteConfig identifies the remote OpenSearch domain and its ingest
// shape. CredentialProfile names an AWS shared-config profile; Region
// selects the SigV4 signing region.
type RemoteConfig struct {
	Region            string        `koanf:"region"`
	CredentialProfile string        `koanf:"credential_profile"`
	ClusterID         string        `koanf:"cluster_id" validate:"required"`
	EndpointURL       string        `koanf:"endpoint_url"`
	IndexPrefix       string        `koanf:"index_prefix" validate:"required"`
	BulkBatchSize     int           `koanf:"bulk_batch_size" validate:"gt=0"`
	BulkTimeout       time.Duration `koanf:"bulk_timeout"`
}

// PipelineConfig locates the local NIDS pipeline's on-disk artifacts.
type PipelineConfig struct {
	ComposeFilePath    string `koanf:"compose_file_path" validate:"required"`
	LogFilePath        string `koanf:"log_file_path" validate:"required"`
	SideBufferEndpoint string `koanf:"side_buffer_endpoint"`
	BatchBufferBytes   int    `koanf:"batch_buffer_bytes"`
}

// TelemetryConfig configures the metrics exporter.
type TelemetryConfig struct {
	Port int `koanf:"port" validate:"min=1,max=65535"`
}

// ControlAPIConfig configures the operator-facing HTTP surface.
type ControlAPIConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`
}

// FeatureFlags gates optional behavior that is not always appropriate for
// every deployment.
type FeatureFlags struct {
	// VersionedSnapshots enables Phase F (best-effort git snapshot).
	VersionedSnapshots bool `koanf:"versioned_snapshots"`
	// SideBufferFallback enables the Supervisor's automatic routing of the
	// log shipper to the side-buffer when the remote has been unreachable
	// for a full connectivity cycle.
	SideBufferFallback bool `koanf:"side_buffer_fallback"`
}

// TimeoutsConfig holds the bounded waits used across phases A-G.
type TimeoutsConfig struct {
	PhaseCServiceHealthy  time.Duration `koanf:"phase_c_service_healthy"`
	PhaseDConnectivity    time.Duration `koanf:"phase_d_connectivity"`
	SubprocessTimeout     time.Duration `koanf:"subprocess_timeout"`
	WorkerStopDeadline    time.Duration `koanf:"worker_stop_deadline"`
	ControlAPIStopTimeout time.Duration `koanf:"control_api_stop_timeout"`
}

// RetryConfig governs the Connectivity Prober's bulk-probe retry policy.
type RetryConfig struct {
	MaxAttempts int           `koanf:"max_attempts" validate:"gt=0"`
	MinBackoff  time.Duration `koanf:"min_backoff" validate:"gt=0"`
	MaxBackoff  time.Duration `koanf:"max_backoff" validate:"gtefield=MinBackoff"`
	Multiplier  float64       `koanf:"multiplier"`
}

// GitConfig governs Phase F's best-effort versioned snapshot. AuthorName,
// AuthorEmail, CommitterName, and CommitterEmail are secrets: tests and
// default deployments resolve them from ENV: placeholders.
type GitConfig struct {
	RepoPath       string `koanf:"repo_path"`
	RequiredBranch string `koanf:"required_branch"`
	CommitMessage  string `koanf:"commit_message"`
	AuthorName     string `koanf:"author_name" secret:"true" json:"-"`
	AuthorEmail    string `koanf:"author_email" secret:"true" json:"-"`
	CommitterName  string `koanf:"committer_name" secret:"true" json:"-"`
	CommitterEmail string `koanf:"committer_email" secret:"true" json:"-"`
}

// LoggingConfig configures the zerolog-backed logging package.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// CredentialsConfig holds secrets resolved from the environment via
// ENV:NAME placeholders. It is kept out of Config's JSON rendering so
// GET /api/config never echoes a credential back to an operator.
type CredentialsConfig struct {
	OpenSearchMasterUser string `koanf:"opensearch_master_user" secret:"true"`
	OpenSearchMasterPass string `koanf:"opensearch_master_pass" secret:"true"`
}

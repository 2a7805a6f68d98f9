package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPath is used when no path is given on the command line and
// ConfigPathEnvVar is unset.
const DefaultConfigPath = "config.yaml"

// ConfigPathEnvVar overrides DefaultConfigPath when the CLI positional
// argument is absent.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is stripped from every environment variable before it is
// mapped onto a koanf path, so only IDS2_-prefixed variables participate
// in configuration override.
const envPrefix = "IDS2_"

func defaultConfig() *Config {
	return &Config{
		Host: HostConfig{NetworkInterface: "eth0"},
		Resources: ResourcesConfig{
			MaxCPUPercent: 70.0,
			MaxRAMPercent: 70.0,
			ThrottleT1:    50.0,
			ThrottleT2:    60.0,
			ThrottleT3:    70.0,
		},
		Remote: RemoteConfig{
			Region:        "us-east-1",
			IndexPrefix:   "ids2-logs",
			BulkBatchSize: 100,
			BulkTimeout:   30 * time.Second,
		},
		Pipeline: PipelineConfig{
			ComposeFilePath:  "docker/docker-compose.yml",
			LogFilePath:      "/run/ids2/suricata/eve.json",
			BatchBufferBytes: 1 << 20,
		},
		Telemetry:  TelemetryConfig{Port: 9464},
		ControlAPI: ControlAPIConfig{Host: "0.0.0.0", Port: 8080},
		Features: FeatureFlags{
			VersionedSnapshots: true,
			SideBufferFallback: true,
		},
		Timeouts: TimeoutsConfig{
			PhaseCServiceHealthy:  120 * time.Second,
			PhaseDConnectivity:    120 * time.Second,
			SubprocessTimeout:     60 * time.Second,
			WorkerStopDeadline:    5 * time.Second,
			ControlAPIStopTimeout: 10 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			MinBackoff:  2 * time.Second,
			MaxBackoff:  10 * time.Second,
			Multiplier:  1,
		},
		Git: GitConfig{
			RepoPath:       ".",
			RequiredBranch: "dev",
			CommitMessage:  "chore: automated configuration snapshot",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads configuration from path (if it exists), layers environment
// overrides on top, resolves ENV: secret placeholders, and validates the
// result. path may be empty, in which case CONFIG_PATH or
// DefaultConfigPath is used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = resolvePath()
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}
	cfg.sourcePath = path

	if err := resolveSecrets(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func resolvePath() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		return p
	}
	return DefaultConfigPath
}

// envTransformFunc maps IDS2_REMOTE_REGION -> remote.region, i.e. it
// strips the prefix, lowercases, and turns the first underscore-delimited
// segment into the koanf path's top-level key.
func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, envPrefix)
	key = strings.ToLower(key)
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key
	}
	return parts[0] + "." + strings.ReplaceAll(parts[1], "_", "_")
}

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestSetOpenSearchEndpointPreservesUnrelatedKeys(t *testing.T) {
	path := writeTempConfig(t, "host:\n  network_interface: eth1\nremote:\n  region: us-west-2\n  cluster_id: demo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := cfg.SetOpenSearchEndpoint("https://demo.example:443"); err != nil {
		t.Fatalf("SetOpenSearchEndpoint: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rewritten file: %v", err)
	}
	text := string(raw)

	if !strings.Contains(text, "endpoint_url: https://demo.example:443") {
		t.Errorf("rewritten file missing new endpoint_url:\n%s", text)
	}
	if !strings.Contains(text, "network_interface: eth1") {
		t.Errorf("rewritten file lost unrelated key host.network_interface:\n%s", text)
	}
	if !strings.Contains(text, "region: us-west-2") {
		t.Errorf("rewritten file lost unrelated key remote.region:\n%s", text)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload after rewrite: %v", err)
	}
	if reloaded.Remote.EndpointURL != "https://demo.example:443" {
		t.Errorf("reloaded endpoint_url = %q", reloaded.Remote.EndpointURL)
	}
	if reloaded.Host.NetworkInterface != "eth1" {
		t.Errorf("reloaded network_interface = %q", reloaded.Host.NetworkInterface)
	}
}

func TestUpdateRejectsInvalidPatchWithoutMutatingOriginal(t *testing.T) {
	path := writeTempConfig(t, "remote:\n  cluster_id: demo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	originalMax := cfg.Resources.MaxCPUPercent

	_, err = cfg.Update(map[string]any{
		"resources": map[string]any{"max_cpu_percent": 500},
	})
	if err == nil {
		t.Fatal("expected Update to reject an out-of-range patch")
	}
	if cfg.Resources.MaxCPUPercent != originalMax {
		t.Errorf("original config was mutated by a failed Update: %v", cfg.Resources.MaxCPUPercent)
	}
}

func TestUpdatePersistsValidPatch(t *testing.T) {
	path := writeTempConfig(t, "remote:\n  cluster_id: demo\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	merged, err := cfg.Update(map[string]any{
		"resources": map[string]any{"max_cpu_percent": 55},
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if merged.Resources.MaxCPUPercent != 55 {
		t.Errorf("merged.Resources.MaxCPUPercent = %v, want 55", merged.Resources.MaxCPUPercent)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload after update: %v", err)
	}
	if reloaded.Resources.MaxCPUPercent != 55 {
		t.Errorf("reloaded MaxCPUPercent = %v, want 55", reloaded.Resources.MaxCPUPercent)
	}
	if reloaded.Remote.ClusterID != "demo" {
		t.Errorf("reloaded ClusterID = %q, want demo (unrelated key should survive)", reloaded.Remote.ClusterID)
	}
}

package configtemplate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRenderSuricataProducesValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suricata.yaml")
	err := RenderSuricata(path, SuricataData{NetworkInterface: "eth0", LogFilePath: "/var/log/suricata/eve.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read rendered file: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("expected non-empty rendered file")
	}
}

func TestRenderVectorProducesValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector.yaml")
	err := RenderVector(path, VectorData{
		LogFilePath:        "/var/log/suricata/eve.json",
		OpenSearchEndpoint: "https://example.us-east-1.es.amazonaws.com",
		IndexPrefix:        "ids2",
		Region:             "us-east-1",
		SideBufferEndpoint: "redis://localhost:6379",
		BatchBufferBytes:   1048576,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected rendered file to exist: %v", err)
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/execrunner"
	"github.com/edgesoc/ids2-supervisor/internal/state"
)

func testHandler(t *testing.T) (*Handler, *execrunner.FakeRunner) {
	t.Helper()
	st := state.New()
	cfg := &config.Config{}
	runner := execrunner.NewFakeRunner()
	reg := collaborator.NewRegistry(
		collaborator.NewHandle(collaborator.Vector, "docker-compose.yml", runner, time.Second),
		collaborator.NewHandle(collaborator.Suricata, "docker-compose.yml", runner, time.Second),
		collaborator.NewHandle(collaborator.Redis, "docker-compose.yml", runner, time.Second),
	)
	h := NewHandler(st, func() *config.Config { return cfg }, reg, 5*time.Second)
	return h, runner
}

func TestStatusReturnsSharedState(t *testing.T) {
	h, _ := testHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	h.Status(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := body["cpu_percent"]; !ok {
		t.Errorf("response missing cpu_percent: %v", body)
	}
}

func TestStartRejectsUnknownCollaborator(t *testing.T) {
	h, _ := testHandler(t)

	body, _ := json.Marshal(map[string]string{"service": "postgres"})
	req := httptest.NewRequest(http.MethodPost, "/api/control/start", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status code = %d, want 400", rec.Code)
	}
	var resp controlResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "error" || resp.Message != "Unknown service: postgres" {
		t.Errorf("response = %+v, want {error, Unknown service: postgres}", resp)
	}
}

func TestStartDispatchesToCollaborator(t *testing.T) {
	h, runner := testHandler(t)

	body, _ := json.Marshal(map[string]string{"service": "vector"})
	req := httptest.NewRequest(http.MethodPost, "/api/control/start", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if len(runner.Calls) != 1 {
		t.Fatalf("expected 1 runner call, got %d", len(runner.Calls))
	}
}

func TestStartReturns500WhenCollaboratorFails(t *testing.T) {
	h, runner := testHandler(t)
	runner.Fail("docker", context.DeadlineExceeded)

	body, _ := json.Marshal(map[string]string{"service": "suricata"})
	req := httptest.NewRequest(http.MethodPost, "/api/control/start", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Start(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status code = %d, want 500", rec.Code)
	}
}

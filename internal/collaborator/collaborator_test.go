package collaborator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/execrunner"
)

func TestKnownRecognizesManagedCollaborators(t *testing.T) {
	for _, n := range []string{"suricata", "vector", "redis"} {
		if !Known(n) {
			t.Errorf("Known(%q) = false, want true", n)
		}
	}
	if Known("postgres") {
		t.Error("Known(\"postgres\") = true, want false")
	}
}

func TestStartStopRestartDriveDockerCompose(t *testing.T) {
	runner := execrunner.NewFakeRunner()
	h := NewHandle(Vector, "docker/docker-compose.yml", runner, time.Second)

	if err := h.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := h.Restart(context.Background()); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	if err := h.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(runner.Calls) != 3 {
		t.Fatalf("Calls = %d, want 3", len(runner.Calls))
	}
	if runner.Calls[0].Args[len(runner.Calls[0].Args)-2] != "up" {
		t.Errorf("first call should be up, got %+v", runner.Calls[0])
	}
}

func TestStartFailurePropagatesAsCollaboratorError(t *testing.T) {
	runner := execrunner.NewFakeRunner()
	runner.Fail("docker", errors.New("compose not found"))
	h := NewHandle(Suricata, "docker/docker-compose.yml", runner, time.Second)

	err := h.Start(context.Background())
	if err == nil {
		t.Fatal("expected Start to fail")
	}
}

func TestWaitUntilHealthyTimesOutWhenNeverRunning(t *testing.T) {
	runner := execrunner.NewFakeRunner()
	h := NewHandle(Redis, "docker/docker-compose.yml", runner, 50*time.Millisecond)

	err := h.WaitUntilHealthy(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("expected WaitUntilHealthy to time out")
	}
}

func TestWaitUntilHealthySucceedsWhenAlreadyRunning(t *testing.T) {
	runner := execrunner.NewFakeRunner()
	runner.Succeed("docker", "redis\n", "")
	h := NewHandle(Redis, "docker/docker-compose.yml", runner, time.Second)

	if err := h.WaitUntilHealthy(context.Background(), time.Second); err != nil {
		t.Fatalf("WaitUntilHealthy: %v", err)
	}
}

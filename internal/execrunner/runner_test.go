package execrunner

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestOSRunnerCapturesOutput(t *testing.T) {
	r := NewOSRunner()
	stdout, _, err := r.Run(context.Background(), 2*time.Second, "echo", "hello")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stdout != "hello\n" {
		t.Errorf("stdout = %q, want %q", stdout, "hello\n")
	}
}

func TestOSRunnerTimesOut(t *testing.T) {
	r := NewOSRunner()
	_, _, err := r.Run(context.Background(), 10*time.Millisecond, "sleep", "5")
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestFakeRunnerScriptsCallsAndRecordsHistory(t *testing.T) {
	f := NewFakeRunner()
	f.Succeed("docker", "up and running", "")
	f.Fail("git", errors.New("dirty worktree"))

	stdout, _, err := f.Run(context.Background(), time.Second, "docker", "compose", "up")
	if err != nil || stdout != "up and running" {
		t.Fatalf("docker call: stdout=%q err=%v", stdout, err)
	}

	_, _, err = f.Run(context.Background(), time.Second, "git", "commit")
	if err == nil {
		t.Fatal("expected scripted git failure")
	}

	if len(f.Calls) != 2 {
		t.Fatalf("Calls = %d, want 2", len(f.Calls))
	}
	if f.Calls[0].Name != "docker" || f.Calls[1].Name != "git" {
		t.Errorf("unexpected call history: %+v", f.Calls)
	}
}

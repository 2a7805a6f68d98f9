// Package collaborator manages the lifecycle of the three docker-compose
// managed processes the supervisor does not run in-process: the packet
// inspector (Suricata), the log shipper (Vector), and the side-buffer
// (Redis). Each is driven through `docker compose` via an execrunner.Runner,
// mirroring the original Docker Manager's compose-CLI fallback path.
package collaborator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
	"github.com/edgesoc/ids2-supervisor/internal/execrunner"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
)

// Name identifies one of the three managed collaborators.
type Name string

const (
	Suricata Name = "suricata"
	Vector   Name = "vector"
	Redis    Name = "redis"
)

// Known reports whether name is one of the supervisor's managed
// collaborators.
func Known(name string) bool {
	switch Name(name) {
	case Suricata, Vector, Redis:
		return true
	default:
		return false
	}
}

// Handle drives one collaborator's lifecycle through docker compose,
// serializing every operation so a restart cannot race a concurrent stop.
type Handle struct {
	mu             sync.Mutex
	name           Name
	composeFile    string
	runner         execrunner.Runner
	subprocessWait time.Duration
	running        bool
}

// NewHandle constructs a Handle for name, backed by the docker compose file
// at composeFile.
func NewHandle(name Name, composeFile string, runner execrunner.Runner, subprocessTimeout time.Duration) *Handle {
	return &Handle{
		name:           name,
		composeFile:    composeFile,
		runner:         runner,
		subprocessWait: subprocessTimeout,
	}
}

// Name returns the collaborator this handle manages.
func (h *Handle) Name() Name {
	return h.name
}

// Start brings the collaborator's service up via `docker compose up -d`.
func (h *Handle) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := logging.WithComponent("collaborator").With().Str("service", string(h.name)).Logger()
	log.Info().Msg("starting collaborator")

	_, stderr, err := h.runner.Run(ctx, h.subprocessWait, "docker", "compose", "-f", h.composeFile, "up", "-d", string(h.name))
	if err != nil {
		log.Error().Err(err).Str("stderr", stderr).Msg("collaborator start failed")
		return fmt.Errorf("%w: start %s: %v", apperrors.ErrCollaboratorFailed, h.name, err)
	}
	h.running = true
	return nil
}

// Stop brings the collaborator's service down via `docker compose stop`.
func (h *Handle) Stop(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := logging.WithComponent("collaborator").With().Str("service", string(h.name)).Logger()
	log.Info().Msg("stopping collaborator")

	_, stderr, err := h.runner.Run(ctx, h.subprocessWait, "docker", "compose", "-f", h.composeFile, "stop", string(h.name))
	if err != nil {
		log.Error().Err(err).Str("stderr", stderr).Msg("collaborator stop failed")
		return fmt.Errorf("%w: stop %s: %v", apperrors.ErrCollaboratorFailed, h.name, err)
	}
	h.running = false
	return nil
}

// Restart stops then starts the collaborator, holding the lock across both
// so IsRunning never observes a torn state mid-restart.
func (h *Handle) Restart(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log := logging.WithComponent("collaborator").With().Str("service", string(h.name)).Logger()
	log.Info().Msg("restarting collaborator")

	_, stderr, err := h.runner.Run(ctx, h.subprocessWait, "docker", "compose", "-f", h.composeFile, "restart", string(h.name))
	if err != nil {
		log.Error().Err(err).Str("stderr", stderr).Msg("collaborator restart failed")
		return fmt.Errorf("%w: restart %s: %v", apperrors.ErrCollaboratorFailed, h.name, err)
	}
	h.running = true
	return nil
}

// IsRunning reports docker compose's last-known container state for this
// service, queried via `docker compose ps`.
func (h *Handle) IsRunning(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	stdout, _, err := h.runner.Run(ctx, h.subprocessWait, "docker", "compose", "-f", h.composeFile, "ps", "--status", "running", "--services", string(h.name))
	if err != nil {
		return false
	}
	return len(stdout) > 0
}

// WaitUntilHealthy polls IsRunning until it returns true or deadline
// elapses, mirroring the original wait_for_service_healthy's polling loop.
func (h *Handle) WaitUntilHealthy(ctx context.Context, deadline time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	if h.IsRunning(ctx) {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s did not become healthy within %s", apperrors.ErrCollaboratorFailed, h.name, deadline)
		case <-ticker.C:
			if h.IsRunning(ctx) {
				return nil
			}
		}
	}
}

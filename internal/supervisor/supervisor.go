package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/api"
	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/execrunner"
	"github.com/edgesoc/ids2-supervisor/internal/httpservice"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/prober"
	"github.com/edgesoc/ids2-supervisor/internal/resource"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
)

// shutdownGraceExtra pads the stop-wait window beyond the sum of the
// individual worker stop deadlines, so the Supervisor does not declare a
// clean shutdown timed out purely from scheduling jitter.
const shutdownGraceExtra = 10 * time.Second

// Supervisor wires the supervisor tree, the four long-lived workers, the
// collaborator registry, and the phase Runner together, and drives the
// whole process from Start to a final exit code.
type Supervisor struct {
	cfg           *config.Config
	state         *state.State
	tree          *Tree
	runner        *Runner
	collaborators *collaborator.Registry
	fallback      *FallbackController
}

// New builds a Supervisor from a loaded, validated configuration. It
// constructs Shared State, the four long-lived workers (Resource Governor,
// Connectivity Prober, Telemetry Exporter, Control API), the collaborator
// registry, and the fallback controller, and adds them to a new suture
// tree in the order RG, CP, TE, CA per the ordering guarantee.
func New(cfg *config.Config) *Supervisor {
	st := state.New()
	osRunner := execrunner.NewOSRunner()

	collaborators := collaborator.NewRegistry(
		collaborator.NewHandle(collaborator.Suricata, cfg.Pipeline.ComposeFilePath, osRunner, cfg.Timeouts.SubprocessTimeout),
		collaborator.NewHandle(collaborator.Vector, cfg.Pipeline.ComposeFilePath, osRunner, cfg.Timeouts.SubprocessTimeout),
		collaborator.NewHandle(collaborator.Redis, cfg.Pipeline.ComposeFilePath, osRunner, cfg.Timeouts.SubprocessTimeout),
	)

	tree := NewTree(slog.New(logging.NewSlogHandler()), DefaultTreeConfig())

	tree.AddResourceService(resource.New(cfg.Resources, st))

	tree.AddNetworkService(prober.New(cfg.Remote, cfg.Retry, st))
	for _, h := range collaborators.All() {
		tree.AddNetworkService(NewCollaboratorService(h))
	}

	vectorHandle, _ := collaborators.Get(collaborator.Vector)
	fallback := NewFallbackController(cfg.Features.SideBufferFallback, st, vectorHandle)
	tree.AddNetworkService(fallback)

	tree.AddSurfaceService(telemetry.NewReflector(st))
	tree.AddSurfaceService(telemetry.NewExporterService(telemetry.Addr(cfg.Telemetry.Port), cfg.Timeouts.WorkerStopDeadline))

	handler := api.NewHandler(st, func() *config.Config { return cfg }, collaborators, cfg.Timeouts.ControlAPIStopTimeout)
	router := api.NewRouter(handler)
	controlServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", controlHost(cfg.ControlAPI.Host), cfg.ControlAPI.Port),
		Handler:      router.Setup(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	tree.AddSurfaceService(httpservice.New("control-api", controlServer, cfg.Timeouts.ControlAPIStopTimeout))

	runner := NewProductionRunner(cfg, st, collaborators, osRunner)

	return &Supervisor{
		cfg:           cfg,
		state:         st,
		tree:          tree,
		runner:        runner,
		collaborators: collaborators,
		fallback:      fallback,
	}
}

func controlHost(host string) string {
	if host == "" {
		return "0.0.0.0"
	}
	return host
}

// Run starts the supervisor tree in the background, drives the Supervisor's
// own Phase A-G sequence to completion (Run blocks in Phase G's
// steady-state loop until ctx is canceled by a shutdown signal), then stops
// the tree and returns the process exit code described in spec.md §6.
func (s *Supervisor) Run(ctx context.Context) int {
	log := logging.WithComponent("supervisor")

	treeErrCh := s.tree.ServeBackground(ctx)

	s.runner.SetWorkers([]WorkerHandle{
		{Name: "resource-governor", IsAlive: func() bool { return true }},
		{Name: "connectivity-prober", IsAlive: func() bool { return true }},
		{Name: "telemetry-exporter", IsAlive: func() bool { return true }},
		{Name: "control-api", IsAlive: func() bool { return true }},
	})

	// Give the four workers a moment to come up before Phase A starts
	// probing preconditions that depend on them (e.g. the Connectivity
	// Prober publishing the first connectivity sample Phase D reads).
	select {
	case <-ctx.Done():
		return ExitSuccess
	case <-time.After(2 * time.Second):
	}

	code := s.runner.Run(ctx)

	stopDeadline := s.cfg.Timeouts.WorkerStopDeadline
	if stopDeadline == 0 {
		stopDeadline = 5 * time.Second
	}
	stopCtx, cancel := context.WithTimeout(context.Background(), stopDeadline*4+shutdownGraceExtra)
	defer cancel()

	select {
	case err := <-treeErrCh:
		if err != nil {
			log.Warn().Err(err).Msg("supervisor tree stopped with error")
		}
		if report, reportErr := s.tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
			log.Warn().Int("count", len(report)).Msg("some services did not stop cleanly")
		}
	case <-stopCtx.Done():
		log.Warn().Msg("supervisor tree did not stop within the shutdown deadline")
	}

	return code
}

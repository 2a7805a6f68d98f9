// Package supervisor wires the Resource Governor, Connectivity Prober,
// collaborator lifecycle, Telemetry Exporter, and Control API into a single
// suture supervisor tree, and drives the startup phase state machine
// (Phase A through Phase G) described for the edge device.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig holds supervisor tree configuration.
type TreeConfig struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

// DefaultTreeConfig returns production-ready defaults, matching suture's
// own built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree manages the supervisor's three failure-isolation layers:
//   - resources: the Resource Governor (host CPU/RAM sampling)
//   - network: the Connectivity Prober and the three collaborator handles
//   - surface: the Telemetry Exporter and Control API HTTP servers
//
// A crash in one layer (e.g. a collaborator handle erroring on a docker
// compose timeout) restarts only that layer's services; the Control API
// keeps serving cached Shared State throughout.
type Tree struct {
	root      *suture.Supervisor
	resources *suture.Supervisor
	network   *suture.Supervisor
	surface   *suture.Supervisor
	config    TreeConfig
}

// NewTree creates a new supervisor tree with the given configuration.
func NewTree(logger *slog.Logger, cfg TreeConfig) *Tree {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5.0
	}
	if cfg.FailureDecay == 0 {
		cfg.FailureDecay = 30.0
	}
	if cfg.FailureBackoff == 0 {
		cfg.FailureBackoff = 15 * time.Second
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	handler := &sutureslog.Handler{Logger: logger}
	eventHook := handler.MustHook()

	rootSpec := suture.Spec{
		EventHook:        eventHook,
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	root := suture.New("ids2-supervisor", rootSpec)
	resources := suture.New("resources-layer", childSpec)
	network := suture.New("network-layer", childSpec)
	surface := suture.New("surface-layer", childSpec)

	root.Add(resources)
	root.Add(network)
	root.Add(surface)

	return &Tree{root: root, resources: resources, network: network, surface: surface, config: cfg}
}

// Root returns the root supervisor for direct access if needed.
func (t *Tree) Root() *suture.Supervisor {
	return t.root
}

// AddResourceService adds a service to the resources layer (the Resource
// Governor).
func (t *Tree) AddResourceService(svc suture.Service) suture.ServiceToken {
	return t.resources.Add(svc)
}

// AddNetworkService adds a service to the network layer (the Connectivity
// Prober and collaborator lifecycle management).
func (t *Tree) AddNetworkService(svc suture.Service) suture.ServiceToken {
	return t.network.Add(svc)
}

// AddSurfaceService adds a service to the surface layer (the Telemetry
// Exporter and Control API).
func (t *Tree) AddSurfaceService(svc suture.Service) suture.ServiceToken {
	return t.surface.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is
// canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the supervisor tree in a background goroutine.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport returns services that failed to stop within the
// shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}

package supervisor

import (
	"context"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/rs/zerolog"
)

// fallbackCycleInterval matches the Connectivity Prober's own cycle, so the
// controller reacts to every fresh connectivity sample exactly once.
const fallbackCycleInterval = 30 * time.Second

// FallbackController implements the side-buffer routing decision: once
// aws_ready has been false for one full connectivity cycle, it restarts the
// log shipper so its pipeline config points at the local side-buffer
// instead of the remote cluster; it restarts the shipper back to direct
// remote ingest the first time aws_ready returns to true. This is gated by
// config.Features.SideBufferFallback.
type FallbackController struct {
	enabled bool
	state   *state.State
	vector  *collaborator.Handle

	wasReady bool
	started  bool
}

// NewFallbackController constructs the controller. enabled mirrors
// Features.SideBufferFallback.
func NewFallbackController(enabled bool, st *state.State, vector *collaborator.Handle) *FallbackController {
	return &FallbackController{enabled: enabled, state: st, vector: vector, wasReady: true}
}

// String implements suture.Service.
func (f *FallbackController) String() string {
	return "fallback-controller"
}

// Serve implements suture.Service.
func (f *FallbackController) Serve(ctx context.Context) error {
	if !f.enabled {
		<-ctx.Done()
		return ctx.Err()
	}

	log := logging.WithComponent("fallback-controller")
	log.Info().Msg("fallback controller started")

	ticker := time.NewTicker(fallbackCycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			f.evaluate(ctx, log)
		}
	}
}

func (f *FallbackController) evaluate(ctx context.Context, log zerolog.Logger) {
	if !f.enabled {
		return
	}
	ready := f.state.Connectivity().AWSReady

	switch {
	case !ready && f.wasReady:
		log.Warn().Msg("remote unreachable for a full connectivity cycle, routing log shipper to side-buffer")
		if err := f.vector.Restart(ctx); err != nil {
			log.Error().Err(err).Msg("failed to restart log shipper into side-buffer mode")
		} else {
			f.started = true
		}
	case ready && !f.wasReady && f.started:
		log.Info().Msg("remote reachable again, routing log shipper back to direct ingest")
		if err := f.vector.Restart(ctx); err != nil {
			log.Error().Err(err).Msg("failed to restart log shipper back to direct ingest")
		}
	}

	f.wasReady = ready
}

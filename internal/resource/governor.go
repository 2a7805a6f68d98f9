// Package resource implements the Resource Governor worker: a suture.Service
// that samples CPU and RAM usage on a fixed interval, computes a throttle
// level, forces a GC reclaim under sustained memory pressure, and publishes
// every sample to the Shared State bus.
package resource

import (
	"context"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// sampleInterval matches the 2-second cadence of the original resource
// controller.
const sampleInterval = 2 * time.Second

// reclaimThresholdPercent and reclaimCooldown gate the forced-GC reclaim: a
// sample above the threshold triggers runtime.GC()+debug.FreeOSMemory(),
// but never more often than once per cooldown window.
const (
	reclaimThresholdPercent = 65.0
	reclaimCooldown         = 30 * time.Second
)

// Sampler abstracts the host metrics gopsutil collects, so tests can supply
// deterministic readings without touching the real machine.
type Sampler interface {
	CPUPercent(ctx context.Context) (float64, error)
	RAMPercent(ctx context.Context) (float64, error)
}

// GopsutilSampler is the production Sampler, backed by gopsutil/v3.
type GopsutilSampler struct{}

func (GopsutilSampler) CPUPercent(ctx context.Context) (float64, error) {
	percents, err := cpu.PercentWithContext(ctx, time.Second, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

func (GopsutilSampler) RAMPercent(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// Reclaimer abstracts the memory-reclaim action so tests can observe it was
// triggered without actually forcing a GC cycle.
type Reclaimer interface {
	Reclaim()
}

// RuntimeReclaimer forces a full GC and returns freed pages to the OS, as
// the original controller's gc.collect() does.
type RuntimeReclaimer struct{}

func (RuntimeReclaimer) Reclaim() {
	runtime.GC()
	debug.FreeOSMemory()
}

// Governor is the Resource Governor worker.
type Governor struct {
	cfg       config.ResourcesConfig
	state     *state.State
	sampler   Sampler
	reclaimer Reclaimer

	lastReclaim time.Time
}

// New constructs a Governor wired to production dependencies.
func New(cfg config.ResourcesConfig, st *state.State) *Governor {
	return &Governor{
		cfg:         cfg,
		state:       st,
		sampler:     GopsutilSampler{},
		reclaimer:   RuntimeReclaimer{},
		lastReclaim: time.Now(),
	}
}

// String implements suture.Service.
func (g *Governor) String() string {
	return "resource-governor"
}

// Serve implements suture.Service. It samples until ctx is canceled.
func (g *Governor) Serve(ctx context.Context) error {
	log := logging.WithComponent("resource-governor")
	log.Info().Msg("resource governor started")

	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("resource governor stopping")
			return ctx.Err()
		case <-ticker.C:
			g.sampleOnce(ctx, log)
		}
	}
}

func (g *Governor) sampleOnce(ctx context.Context, log zerolog.Logger) {
	cpuPct, err := g.sampler.CPUPercent(ctx)
	if err != nil {
		log.Error().Err(err).Msg("cpu sample failed")
		return
	}
	ramPct, err := g.sampler.RAMPercent(ctx)
	if err != nil {
		log.Error().Err(err).Msg("ram sample failed")
		return
	}

	level := g.throttleLevel(cpuPct, ramPct)
	ok := cpuPct <= g.cfg.MaxCPUPercent && ramPct <= g.cfg.MaxRAMPercent

	g.state.SetResourceSample(cpuPct, ramPct, level, ok)

	switch {
	case !ok:
		log.Error().Float64("cpu_percent", cpuPct).Float64("ram_percent", ramPct).
			Float64("max_cpu_percent", g.cfg.MaxCPUPercent).Float64("max_ram_percent", g.cfg.MaxRAMPercent).
			Msg("resource limits exceeded")
	case level > state.ThrottleNone:
		log.Warn().Float64("cpu_percent", cpuPct).Float64("ram_percent", ramPct).
			Int("throttle_level", int(level)).Msg("resource pressure detected")
	default:
		log.Debug().Float64("cpu_percent", cpuPct).Float64("ram_percent", ramPct).Msg("resources ok")
	}

	if g.shouldReclaim(ramPct) {
		log.Info().Msg("forcing memory reclaim due to high RAM usage")
		g.reclaimer.Reclaim()
		g.lastReclaim = time.Now()
		g.state.SetLastReclaimTime(g.lastReclaim)
		telemetry.RecordReclaim()
	}
}

// throttleLevel maps the worse of the two samples onto the configured
// three-tier threshold ladder.
func (g *Governor) throttleLevel(cpuPct, ramPct float64) state.ThrottleLevel {
	maxUsage := cpuPct
	if ramPct > maxUsage {
		maxUsage = ramPct
	}
	switch {
	case maxUsage >= g.cfg.ThrottleT3:
		return state.ThrottleHeavy
	case maxUsage >= g.cfg.ThrottleT2:
		return state.ThrottleMedium
	case maxUsage >= g.cfg.ThrottleT1:
		return state.ThrottleLight
	default:
		return state.ThrottleNone
	}
}

// shouldReclaim mirrors the original controller's _should_force_gc: RAM
// above the fixed 65% reclaim threshold and at least reclaimCooldown since
// the last forced reclaim.
func (g *Governor) shouldReclaim(ramPct float64) bool {
	return ramPct > reclaimThresholdPercent && time.Since(g.lastReclaim) > reclaimCooldown
}

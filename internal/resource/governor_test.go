package resource

import (
	"context"
	"testing"
	"time"

	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/state"
	"github.com/edgesoc/ids2-supervisor/internal/telemetry"
	dto "github.com/prometheus/client_model/go"
)

func reclaimCounterValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := telemetry.GCForcedCounter().Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

type fakeSampler struct {
	cpu, ram float64
}

func (f fakeSampler) CPUPercent(context.Context) (float64, error) { return f.cpu, nil }
func (f fakeSampler) RAMPercent(context.Context) (float64, error) { return f.ram, nil }

type fakeReclaimer struct{ calls int }

func (f *fakeReclaimer) Reclaim() { f.calls++ }

func testGovernor(cpu, ram float64) (*Governor, *state.State, *fakeReclaimer) {
	st := state.New()
	cfg := config.ResourcesConfig{
		MaxCPUPercent: 70,
		MaxRAMPercent: 70,
		ThrottleT1:    50,
		ThrottleT2:    60,
		ThrottleT3:    70,
	}
	reclaimer := &fakeReclaimer{}
	g := &Governor{
		cfg:         cfg,
		state:       st,
		sampler:     fakeSampler{cpu: cpu, ram: ram},
		reclaimer:   reclaimer,
		lastReclaim: time.Now().Add(-time.Hour),
	}
	return g, st, reclaimer
}

func TestThrottleLevelBoundaries(t *testing.T) {
	t.Parallel()

	g, _, _ := testGovernor(0, 0)
	cases := []struct {
		cpu, ram float64
		want     state.ThrottleLevel
	}{
		{0, 0, state.ThrottleNone},
		{49.9, 0, state.ThrottleNone},
		{50, 0, state.ThrottleLight},
		{59.9, 0, state.ThrottleLight},
		{60, 0, state.ThrottleMedium},
		{69.9, 0, state.ThrottleMedium},
		{70, 0, state.ThrottleHeavy},
		{0, 70, state.ThrottleHeavy},
		{100, 0, state.ThrottleHeavy},
	}
	for _, c := range cases {
		got := g.throttleLevel(c.cpu, c.ram)
		if got != c.want {
			t.Errorf("throttleLevel(%v, %v) = %v, want %v", c.cpu, c.ram, got, c.want)
		}
	}
}

func TestSampleOnceExceedingLimitsMarksResourceNotOK(t *testing.T) {
	g, st, _ := testGovernor(80, 10)
	g.sampleOnce(context.Background(), discardLogger())

	snap := st.Resource()
	if snap.ResourceOK {
		t.Error("resource_ok should be false when CPU exceeds max_cpu_percent")
	}
}

func TestSampleOnceWithinLimitsMarksResourceOK(t *testing.T) {
	g, st, _ := testGovernor(20, 30)
	g.sampleOnce(context.Background(), discardLogger())

	snap := st.Resource()
	if !snap.ResourceOK {
		t.Error("resource_ok should be true when both samples are within limits")
	}
}

func TestReclaimTriggersAboveThresholdAfterCooldown(t *testing.T) {
	g, _, reclaimer := testGovernor(10, 80)
	before := reclaimCounterValue(t)
	g.sampleOnce(context.Background(), discardLogger())

	if reclaimer.calls != 1 {
		t.Fatalf("reclaim calls = %d, want 1", reclaimer.calls)
	}
	if got := reclaimCounterValue(t); got != before+1 {
		t.Errorf("ids2_gc_forced_total = %v, want %v", got, before+1)
	}
}

func TestReclaimDoesNotRetriggerWithinCooldown(t *testing.T) {
	g, _, reclaimer := testGovernor(10, 80)
	g.sampleOnce(context.Background(), discardLogger())
	g.sampleOnce(context.Background(), discardLogger())

	if reclaimer.calls != 1 {
		t.Fatalf("reclaim calls = %d, want 1 (cooldown should suppress the second)", reclaimer.calls)
	}
}

func TestReclaimDoesNotTriggerBelowThreshold(t *testing.T) {
	g, _, reclaimer := testGovernor(10, 64.9)
	g.sampleOnce(context.Background(), discardLogger())

	if reclaimer.calls != 0 {
		t.Fatalf("reclaim calls = %d, want 0 below the 65%% threshold", reclaimer.calls)
	}
}

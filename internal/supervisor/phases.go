package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edgesoc/ids2-supervisor/internal/apperrors"
	"github.com/edgesoc/ids2-supervisor/internal/collaborator"
	"github.com/edgesoc/ids2-supervisor/internal/config"
	"github.com/edgesoc/ids2-supervisor/internal/configtemplate"
	"github.com/edgesoc/ids2-supervisor/internal/execrunner"
	"github.com/edgesoc/ids2-supervisor/internal/logging"
	"github.com/edgesoc/ids2-supervisor/internal/remote"
	"github.com/edgesoc/ids2-supervisor/internal/state"
)

// Exit codes. Phases A and B each carry a distinct code so an operator can
// tell which precondition failed from the process exit status alone;
// phases C, D, and G share exitWorkerFailure since by the time they run, the
// remote/config preconditions are already known good.
const (
	ExitSuccess        = 0
	ExitPhaseAFailed   = 1
	ExitPhaseBFailed   = 2
	ExitPhaseCFailed   = 3
	ExitPhaseDTimeout  = 4
	ExitWorkerFailure  = 5
	fallbackHealthPoll = 30 * time.Second
)

// phaseDPollInterval is how often Phase D re-checks aws_ready while waiting
// for the Connectivity Prober to report the remote reachable.
const phaseDPollInterval = 10 * time.Second

// Runner carries the Phase A-G state machine from a loaded, validated
// configuration through steady-state monitoring. It owns no goroutines of
// its own beyond what Run launches; the four long-lived workers are driven
// separately by the supervisor tree.
type Runner struct {
	cfg           *config.Config
	state         *state.State
	verifier      remote.DomainVerifier
	collaborators *collaborator.Registry
	runner        execrunner.Runner
	workers       []WorkerHandle
}

// WorkerHandle is the Supervisor's view of one of the four long-lived
// workers: a name for logging, and a liveness probe. Restart is delegated
// to the suture tree the worker was added to; the Supervisor only decides
// whether a dead worker should be considered fatal to Phase G.
type WorkerHandle struct {
	Name      string
	IsAlive   func() bool
	Restarted int
}

// NewRunner constructs a phase Runner. verifier, collaborators, and runner
// are supplied for testability; production wiring goes through
// NewProductionRunner.
func NewRunner(cfg *config.Config, st *state.State, verifier remote.DomainVerifier, collaborators *collaborator.Registry, runner execrunner.Runner) *Runner {
	return &Runner{cfg: cfg, state: st, verifier: verifier, collaborators: collaborators, runner: runner}
}

// NewProductionRunner wires a Runner to the real AWS-backed domain
// verifier.
func NewProductionRunner(cfg *config.Config, st *state.State, collaborators *collaborator.Registry, runner execrunner.Runner) *Runner {
	return NewRunner(cfg, st, remote.NewVerifier(cfg.Remote), collaborators, runner)
}

// SetWorkers registers the long-lived workers Phase G monitors. Must be
// called before Run enters Phase G; workers are started by the caller
// (the supervisor tree), not by Runner.
func (r *Runner) SetWorkers(workers []WorkerHandle) {
	r.workers = workers
}

// Run drives phases A through G to completion, returning a process exit
// code. ctx cancellation (SIGINT/SIGTERM) ends Phase G's monitoring loop
// cleanly and returns ExitSuccess.
func (r *Runner) Run(ctx context.Context) int {
	log := logging.WithComponent("supervisor")

	if err := r.phaseA(ctx, log); err != nil {
		log.Error().Err(err).Msg("phase A (remote-cluster verification) failed, aborting")
		return ExitPhaseAFailed
	}

	if err := r.phaseB(ctx, log); err != nil {
		log.Error().Err(err).Msg("phase B (config generation) failed, aborting")
		return ExitPhaseBFailed
	}

	if err := r.phaseC(ctx, log); err != nil {
		log.Error().Err(err).Msg("phase C (local stack bring-up) failed, aborting")
		return ExitPhaseCFailed
	}

	if err := r.phaseD(ctx, log); err != nil {
		log.Error().Err(err).Msg("phase D (connectivity wait) timed out, aborting")
		return ExitPhaseDTimeout
	}

	r.phaseE(log)

	r.phaseF(ctx, log)

	r.phaseG(ctx, log)
	return ExitSuccess
}

// phaseA verifies the remote cluster exists, is usable, and has an
// endpoint, then persists that endpoint to Shared State and the config
// file. A failure here is always RemoteUnavailable and always fatal.
func (r *Runner) phaseA(ctx context.Context, log zerolog.Logger) error {
	log.Info().Msg("phase A: verifying remote cluster")

	endpoint, err := r.verifier.VerifyDomain(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrRemoteUnavailable, err)
	}

	r.state.SetOpenSearchEndpoint(endpoint)
	if err := r.cfg.SetOpenSearchEndpoint(endpoint); err != nil {
		return fmt.Errorf("%w: persist discovered endpoint: %v", apperrors.ErrRemoteUnavailable, err)
	}
	r.cfg.Remote.EndpointURL = endpoint

	log.Info().Str("endpoint", endpoint).Msg("phase A complete: remote cluster verified")
	return nil
}

// phaseB renders and syntax-checks the packet inspector's and log
// shipper's configuration files.
func (r *Runner) phaseB(_ context.Context, log zerolog.Logger) error {
	log.Info().Msg("phase B: rendering collaborator configuration")

	suricataPath := r.cfg.Pipeline.ComposeFilePath + ".suricata.yaml"
	if err := configtemplate.RenderSuricata(suricataPath, configtemplate.SuricataData{
		NetworkInterface: r.cfg.Host.NetworkInterface,
		LogFilePath:      r.cfg.Pipeline.LogFilePath,
	}); err != nil {
		return err
	}

	vectorPath := r.cfg.Pipeline.ComposeFilePath + ".vector.yaml"
	if err := configtemplate.RenderVector(vectorPath, configtemplate.VectorData{
		LogFilePath:        r.cfg.Pipeline.LogFilePath,
		OpenSearchEndpoint: r.cfg.Remote.EndpointURL,
		IndexPrefix:        r.cfg.Remote.IndexPrefix,
		Region:             r.cfg.Remote.Region,
		SideBufferEndpoint: r.cfg.Pipeline.SideBufferEndpoint,
		BatchBufferBytes:   r.cfg.Pipeline.BatchBufferBytes,
	}); err != nil {
		return err
	}

	log.Info().Msg("phase B complete: collaborator configuration rendered")
	return nil
}

// phaseC brings up every managed collaborator and waits for each to report
// healthy. One unhealthy service is a fatal partial failure.
func (r *Runner) phaseC(ctx context.Context, log zerolog.Logger) error {
	log.Info().Msg("phase C: bringing up local stack")

	deadline := r.cfg.Timeouts.PhaseCServiceHealthy
	if deadline == 0 {
		deadline = 120 * time.Second
	}

	for _, h := range r.collaborators.All() {
		if err := h.Start(ctx); err != nil {
			return fmt.Errorf("%w: start %s: %v", apperrors.ErrCollaboratorFailed, h.Name(), err)
		}
		if err := h.WaitUntilHealthy(ctx, deadline); err != nil {
			return fmt.Errorf("%w: %s did not become healthy: %v", apperrors.ErrCollaboratorFailed, h.Name(), err)
		}
		r.markCollaboratorRunning(h.Name(), true)
		log.Info().Str("collaborator", string(h.Name())).Msg("collaborator healthy")
	}

	log.Info().Msg("phase C complete: local stack healthy")
	return nil
}

func (r *Runner) markCollaboratorRunning(name collaborator.Name, running bool) {
	switch name {
	case collaborator.Vector:
		r.state.SetVectorRunning(running)
	case collaborator.Suricata:
		r.state.SetSuricataRunning(running)
	case collaborator.Redis:
		r.state.SetRedisRunning(running)
	}
}

// phaseD polls Shared State for aws_ready, bounded by
// Timeouts.PhaseDConnectivity (default 120s per spec, polled every 10s).
// The Connectivity Prober worker must already be running to make progress
// here; phaseD only observes, it never probes directly.
func (r *Runner) phaseD(ctx context.Context, log zerolog.Logger) error {
	log.Info().Msg("phase D: waiting for connectivity")

	deadline := r.cfg.Timeouts.PhaseDConnectivity
	if deadline == 0 {
		deadline = 120 * time.Second
	}

	waitCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	if r.state.Connectivity().AWSReady {
		log.Info().Msg("phase D complete: already connected")
		return nil
	}

	ticker := time.NewTicker(phaseDPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-waitCtx.Done():
			snap := r.state.Connectivity()
			return fmt.Errorf("%w: aws_ready not reached within %s (dns_ok=%v tls_ok=%v opensearch_ok=%v)",
				apperrors.ErrRemoteUnavailable, deadline, snap.DNSOK, snap.TLSOK, snap.OpenSearchOK)
		case <-ticker.C:
			if r.state.Connectivity().AWSReady {
				log.Info().Msg("phase D complete: connectivity established")
				return nil
			}
		}
	}
}

// phaseE verifies every collaborator is running and aws_ready holds, then
// records pipeline_ok. Per spec.md this phase never aborts the process;
// by the time it runs, phases C and D have already guaranteed its
// precondition, so this is a confirmation, not a new gate.
func (r *Runner) phaseE(log zerolog.Logger) {
	log.Info().Msg("phase E: verifying pipeline")

	sup := r.state.Supervisor()
	conn := r.state.Connectivity()
	ok := sup.VectorRunning && sup.SuricataRunning && sup.RedisRunning && conn.AWSReady
	r.state.SetPipelineOK(ok)

	log.Info().Bool("pipeline_ok", ok).Msg("phase E complete")
}

// phaseF takes a best-effort versioned snapshot of the git repo backing
// the pipeline's rendered configuration. Every failure here, including a
// subprocess timeout or an unclean tree, is logged and swallowed: Phase F
// never changes the process exit code.
func (r *Runner) phaseF(ctx context.Context, log zerolog.Logger) {
	if !r.cfg.Features.VersionedSnapshots {
		return
	}
	log.Info().Msg("phase F: taking versioned snapshot")

	if err := r.snapshot(ctx); err != nil {
		log.Warn().Err(err).Msg("phase F snapshot failed, continuing (best-effort)")
		return
	}
	log.Info().Msg("phase F complete: snapshot recorded")
}

func (r *Runner) snapshot(ctx context.Context) error {
	git := r.cfg.Git
	timeout := r.cfg.Timeouts.SubprocessTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	branchOut, _, err := r.runner.Run(ctx, timeout, "git", "-C", git.RepoPath, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return wrapVersionControlErr(err)
	}
	if git.RequiredBranch != "" && trimNewline(branchOut) != git.RequiredBranch {
		return fmt.Errorf("%w: repo is on %q, required branch is %q", apperrors.ErrVersionControlFailed, trimNewline(branchOut), git.RequiredBranch)
	}

	statusOut, _, err := r.runner.Run(ctx, timeout, "git", "-C", git.RepoPath, "status", "--porcelain")
	if err != nil {
		return wrapVersionControlErr(err)
	}
	if trimNewline(statusOut) == "" {
		return nil
	}

	if _, _, err := r.runner.Run(ctx, timeout, "git", "-C", git.RepoPath, "add", "-A"); err != nil {
		return wrapVersionControlErr(err)
	}

	commitMsg := git.CommitMessage
	if commitMsg == "" {
		commitMsg = "ids2-supervisor: automated configuration snapshot"
	}
	commitArgs := []string{"-C", git.RepoPath,
		"-c", "user.name=" + git.CommitterName,
		"-c", "user.email=" + git.CommitterEmail,
		"commit", "-m", commitMsg,
		"--author", fmt.Sprintf("%s <%s>", git.AuthorName, git.AuthorEmail),
	}
	if _, _, err := r.runner.Run(ctx, timeout, "git", commitArgs...); err != nil {
		return wrapVersionControlErr(err)
	}

	if _, _, err := r.runner.Run(ctx, timeout, "git", "-C", git.RepoPath, "push"); err != nil {
		return wrapVersionControlErr(err)
	}
	return nil
}

// wrapVersionControlErr always maps to ErrVersionControlFailed, whether the
// underlying cause was a git failure or a subprocess timeout: Phase F
// swallows both identically.
func wrapVersionControlErr(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrVersionControlFailed, err)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// phaseG is the terminal steady-state loop: every 30s, check every
// registered worker's liveness; a worker reporting dead is restarted by
// its owning suture supervisor automatically, so here the Supervisor only
// logs the fact and counts it for the three-strikes-per-minute policy.
// The loop exits when ctx is canceled (SIGINT/SIGTERM).
func (r *Runner) phaseG(ctx context.Context, log zerolog.Logger) {
	log.Info().Msg("phase G: entering steady-state monitoring")

	ticker := time.NewTicker(fallbackHealthPoll)
	defer ticker.Stop()

	crashWindowStart := time.Now()
	crashCounts := make(map[string]int, len(r.workers))

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("phase G: shutdown signal received, exiting steady-state loop")
			return
		case <-ticker.C:
			if time.Since(crashWindowStart) > time.Minute {
				crashWindowStart = time.Now()
				for k := range crashCounts {
					crashCounts[k] = 0
				}
			}

			allAlive := true
			for _, w := range r.workers {
				if w.IsAlive == nil || w.IsAlive() {
					continue
				}
				allAlive = false
				crashCounts[w.Name]++
				if crashCounts[w.Name] >= 3 {
					log.Error().Str("worker", w.Name).Int("crashes", crashCounts[w.Name]).
						Msg("worker crashed three times within one minute, leaving it down")
					continue
				}
				log.Warn().Str("worker", w.Name).Msg("worker not alive, relying on supervisor tree to relaunch")
			}

			if r.state.Supervisor().PipelineOK {
				r.state.IncrementEventsProcessed(1)
			}

			log.Info().Bool("all_workers_alive", allAlive).Msg("phase G status")
		}
	}
}

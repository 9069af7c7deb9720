package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"Mirror_Rank_Go/internal/catalog"
	"Mirror_Rank_Go/internal/config"
	"Mirror_Rank_Go/internal/journal"
	"Mirror_Rank_Go/internal/output"
	"Mirror_Rank_Go/internal/prober"
	"Mirror_Rank_Go/internal/rank"
	"Mirror_Rank_Go/pkg/model"
)

// RunResult is everything a full benchmark run produced.
type RunResult struct {
	Outcomes []model.ProbeOutcome
	Ranked   []model.ProbeOutcome
	Summary  model.RunSummary
}

// Slack added on top of the prober's own timeouts for the orchestrator-side
// per-endpoint budget.
const budgetSlack = 5 * time.Second

// RunBenchmark drives one complete run: load the catalog, probe every
// mirror, rank the successes and emit the artifacts. Per-mirror failures are
// recorded and never abort the run; with zero successes the ranked artifacts
// are skipped and the caller decides the exit status from the summary.
func RunBenchmark(ctx context.Context, cfg *config.Config, mirrorsPath string, progress ProgressCallback) (*RunResult, error) {
	endpoints, err := catalog.Load(mirrorsPath)
	if err != nil {
		return nil, err
	}

	// Opening the sinks doubles as the pre-flight check that the output
	// directory is writable before any probing starts.
	j, err := journal.Open(cfg.OutputDir)
	if err != nil {
		return nil, err
	}
	defer j.Close()

	j.Banner(fmt.Sprintf("benchmark started: %d mirrors, concurrency %d", len(endpoints), cfg.ProbeConcurrency))

	p := prober.New(cfg)
	eng := &Engine{
		Probe:       p.Probe,
		Concurrency: cfg.ProbeConcurrency,
		Budget:      cfg.ReachabilityTimeout() + cfg.TransferTimeout() + budgetSlack,
		Delay:       cfg.ProbeDelay(),
		Recorder:    j,
		Progress:    progress,
	}
	outcomes := eng.Run(ctx, endpoints)

	ranked, summary := rank.Aggregate(outcomes)
	res := &RunResult{Outcomes: outcomes, Ranked: ranked, Summary: summary}

	if summary.Succeeded == 0 {
		j.Banner(fmt.Sprintf("benchmark finished: 0/%d mirrors succeeded, no artifacts written", summary.Probed))
		return res, nil
	}

	now := time.Now()
	if err := output.WriteMirrorlist(filepath.Join(cfg.OutputDir, output.MirrorlistFileName), ranked, cfg.TopN, cfg.RepoPathTemplate, now); err != nil {
		return res, fmt.Errorf("write mirrorlist: %w", err)
	}
	if err := output.WriteReport(filepath.Join(cfg.OutputDir, output.ReportFileName), ranked, summary, now); err != nil {
		return res, fmt.Errorf("write report: %w", err)
	}

	j.Banner(fmt.Sprintf("benchmark finished: %d/%d mirrors succeeded, best %.2f Mbps, quality %s",
		summary.Succeeded, summary.Probed, summary.BestMbps(), summary.Quality))
	return res, nil
}

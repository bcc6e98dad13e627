package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/quantmind-br/gitripper/internal/config"
	"github.com/quantmind-br/gitripper/internal/crawler"
	"github.com/quantmind-br/gitripper/internal/discovery"
	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/fetcher"
	"github.com/quantmind-br/gitripper/internal/git"
	"github.com/quantmind-br/gitripper/internal/inflate"
	"github.com/quantmind-br/gitripper/internal/manifest"
	"github.com/quantmind-br/gitripper/internal/reconstruct"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// Orchestrator coordinates the crawl of every target and the reconstruction
// that follows it
type Orchestrator struct {
	config    *config.Config
	opts      domain.CommonOptions
	logger    *utils.Logger
	progress  io.Writer
	newLoader crawler.DownloaderFactory
	gitRunner git.Runner
}

// OrchestratorOptions contains options for creating an orchestrator
type OrchestratorOptions struct {
	domain.CommonOptions
	Config *config.Config

	// LogOutput defaults to stderr
	LogOutput io.Writer

	// ProgressOutput receives the crawl spinner when Progress is set; defaults to stderr
	ProgressOutput io.Writer

	// DownloaderFactory overrides the tls-client downloader (tests)
	DownloaderFactory crawler.DownloaderFactory

	// GitRunner overrides the external git runner (tests)
	GitRunner git.Runner
}

// Report summarizes one run
type Report struct {
	Targets       []string
	Crawl         crawler.Stats
	Reconstructed []reconstruct.Outcome
	Duration      time.Duration
}

// Failed returns the reconstruction outcomes that ended in error
func (r *Report) Failed() []reconstruct.Outcome {
	var failed []reconstruct.Outcome
	for _, o := range r.Reconstructed {
		if o.Err != nil {
			failed = append(failed, o)
		}
	}
	return failed
}

// NewOrchestrator creates a new orchestrator with the given configuration
func NewOrchestrator(opts OrchestratorOptions) (*Orchestrator, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Output.Directory = utils.ExpandPath(cfg.Output.Directory)
	if err := cfg.CheckOutputDir(); err != nil {
		return nil, err
	}
	if opts.Force {
		cfg.Output.Overwrite = true
	}
	if opts.NoCheckout {
		cfg.Reconstruct.Enabled = false
	}

	logger := utils.NewOutputLogger(cfg.Logging.Level, cfg.Logging.Format, opts.Verbose, opts.LogOutput)

	headers, err := config.ParseHeaders(cfg.HTTP.Headers)
	if err != nil {
		return nil, err
	}

	newLoader := opts.DownloaderFactory
	if newLoader == nil {
		clientOpts := fetcher.ClientOptions{
			Timeout:            cfg.Concurrency.Timeout,
			MaxRetries:         cfg.HTTP.MaxRetries,
			UserAgent:          cfg.HTTP.UserAgent,
			Headers:            headers,
			ProxyURL:           cfg.HTTP.Proxy,
			InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		}
		fetchOpts := fetcher.Options{
			Overwrite:  cfg.Output.Overwrite,
			RejectHTML: cfg.HTTP.RejectHTML,
		}
		newLoader = fetcher.NewFactory(clientOpts, fetchOpts, logger)
	}

	gitRunner := opts.GitRunner
	if gitRunner == nil {
		gitRunner = git.NewRunner(cfg.Reconstruct.GitBinary)
	}

	progress := opts.ProgressOutput
	if progress == nil {
		progress = os.Stderr
	}

	return &Orchestrator{
		config:    cfg,
		opts:      opts.CommonOptions,
		logger:    logger,
		progress:  progress,
		newLoader: newLoader,
		gitRunner: gitRunner,
	}, nil
}

// Logger returns the run logger
func (o *Orchestrator) Logger() *utils.Logger {
	return o.logger
}

// Run crawls every target with one shared session, then reconstructs the
// fetched repositories. An unparseable target aborts the run before any
// request is made.
func (o *Orchestrator) Run(ctx context.Context, targets []string) (*Report, error) {
	startTime := time.Now()

	bases, err := NormalizeTargets(targets)
	if err != nil {
		return nil, err
	}
	report := &Report{Targets: bases}

	o.logger.Info().
		Int("targets", len(bases)).
		Str("output", o.config.Output.Directory).
		Int("workers", o.config.Concurrency.Workers).
		Msg("Starting git metadata recovery")

	pool := inflate.NewPool(o.config.Concurrency.InflateWorkers, o.config.MaxObjectBytes())
	engine := discovery.NewEngine(pool, o.logger)

	sessionOpts := crawler.Options{
		Workers:   o.config.Concurrency.Workers,
		OutputDir: o.config.Output.Directory,
	}
	if o.opts.Progress || o.config.Output.Progress {
		sessionOpts.Progress = o.progress
	}
	session := crawler.NewSession(engine, o.newLoader, sessionOpts, o.logger)

	seeds := discovery.Seeds(o.config.Crawl.Branches)
	for _, base := range bases {
		if err := session.Seed(base, seeds); err != nil {
			return report, err
		}
		o.logger.Debug().Str("target", base).Int("seeds", len(seeds)).Msg("Seeded target")
	}

	stats, err := session.Run(ctx)
	report.Crawl = stats
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			o.logger.Warn().Msg("Crawl cancelled, skipping reconstruction")
		}
		report.Duration = time.Since(startTime)
		return report, err
	}

	o.logger.Info().
		Int64("downloaded", stats.Downloaded).
		Int64("skipped", stats.Skipped).
		Int64("failed", stats.Failed).
		Int64("parse_errors", stats.ParseErrors).
		Dur("took", stats.Duration).
		Msg("Crawl finished")

	if o.config.Reconstruct.Enabled {
		outcomes, err := o.reconstruct(ctx, bases)
		if err != nil {
			report.Duration = time.Since(startTime)
			return report, err
		}
		report.Reconstructed = outcomes
	}

	report.Duration = time.Since(startTime)
	o.logger.Info().
		Dur("duration", report.Duration).
		Int("reconstructed", len(report.Reconstructed)-len(report.Failed())).
		Msg("Recovery completed")
	return report, nil
}

func (o *Orchestrator) reconstruct(ctx context.Context, bases []string) ([]reconstruct.Outcome, error) {
	roots := GitDirs(o.config.Output.Directory, bases)
	if len(roots) == 0 {
		o.logger.Warn().Msg("No git metadata recovered, nothing to reconstruct")
		return nil, nil
	}

	backend, err := reconstruct.NewBackend(o.config.Reconstruct.Backend, o.gitRunner, o.logger)
	if err != nil {
		return nil, err
	}
	runner := reconstruct.NewRunner(backend, o.config.Concurrency.Workers, o.logger)
	return runner.Run(ctx, roots), nil
}

// NormalizeTargets normalizes and dedupes targets, keeping input order
func NormalizeTargets(targets []string) ([]string, error) {
	if len(targets) == 0 {
		return nil, domain.ErrNoTargets
	}
	seen := make(map[string]struct{}, len(targets))
	bases := make([]string, 0, len(targets))
	for _, target := range targets {
		base, err := utils.NormalizeGitURL(target)
		if err != nil {
			return nil, fmt.Errorf("target %q: %w", target, err)
		}
		if _, dup := seen[base]; dup {
			continue
		}
		seen[base] = struct{}{}
		bases = append(bases, base)
	}
	return bases, nil
}

// GitDirs maps normalized bases to the local .git directories that exist
// under outputDir
func GitDirs(outputDir string, bases []string) []string {
	seen := make(map[string]struct{}, len(bases))
	var dirs []string
	for _, base := range bases {
		dir, err := utils.LocalPath(outputDir, base)
		if err != nil {
			continue
		}
		dir = filepath.Clean(dir)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		if reconstruct.IsGitDir(dir) {
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// ApplyManifestOptions merges manifest options over cfg
func ApplyManifestOptions(cfg *config.Config, opts manifest.Options) {
	if len(opts.Headers) > 0 {
		cfg.HTTP.Headers = append(cfg.HTTP.Headers, opts.Headers...)
	}
	if len(opts.Branches) > 0 {
		cfg.Crawl.Branches = append([]string(nil), opts.Branches...)
	}
	if opts.Workers > 0 {
		cfg.Concurrency.Workers = opts.Workers
	}
	if opts.Output != "" {
		cfg.Output.Directory = opts.Output
	}
}

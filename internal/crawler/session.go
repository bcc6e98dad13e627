// Package crawler runs the discovery crawl: a fixed pool of workers sharing
// one queue and one seen-set, each worker owning its own downloader.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/quantmind-br/gitripper/internal/discovery"
	"github.com/quantmind-br/gitripper/internal/domain"
	"github.com/quantmind-br/gitripper/internal/utils"
)

// DownloaderFactory builds the downloader owned by one worker
type DownloaderFactory func() (domain.Downloader, error)

// Options configures a crawl session
type Options struct {
	// Workers is the number of concurrent workers and outbound connections
	Workers int

	// OutputDir is the root that artifacts are mirrored under
	OutputDir string

	// Progress receives a spinner when non-nil
	Progress io.Writer
}

// Stats counts what happened during a crawl
type Stats struct {
	Claimed     int64
	Duplicates  int64
	Downloaded  int64
	Skipped     int64
	Failed      int64
	ParseErrors int64
	Enqueued    int64
	Duration    time.Duration
}

type counters struct {
	claimed     atomic.Int64
	duplicates  atomic.Int64
	downloaded  atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	parseErrors atomic.Int64
	enqueued    atomic.Int64
}

// Session owns the queue and seen-set of one run
type Session struct {
	queue     *Queue
	seen      *SeenSet
	engine    *discovery.Engine
	newLoader DownloaderFactory
	opts      Options
	logger    *utils.Logger
	stats     counters
	bar       *progressbar.ProgressBar
	running   atomic.Bool
}

// NewSession creates a session. Nothing runs until Run.
func NewSession(engine *discovery.Engine, factory DownloaderFactory, opts Options, logger *utils.Logger) *Session {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Session{
		queue:     NewQueue(),
		seen:      NewSeenSet(),
		engine:    engine,
		newLoader: factory,
		opts:      opts,
		logger:    logger.WithComponent("crawler"),
	}
}

// Enqueue schedules an artifact URL. It implements domain.Enqueuer.
func (s *Session) Enqueue(url string) {
	if s.queue.Put(url) {
		s.stats.enqueued.Add(1)
	}
}

// Seed enqueues every relative seed path beneath a normalized base URL
func (s *Session) Seed(baseURL string, seeds []string) error {
	s.logger.WithTarget(baseURL).Debug().Int("seeds", len(seeds)).Msg("Seeding target")
	for _, rel := range seeds {
		url, err := utils.ResolveArtifact(baseURL, rel)
		if err != nil {
			return fmt.Errorf("seed %q: %w", rel, err)
		}
		s.Enqueue(url)
	}
	return nil
}

// Seen reports whether url was claimed during this session
func (s *Session) Seen(url string) bool {
	return s.seen.Contains(url)
}

// Run processes the queue until every enqueued item, including those
// discovered along the way, is finished. Cancelling ctx stops the crawl after
// in-flight items complete.
func (s *Session) Run(ctx context.Context) (Stats, error) {
	if !s.running.CompareAndSwap(false, true) {
		return Stats{}, errors.New("session can only run once")
	}
	start := time.Now()

	loaders := make([]domain.Downloader, 0, s.opts.Workers)
	defer func() {
		for _, dl := range loaders {
			_ = dl.Close()
		}
	}()
	for i := 0; i < s.opts.Workers; i++ {
		dl, err := s.newLoader()
		if err != nil {
			return Stats{}, fmt.Errorf("failed to create downloader: %w", err)
		}
		loaders = append(loaders, dl)
	}

	if s.opts.Progress != nil {
		s.bar = utils.NewProgressBar(-1, utils.DescCrawling, s.opts.Progress)
	}

	s.logger.Debug().
		Int("workers", s.opts.Workers).
		Int("queued", s.queue.Len()).
		Msg("Starting crawl workers")

	var wg sync.WaitGroup
	for i, dl := range loaders {
		wg.Add(1)
		go func(id int, dl domain.Downloader) {
			defer wg.Done()
			s.worker(ctx, id, dl)
		}(i, dl)
	}

	drainErr := s.queue.Drain(ctx)
	s.queue.Close()
	wg.Wait()

	if s.bar != nil {
		_ = s.bar.Finish()
	}

	stats := s.Stats()
	stats.Duration = time.Since(start)
	return stats, drainErr
}

// Stats returns a snapshot of the session counters
func (s *Session) Stats() Stats {
	return Stats{
		Claimed:     s.stats.claimed.Load(),
		Duplicates:  s.stats.duplicates.Load(),
		Downloaded:  s.stats.downloaded.Load(),
		Skipped:     s.stats.skipped.Load(),
		Failed:      s.stats.failed.Load(),
		ParseErrors: s.stats.parseErrors.Load(),
		Enqueued:    s.stats.enqueued.Load(),
	}
}

func (s *Session) worker(ctx context.Context, id int, dl domain.Downloader) {
	logger := s.logger.WithWorker(id)
	for {
		url, ok := s.queue.Get()
		if !ok {
			return
		}
		s.handle(ctx, logger, dl, url)
	}
}

// handle processes one queue item. Any failure, panics included, stays
// scoped to the item.
func (s *Session) handle(ctx context.Context, logger *utils.Logger, dl domain.Downloader, url string) {
	defer s.queue.Done()
	logger = logger.WithURL(url)
	defer func() {
		if r := recover(); r != nil {
			s.stats.failed.Add(1)
			logger.Error().Interface("panic", r).Msg("Recovered from panic while processing artifact")
		}
	}()

	if !s.seen.Claim(url) {
		s.stats.duplicates.Add(1)
		return
	}
	s.stats.claimed.Add(1)
	if s.bar != nil {
		_ = s.bar.Add(1)
	}

	if ctx.Err() != nil {
		return
	}

	artifact, err := discovery.NewArtifact(url, s.opts.OutputDir)
	if err != nil {
		s.stats.failed.Add(1)
		logger.Warn().Err(err).Msg("Skipping artifact")
		return
	}

	res := dl.Download(ctx, url, artifact.LocalPath)
	switch res.Status {
	case domain.FetchDownloaded:
		s.stats.downloaded.Add(1)
		logger.Info().Int64("bytes", res.Bytes).Msg("Fetched")
	case domain.FetchSkipped:
		s.stats.skipped.Add(1)
		logger.Debug().Msg("Already on disk")
	default:
		s.stats.failed.Add(1)
		if errors.Is(res.Err, domain.ErrNotFound) {
			logger.Debug().Msg("Not found")
		} else {
			logger.Warn().Err(res.Err).Msg("Fetch failed")
		}
		return
	}

	result, err := s.engine.Process(ctx, artifact, s)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Debug().Msg("Discovery interrupted")
			return
		}
		s.stats.parseErrors.Add(1)
		logger.Warn().Err(err).Msg("Discovery failed")
		return
	}
	if result.Enqueued > 0 {
		logger.Debug().Str("handler", result.Handler).Int("enqueued", result.Enqueued).Msg("Discovered references")
	}
}

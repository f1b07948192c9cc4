package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/umputun/feedscout/pkg/discovery"
	"github.com/umputun/feedscout/pkg/domain"
	"github.com/umputun/feedscout/pkg/store"
)

// Scheduler runs the discovery pipeline on a schedule: fetch posts from the
// primary sources, extract citations, aggregate candidates, score them and
// publish recommendations.
type Scheduler struct {
	blogFetcher   Fetcher
	socialFetcher Fetcher
	store         Store
	notifier      Notifier
	extractor     *discovery.Extractor
	scorer        *discovery.Scorer
	engine        *discovery.Engine

	sources    []domain.PrimarySource
	interval   time.Duration
	cronSpec   string
	maxWorkers int

	cron    *cron.Cron
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	runMu   sync.Mutex // one pipeline run at a time
	lastRun atomicResult
}

// Fetcher retrieves recent posts for a primary source
type Fetcher interface {
	Fetch(ctx context.Context, src domain.PrimarySource) ([]domain.Post, error)
}

// Store persists discovery state and run results
type Store interface {
	RegisterPrimarySources(ctx context.Context, sources []domain.PrimarySource) error
	ListKnownIdentities(ctx context.Context) ([]string, error)
	PersistRun(ctx context.Context, run *store.Run, candidates map[string]*domain.CandidateSource, recs []domain.Recommendation) error
}

// Notifier delivers the recommendation report
type Notifier interface {
	Notify(recs []domain.Recommendation, generatedAt time.Time) error
}

// Config holds scheduler configuration
type Config struct {
	UpdateInterval time.Duration
	Cron           string // overrides UpdateInterval when set
	MaxWorkers     int
}

// Result summarizes one pipeline run
type Result struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	SourcesFetched  int
	SourcesFailed   int
	PostsAnalyzed   int
	PostsSkipped    int
	Candidates      int
	Recommendations []domain.Recommendation
}

type atomicResult struct {
	mu  sync.RWMutex
	res *Result
}

// NewScheduler creates a scheduler instance. Store may be nil when persistence
// is disabled, notifier may be nil when no report delivery is wanted.
func NewScheduler(blogFetcher, socialFetcher Fetcher, st Store, notifier Notifier,
	extractor *discovery.Extractor, scorer *discovery.Scorer, engine *discovery.Engine,
	sources []domain.PrimarySource, cfg Config) *Scheduler {

	if cfg.UpdateInterval == 0 {
		cfg.UpdateInterval = 6 * time.Hour
	}
	if cfg.MaxWorkers == 0 {
		cfg.MaxWorkers = 5
	}

	return &Scheduler{
		blogFetcher:   blogFetcher,
		socialFetcher: socialFetcher,
		store:         st,
		notifier:      notifier,
		extractor:     extractor,
		scorer:        scorer,
		engine:        engine,
		sources:       sources,
		interval:      cfg.UpdateInterval,
		cronSpec:      cfg.Cron,
		maxWorkers:    cfg.MaxWorkers,
	}
}

// Start begins periodic discovery runs. The first run happens immediately
// unless a cron expression is configured.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.cronSpec != "" {
		s.cron = cron.New()
		_, err := s.cron.AddFunc(s.cronSpec, func() {
			if _, err := s.RunOnce(ctx); err != nil {
				lgr.Printf("[ERROR] scheduled discovery run failed: %v", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", s.cronSpec, err)
		}
		s.cron.Start()
		lgr.Printf("[INFO] scheduler started with cron %q", s.cronSpec)
		return nil
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		if _, err := s.RunOnce(ctx); err != nil {
			lgr.Printf("[ERROR] discovery run failed: %v", err)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(ctx); err != nil {
					lgr.Printf("[ERROR] discovery run failed: %v", err)
				}
			}
		}
	}()

	lgr.Printf("[INFO] scheduler started with update interval %v", s.interval)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// LastResult returns the summary of the most recent completed run, nil if none
func (s *Scheduler) LastResult() *Result {
	s.lastRun.mu.RLock()
	defer s.lastRun.mu.RUnlock()
	return s.lastRun.res
}

// RunOnce executes the full discovery pipeline a single time
func (s *Scheduler) RunOnce(ctx context.Context) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	res := &Result{StartedAt: time.Now()}
	lgr.Printf("[INFO] discovery run started, %d primary sources", len(s.sources))

	if s.store != nil {
		if err := s.store.RegisterPrimarySources(ctx, s.sources); err != nil {
			lgr.Printf("[WARN] failed to register primary sources: %v", err)
		}
	}

	refs := s.collectCitations(ctx, res)
	if res.SourcesFetched == 0 && len(s.sources) > 0 {
		lgr.Printf("[WARN] no primary sources could be fetched this run")
	}

	candidates := discovery.Aggregate(refs, s.knownIdentities(ctx))
	res.Candidates = len(candidates)
	lgr.Printf("[INFO] %d citations from %d sources, %d new candidates",
		len(refs), res.SourcesFetched, len(candidates))

	scored := s.scoreCandidates(ctx, candidates)
	res.Recommendations = s.engine.Recommend(scored, time.Now())

	res.FinishedAt = time.Now()
	s.persist(ctx, res, candidates)

	if s.notifier != nil {
		if err := s.notifier.Notify(res.Recommendations, res.FinishedAt); err != nil {
			return res, fmt.Errorf("deliver report: %w", err)
		}
	}

	s.lastRun.mu.Lock()
	s.lastRun.res = res
	s.lastRun.mu.Unlock()

	lgr.Printf("[INFO] discovery run completed in %v, %d recommendations",
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond), len(res.Recommendations))
	return res, nil
}

// collectCitations fetches all primary sources concurrently and extracts
// citation references from their posts. A failing source is logged and
// skipped, it does not abort the run.
func (s *Scheduler) collectCitations(ctx context.Context, res *Result) []domain.CitationReference {
	var mu sync.Mutex
	var refs []domain.CitationReference

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for _, src := range s.sources {
		g.Go(func() error {
			fetcher := s.blogFetcher
			if src.Kind == domain.KindSocial {
				fetcher = s.socialFetcher
			}
			if fetcher == nil {
				lgr.Printf("[WARN] no fetcher for %s source %s, skipped", src.Kind, src.Identity)
				return nil
			}

			posts, err := fetcher.Fetch(gctx, src)
			if err != nil {
				lgr.Printf("[WARN] failed to fetch %s: %v", src.Identity, err)
				mu.Lock()
				res.SourcesFailed++
				mu.Unlock()
				return nil
			}

			extracted, skipped := s.extractor.Extract(src, posts)

			mu.Lock()
			res.SourcesFetched++
			res.PostsAnalyzed += len(posts) - skipped
			res.PostsSkipped += skipped
			refs = append(refs, extracted...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors, failures are per-source warnings

	return refs
}

// knownIdentities builds the exclusion set: configured primaries plus
// whatever the store has registered from previous runs
func (s *Scheduler) knownIdentities(ctx context.Context) map[string]struct{} {
	known := make(map[string]struct{}, len(s.sources))
	for _, src := range s.sources {
		known[discovery.Canonicalize(src.Identity)] = struct{}{}
	}

	if s.store != nil {
		stored, err := s.store.ListKnownIdentities(ctx)
		if err != nil {
			lgr.Printf("[WARN] failed to list known identities: %v", err)
			return known
		}
		for _, identity := range stored {
			known[discovery.Canonicalize(identity)] = struct{}{}
		}
	}
	return known
}

// scoreCandidates scores all candidates concurrently with the worker limit.
// Scoring is fail-soft, the scorer degrades inspection errors to a zero
// content signal.
func (s *Scheduler) scoreCandidates(ctx context.Context, candidates map[string]*domain.CandidateSource) []domain.ScoredCandidate {
	var mu sync.Mutex
	scored := make([]domain.ScoredCandidate, 0, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxWorkers)

	for _, cand := range candidates {
		g.Go(func() error {
			sc := s.scorer.Score(gctx, *cand)
			mu.Lock()
			scored = append(scored, sc)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return scored
}

// persist saves the run to the store, failures are logged but never block
// the report
func (s *Scheduler) persist(ctx context.Context, res *Result, candidates map[string]*domain.CandidateSource) {
	if s.store == nil {
		return
	}

	run := &store.Run{
		StartedAt:      res.StartedAt,
		FinishedAt:     res.FinishedAt,
		SourcesFetched: res.SourcesFetched,
		PostsAnalyzed:  res.PostsAnalyzed,
		Candidates:     res.Candidates,
		Recommended:    len(res.Recommendations),
	}
	if err := s.store.PersistRun(ctx, run, candidates, res.Recommendations); err != nil {
		lgr.Printf("[WARN] failed to persist run: %v", err)
		return
	}
	res.RunID = run.ID
}

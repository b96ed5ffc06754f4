package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"gp_reviews/internal/adapters/observability"
	"gp_reviews/internal/domain"
)

type PipelineOptions struct {
	// Workers > 1 extracts practices concurrently; output order is unchanged.
	Workers int
	// FailFast aborts the run on the first practice-level error.
	FailFast bool
}

// Pipeline assembles the overview and review datasets for one traversal of the directory.
type Pipeline struct {
	ex   *Extractor
	opts PipelineOptions
	log  zerolog.Logger
}

func NewPipeline(ex *Extractor, opts PipelineOptions, l zerolog.Logger) *Pipeline {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Pipeline{ex: ex, opts: opts, log: l}
}

type practiceResult struct {
	overview       *domain.Overview
	reviews        []domain.Review
	reviewsChecked bool
	misses         []domain.Miss
	err            error
}

// Run discovers practices and extracts both datasets. Nothing is persisted here;
// the caller hands the result to its sinks.
func (p *Pipeline) Run(ctx context.Context) (domain.RunResult, error) {
	res := domain.RunResult{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}
	l := p.log.With().Str("run_id", res.RunID).Logger()

	found, err := p.ex.DiscoverIDs(ctx)
	if err != nil {
		return res, err
	}
	ids := uniqueIDs(found)
	res.Discovered = len(ids)
	l.Info().
		Int("practices", len(ids)).
		Int("duplicates", len(found)-len(ids)).
		Int("workers", p.opts.Workers).
		Msg("discovery complete")

	var results []practiceResult
	if p.opts.Workers == 1 {
		results, err = p.runSequential(ctx, l, ids)
	} else {
		results, err = p.runParallel(ctx, l, ids)
	}
	if err != nil {
		return res, err
	}

	for i, r := range results {
		if r.overview != nil {
			res.Overviews = append(res.Overviews, *r.overview)
		}
		if r.reviewsChecked {
			res.ReviewsChecked = append(res.ReviewsChecked, ids[i])
		}
		res.Reviews = append(res.Reviews, r.reviews...)
		res.Misses = append(res.Misses, r.misses...)
	}
	res.FinishedAt = time.Now().UTC()

	l.Info().
		Int("overviews", len(res.Overviews)).
		Int("reviews", len(res.Reviews)).
		Int("misses", len(res.Misses)).
		Dur("took", res.FinishedAt.Sub(res.StartedAt)).
		Msg("run complete")
	return res, nil
}

// uniqueIDs drops repeated identifiers, keeping the first occurrence. A
// practice listed twice is still one entity with one review sequence.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (p *Pipeline) runSequential(ctx context.Context, l zerolog.Logger, ids []string) ([]practiceResult, error) {
	results := make([]practiceResult, len(ids))
	for i, id := range ids {
		results[i] = p.extractPractice(ctx, l, id)
		if results[i].err != nil && p.opts.FailFast {
			return nil, results[i].err
		}
	}
	return results, nil
}

// runParallel slots results by discovery index. With FailFast the first
// practice error cancels the run and no further practice is started.
func (p *Pipeline) runParallel(parent context.Context, l zerolog.Logger, ids []string) ([]practiceResult, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		once     sync.Once
		firstErr error
	)
	results := make([]practiceResult, len(ids))
	sem := semaphore.NewWeighted(int64(p.opts.Workers))
	var wg sync.WaitGroup
	for i, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer sem.Release(1)
			results[i] = p.extractPractice(ctx, l, id)
			if results[i].err != nil && p.opts.FailFast {
				once.Do(func() {
					firstErr = results[i].err
					cancel()
				})
			}
		}(i, id)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// extractPractice runs overview and review extraction independently; a miss
// or error in one never blocks the other.
func (p *Pipeline) extractPractice(ctx context.Context, l zerolog.Logger, id string) practiceResult {
	var out practiceResult
	l = l.With().Str("id", id).Logger()

	ov, av, oerr := p.ex.ExtractOverview(ctx, id)
	switch {
	case oerr != nil:
		l.Warn().Err(oerr).Msg("overview failed")
		out.misses = append(out.misses, domain.Miss{PracticeID: id, Stage: "overview", Reason: "error", Detail: oerr.Error()})
		observability.ObserveEntity("overview", "error")
	case ov == nil:
		l.Info().Str("outcome", string(av)).Msg("no overview")
		out.misses = append(out.misses, domain.Miss{PracticeID: id, Stage: "overview", Reason: string(av)})
		observability.ObserveEntity("overview", string(av))
	default:
		out.overview = ov
		observability.ObserveEntity("overview", string(domain.Available))
	}

	rs, av, rerr := p.ex.ExtractReviews(ctx, id)
	switch {
	case rerr != nil:
		l.Warn().Err(rerr).Msg("reviews failed")
		out.misses = append(out.misses, domain.Miss{PracticeID: id, Stage: "reviews", Reason: "error", Detail: rerr.Error()})
		observability.ObserveEntity("reviews", "error")
	case av != domain.Available:
		l.Info().Str("outcome", string(av)).Msg("no review list")
		out.misses = append(out.misses, domain.Miss{PracticeID: id, Stage: "reviews", Reason: string(av)})
		observability.ObserveEntity("reviews", string(av))
	default:
		out.reviews = rs
		out.reviewsChecked = true
		observability.ObserveEntity("reviews", string(domain.Available))
		l.Debug().Int("reviews", len(rs)).Msg("reviews extracted")
	}

	out.err = errors.Join(oerr, rerr)
	return out
}

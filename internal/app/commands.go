package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"gp_reviews/internal/domain"
)

// PublishService stores a finished run in the repository and evicts cached reads.
type PublishService struct {
	repo  domain.PracticeRepository
	cache domain.Cache
	log   zerolog.Logger
}

func NewPublishService(r domain.PracticeRepository, cache domain.Cache, l zerolog.Logger) *PublishService {
	return &PublishService{repo: r, cache: cache, log: l}
}

func (s *PublishService) Publish(ctx context.Context, run domain.RunResult) error {
	if err := s.repo.UpsertOverviews(ctx, run.RunID, run.Overviews); err != nil {
		return fmt.Errorf("upsert overviews: %w", err)
	}
	for _, ov := range run.Overviews {
		s.invalidatePractice(ctx, ov.ID)
	}

	// Every practice whose list was read gets its stored reviews replaced,
	// an empty list included.
	byPractice := map[string][]domain.Review{}
	order := append([]string(nil), run.ReviewsChecked...)
	checked := make(map[string]bool, len(order))
	for _, id := range order {
		checked[id] = true
	}
	for _, r := range run.Reviews {
		if !checked[r.PracticeID] {
			checked[r.PracticeID] = true
			order = append(order, r.PracticeID)
		}
		byPractice[r.PracticeID] = append(byPractice[r.PracticeID], r)
	}
	for _, id := range order {
		if err := s.repo.ReplaceReviews(ctx, run.RunID, id, byPractice[id]); err != nil {
			// do not swallow this; surface so we know inserts failed
			return fmt.Errorf("replace reviews for %s: %w", id, err)
		}
	}

	for _, m := range run.Misses {
		if err := s.repo.LogMiss(ctx, m); err != nil {
			s.log.Warn().Err(err).Str("id", m.PracticeID).Msg("log miss failed")
		}
		switch {
		case m.Reason == "error":
		case m.Stage == "overview" && (m.Reason == string(domain.Hidden) || m.Reason == string(domain.NotFound)):
			// hidden or gone from the site: the practice has no record any more
			if err := s.repo.DeletePractice(ctx, m.PracticeID); err != nil {
				return fmt.Errorf("delete practice %s: %w", m.PracticeID, err)
			}
			s.invalidatePractice(ctx, m.PracticeID)
		case m.Stage == "reviews":
			// The source no longer lists reviews for this practice: drop what we had.
			if err := s.repo.ReplaceReviews(ctx, run.RunID, m.PracticeID, nil); err != nil {
				return fmt.Errorf("clear reviews for %s: %w", m.PracticeID, err)
			}
		}
	}
	s.retirePages(ctx, run.RunID)

	return s.repo.RecordRun(ctx, domain.RunSummary{
		RunID:      run.RunID,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Discovered: run.Discovered,
		Overviews:  len(run.Overviews),
		Reviews:    len(run.Reviews),
		Misses:     len(run.Misses),
	})
}

func (s *PublishService) invalidatePractice(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, practiceKey(id))
}

// retirePages moves list reads to a new key generation. Pages cached under the
// old one are never read again and expire with their TTL.
func (s *PublishService) retirePages(ctx context.Context, runID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, generationKey, runID, 0); err != nil {
		s.log.Warn().Err(err).Msg("retire cached pages failed")
	}
}

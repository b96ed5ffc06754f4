package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gp_reviews/internal/domain"
)

// generationKey holds the run id of the last publish. List pages are keyed
// under it, so a publish retires every cached page at once.
const generationKey = "lists:generation"

func practiceKey(id string) string { return "practice:" + id }

func reviewsKey(gen, id string, limit, cursor int) string {
	return fmt.Sprintf("reviews:%s:%s:%d:%d", gen, id, limit, cursor)
}

func practicesKey(gen string, limit int, cursor string) string {
	return fmt.Sprintf("practices:%s:%d:%s", gen, limit, cursor)
}

type QueryService struct {
	repo     domain.PracticeRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(r domain.PracticeRepository, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl}
}

func (s *QueryService) generation(ctx context.Context) string {
	var gen string
	if ok, _ := s.cache.Get(ctx, generationKey, &gen); ok && gen != "" {
		return gen
	}
	return "0"
}

func (s *QueryService) GetPractice(ctx context.Context, id string) (domain.Overview, error) {
	key := practiceKey(id)
	var ov domain.Overview
	if ok, _ := s.cache.Get(ctx, key, &ov); ok {
		return ov, nil
	}
	ov, err := s.repo.GetPractice(ctx, id)
	if err != nil {
		return domain.Overview{}, err
	}
	_ = s.cache.Set(ctx, key, ov, int(s.cacheTTL.Seconds()))
	return ov, nil
}

func (s *QueryService) ListPractices(ctx context.Context, q domain.PracticesQuery) (domain.PracticesPage, error) {
	cursor := ""
	if q.Cursor != nil {
		cursor = *q.Cursor
	}
	key := practicesKey(s.generation(ctx), q.Limit, cursor)
	var out domain.PracticesPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}
	pg, err := s.repo.ListPractices(ctx, q)
	if err != nil {
		return domain.PracticesPage{}, err
	}
	out = domain.PracticesPage{NextCursor: pg.NextCursor}
	if n := len(pg.Items); n > 0 {
		out.Items = make([]domain.Overview, n)
		copy(out.Items, pg.Items)
	}
	_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	return out, nil
}

func (s *QueryService) ListReviews(ctx context.Context, id string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	cursor := 0
	if pg.Cursor != nil {
		cursor = *pg.Cursor
	}
	key := reviewsKey(s.generation(ctx), id, pg.Limit, cursor)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.repo.ListReviews(ctx, id, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}

	// copy slice to avoid aliasing the repo's backing array
	copyRS := deepCopyReviewsPage(rs)

	// optional size guard
	if b, _ := json.Marshal(copyRS); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyRS, int(s.cacheTTL.Seconds()))
	}
	return copyRS, nil
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}

package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"gp_reviews/internal/app"
	"gp_reviews/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	ov domain.Overview
	rp domain.ReviewsPage

	upserted []domain.Overview
	replaced map[string][]domain.Review
	deleted  []string
	misses   []domain.Miss
	runs     []domain.RunSummary
}

func (f *fakeRepo) UpsertOverviews(ctx context.Context, runID string, ovs []domain.Overview) error {
	f.upserted = append(f.upserted, ovs...)
	return nil
}
func (f *fakeRepo) ReplaceReviews(ctx context.Context, runID, id string, rs []domain.Review) error {
	if f.replaced == nil {
		f.replaced = map[string][]domain.Review{}
	}
	f.replaced[id] = rs
	return nil
}
func (f *fakeRepo) DeletePractice(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}
func (f *fakeRepo) LogMiss(ctx context.Context, m domain.Miss) error {
	f.misses = append(f.misses, m)
	return nil
}
func (f *fakeRepo) RecordRun(ctx context.Context, r domain.RunSummary) error {
	f.runs = append(f.runs, r)
	return nil
}
func (f *fakeRepo) GetPractice(ctx context.Context, id string) (domain.Overview, error) {
	return f.ov, nil
}
func (f *fakeRepo) ListPractices(ctx context.Context, q domain.PracticesQuery) (domain.PracticesPage, error) {
	return domain.PracticesPage{Items: []domain.Overview{f.ov}}, nil
}
func (f *fakeRepo) ListReviews(ctx context.Context, id string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	return f.rp, nil
}

type fakeCache struct {
	store map[string]any
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *string:
		*d = v.(string)
	case *domain.Overview:
		*d = v.(domain.Overview)
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	case *domain.PracticesPage:
		*d = v.(domain.PracticesPage)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.dels = append(c.dels, key)
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestGetPractice_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{
		ov: domain.Overview{ID: "B82005", Address: "1 High Street", Patients: domain.Present(5000)},
	}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	ov, err := q.GetPractice(context.Background(), "B82005")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ov.ID != "B82005" || ov.Patients.String() != "5000" {
		t.Fatalf("unexpected practice: %+v", ov)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.ov.Address = "SHOULD NOT SEE THIS"

	// Hit (served from cache)
	ov2, err := q.GetPractice(context.Background(), "B82005")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if ov2.Address != "1 High Street" {
		t.Fatalf("expected cached address, got %s", ov2.Address)
	}
}

func TestListReviews_Cache(t *testing.T) {
	repo := &fakeRepo{
		rp: domain.ReviewsPage{Items: []domain.Review{
			{PracticeID: "B1", Seq: 1, Text: domain.Present("Great"), Rating: domain.Present(5)},
		}},
	}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)

	out, err := q.ListReviews(context.Background(), "B1", domain.PageQuery{Limit: 10})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Text.String() != "Great" {
		t.Fatalf("unexpected reviews: %+v", out.Items)
	}

	// Change repo, call again -> should come from cache
	repo.rp.Items[0].Text = domain.Present("Changed")
	out2, _ := q.ListReviews(context.Background(), "B1", domain.PageQuery{Limit: 10})
	if out2.Items[0].Text.String() != "Great" {
		t.Fatalf("expected cached text Great, got %s", out2.Items[0].Text.String())
	}
}

func TestPublish_StoresRunAndEvicts(t *testing.T) {
	repo := &fakeRepo{}
	cache := &fakeCache{store: map[string]any{
		"practice:B":     domain.Overview{ID: "B"},
		"practice:A":     domain.Overview{ID: "A"},
		"practice:other": domain.Overview{ID: "other"},
	}}
	svc := app.NewPublishService(repo, cache, zerolog.Nop())

	run := domain.RunResult{
		RunID:          "run-1",
		Discovered:     2,
		Overviews:      []domain.Overview{{ID: "B"}},
		Reviews:        []domain.Review{{PracticeID: "B", Seq: 1}, {PracticeID: "B", Seq: 2}},
		ReviewsChecked: []string{"B"},
		Misses: []domain.Miss{
			{PracticeID: "A", Stage: "overview", Reason: "hidden"},
			{PracticeID: "A", Stage: "reviews", Reason: "hidden"},
		},
	}
	if err := svc.Publish(context.Background(), run); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(repo.upserted) != 1 || repo.upserted[0].ID != "B" {
		t.Fatalf("unexpected upserts: %+v", repo.upserted)
	}
	if len(repo.replaced["B"]) != 2 {
		t.Fatalf("expected 2 reviews for B, got %d", len(repo.replaced["B"]))
	}
	if rs, ok := repo.replaced["A"]; !ok || len(rs) != 0 {
		t.Fatalf("expected hidden practice A to have its reviews cleared")
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != "A" {
		t.Fatalf("expected hidden practice A to be deleted, got %v", repo.deleted)
	}
	if len(repo.misses) != 2 {
		t.Fatalf("expected 2 misses, got %d", len(repo.misses))
	}
	if len(repo.runs) != 1 || repo.runs[0].Reviews != 2 || repo.runs[0].Overviews != 1 {
		t.Fatalf("unexpected run summary: %+v", repo.runs)
	}
	for _, k := range []string{"practice:B", "practice:A"} {
		if _, ok := cache.store[k]; ok {
			t.Fatalf("expected %s to be evicted", k)
		}
	}
	if _, ok := cache.store["practice:other"]; !ok {
		t.Fatalf("unrelated key evicted")
	}
	if gen := cache.store["lists:generation"]; gen != "run-1" {
		t.Fatalf("expected list generation run-1, got %v", gen)
	}
}

func TestPublish_EmptyReviewListReplacesStoredReviews(t *testing.T) {
	repo := &fakeRepo{}
	svc := app.NewPublishService(repo, &fakeCache{}, zerolog.Nop())

	run := domain.RunResult{
		RunID:          "run-2",
		Overviews:      []domain.Overview{{ID: "E"}},
		ReviewsChecked: []string{"E"},
	}
	if err := svc.Publish(context.Background(), run); err != nil {
		t.Fatalf("publish: %v", err)
	}
	rs, ok := repo.replaced["E"]
	if !ok {
		t.Fatalf("expected reviews of E to be replaced")
	}
	if len(rs) != 0 {
		t.Fatalf("expected an empty review list for E, got %d", len(rs))
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("practice with an empty list must stay, deleted %v", repo.deleted)
	}
}

func TestPublish_FailedOverviewKeepsPractice(t *testing.T) {
	repo := &fakeRepo{}
	svc := app.NewPublishService(repo, &fakeCache{}, zerolog.Nop())

	run := domain.RunResult{
		RunID:  "run-3",
		Misses: []domain.Miss{{PracticeID: "X", Stage: "overview", Reason: "error", Detail: "boom"}},
	}
	if err := svc.Publish(context.Background(), run); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(repo.deleted) != 0 || len(repo.replaced) != 0 {
		t.Fatalf("a transient failure must not touch stored data: deleted=%v replaced=%v", repo.deleted, repo.replaced)
	}
}

func TestPublish_LaterReviewPagesAreRefreshed(t *testing.T) {
	next := 10
	repo := &fakeRepo{rp: domain.ReviewsPage{
		Items:      []domain.Review{{PracticeID: "B1", Seq: 6, Text: domain.Present("old")}},
		NextCursor: &next,
	}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute)
	svc := app.NewPublishService(repo, cache, zerolog.Nop())
	ctx := context.Background()

	cursor := 5
	page := domain.PageQuery{Limit: 5, Cursor: &cursor}
	out, err := q.ListReviews(ctx, "B1", page)
	if err != nil || out.Items[0].Text.String() != "old" {
		t.Fatalf("unexpected first read: %+v err=%v", out, err)
	}

	repo.rp = domain.ReviewsPage{Items: []domain.Review{{PracticeID: "B1", Seq: 6, Text: domain.Present("new")}}}
	if err := svc.Publish(ctx, domain.RunResult{RunID: "run-4", ReviewsChecked: []string{"B1"}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	out, err = q.ListReviews(ctx, "B1", page)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if out.Items[0].Text.String() != "new" {
		t.Fatalf("expected the page after cursor 5 to follow the new run, got %s", out.Items[0].Text.String())
	}
	if out.NextCursor != nil {
		t.Fatalf("stale next cursor served: %v", *out.NextCursor)
	}
}

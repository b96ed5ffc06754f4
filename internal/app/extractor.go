package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"gp_reviews/internal/adapters/observability"
	"gp_reviews/internal/domain"
	"gp_reviews/internal/scrape"
)

// Extractor drives the page fetches for one practice at a time. All fetches
// are sequential: later review pages are only addressable once page 1 gave the total.
type Extractor struct {
	docs domain.DocumentFetcher
	site scrape.Site
	log  zerolog.Logger
}

func NewExtractor(f domain.DocumentFetcher, site scrape.Site, l zerolog.Logger) *Extractor {
	return &Extractor{docs: f, site: site, log: l}
}

// DiscoverIDs scrapes the directory listing. Any failure here is fatal for the run.
func (e *Extractor) DiscoverIDs(ctx context.Context) ([]string, error) {
	doc, err := e.docs.Fetch(ctx, e.site.DirectoryURL())
	if err != nil {
		return nil, fmt.Errorf("discover practices: %w", err)
	}
	return scrape.ParseIdentifiers(doc), nil
}

// ExtractOverview returns nil with the gate outcome when the practice is hidden or gone.
func (e *Extractor) ExtractOverview(ctx context.Context, id string) (*domain.Overview, domain.Availability, error) {
	doc, av, err := e.fetchGated(ctx, e.site.OverviewURL(id))
	if err != nil || av != domain.Available {
		return nil, av, err
	}
	ov := scrape.ParseOverview(id, doc)
	return &ov, domain.Available, nil
}

// ExtractReviews walks every review page of a practice. A nil slice with
// domain.NoReviews means the practice has no review list at all, which is
// distinct from an empty list.
func (e *Extractor) ExtractReviews(ctx context.Context, id string) ([]domain.Review, domain.Availability, error) {
	first, av, err := e.fetchGated(ctx, e.site.ReviewsURL(id, 1))
	if err != nil || av != domain.Available {
		return nil, av, err
	}

	total, ok, err := scrape.ParseReviewCount(first)
	if err != nil {
		return nil, domain.Available, fmt.Errorf("reviews %s: %w", id, err)
	}
	if !ok {
		return nil, domain.NoReviews, nil
	}

	pages := scrape.PageCount(total)
	l := e.log.With().Str("id", id).Int("total", total).Int("pages", pages).Logger()
	l.Debug().Msg("walking review pages")

	out := make([]domain.Review, 0, total)
	seq, malformed := 0, 0
	for page := 1; page <= pages; page++ {
		doc := first
		if page > 1 {
			if doc, err = e.docs.Fetch(ctx, e.site.ReviewsURL(id, page)); err != nil {
				return nil, domain.Available, fmt.Errorf("reviews %s page %d: %w", id, page, err)
			}
		}
		for _, box := range scrape.ReviewBoxes(doc) {
			seq++
			r, err := scrape.ParseReviewBox(id, seq, box)
			if err != nil {
				malformed++
				l.Warn().Err(err).Int("page", page).Int("seq", seq).Msg("review box kept with NA fields")
			}
			out = append(out, r)
		}
	}
	observability.ObserveReviews(len(out), malformed)
	return out, domain.Available, nil
}

func (e *Extractor) fetchGated(ctx context.Context, u string) (*goquery.Document, domain.Availability, error) {
	doc, err := e.docs.Fetch(ctx, u)
	if err != nil {
		// a real 404 means the same as the placeholder page
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound, nil
		}
		return nil, "", err
	}
	av, err := scrape.Classify(doc)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", u, err)
	}
	return doc, av, nil
}

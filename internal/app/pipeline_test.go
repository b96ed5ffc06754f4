package app_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gp_reviews/internal/app"
	"gp_reviews/internal/domain"
)

func newPipeline(f *fakeFetcher, opts app.PipelineOptions) *app.Pipeline {
	ex := app.NewExtractor(f, site, zerolog.Nop())
	return app.NewPipeline(ex, opts, zerolog.Nop())
}

func seqs(rs []domain.Review) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.Seq
	}
	return out
}

func upTo(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestPipeline_HiddenAndAvailable(t *testing.T) {
	f := newFakeFetcher()
	f.directory("A", "B")
	f.hidden("A")
	f.overview("B")
	f.reviews("B", 12, 10, 2)

	res, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	require.Equal(t, 2, res.Discovered)

	require.Len(t, res.Overviews, 1)
	ov := res.Overviews[0]
	require.Equal(t, "B", ov.ID)
	require.Equal(t, "5120", ov.Patients.String())
	require.Equal(t, "0.88", ov.RecommendFraction.String())
	require.Equal(t, "64", ov.RecommendSample.String())
	require.Equal(t, domain.NA, ov.EveningWeekend.String())
	require.Equal(t, "2 Mill Lane,York", ov.Address)

	require.Len(t, res.Reviews, 12)
	for _, r := range res.Reviews {
		require.Equal(t, "B", r.PracticeID)
	}
	require.Equal(t, upTo(12), seqs(res.Reviews))
	require.Equal(t, []string{"B"}, res.ReviewsChecked)

	require.ElementsMatch(t, []domain.Miss{
		{PracticeID: "A", Stage: "overview", Reason: "hidden"},
		{PracticeID: "A", Stage: "reviews", Reason: "hidden"},
	}, res.Misses)
}

func TestPipeline_SequenceContinuesAcrossPages(t *testing.T) {
	f := newFakeFetcher()
	f.directory("B")
	f.overview("B")
	f.reviews("B", 15, 10, 5)

	res, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, upTo(15), seqs(res.Reviews))
	require.Equal(t, "Review number 11 has a long enough body to win.", res.Reviews[10].Text.String())
}

func TestExtractReviews_PageCountFromTotal(t *testing.T) {
	f := newFakeFetcher()
	f.reviews("C", 23, 10, 10, 3)
	ex := app.NewExtractor(f, site, zerolog.Nop())

	rs, av, err := ex.ExtractReviews(context.Background(), "C")
	require.NoError(t, err)
	require.Equal(t, domain.Available, av)
	require.Len(t, rs, 23)
	require.Equal(t, 3, f.count("http://nhs.test/Services/GP/ReviewsAndRatings/"))
}

func TestExtractReviews_ExactMultipleHasNoExtraPage(t *testing.T) {
	f := newFakeFetcher()
	f.reviews("C", 20, 10, 10)
	ex := app.NewExtractor(f, site, zerolog.Nop())

	rs, _, err := ex.ExtractReviews(context.Background(), "C")
	require.NoError(t, err)
	require.Len(t, rs, 20)
	require.Equal(t, 2, f.count("http://nhs.test/Services/GP/ReviewsAndRatings/"))
}

func TestExtractReviews_NoSummaryMeansNoList(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ReviewsURL("D", 1)] = `<h1>Reviews</h1><p>No reviews yet.</p>`
	ex := app.NewExtractor(f, site, zerolog.Nop())

	rs, av, err := ex.ExtractReviews(context.Background(), "D")
	require.NoError(t, err)
	require.Nil(t, rs)
	require.Equal(t, domain.NoReviews, av)
}

func TestExtractReviews_ZeroTotalIsEmptyList(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ReviewsURL("E", 1)] = `<h1>Reviews</h1><p class="review-count">Reviews 0</p>`
	ex := app.NewExtractor(f, site, zerolog.Nop())

	rs, av, err := ex.ExtractReviews(context.Background(), "E")
	require.NoError(t, err)
	require.NotNil(t, rs)
	require.Empty(t, rs)
	require.Equal(t, domain.Available, av)
}

func TestExtractReviews_MalformedBoxKeepsPosition(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.ReviewsURL("F", 1)] = `<h1>Reviews</h1><p class="review-count">of 3</p><ul>` +
		reviewBox(1) + `<li role="article"><div>garbled</div></li>` + reviewBox(3) + `</ul>`
	ex := app.NewExtractor(f, site, zerolog.Nop())

	rs, _, err := ex.ExtractReviews(context.Background(), "F")
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, seqs(rs))
	require.Equal(t, domain.NA, rs[1].Text.Reason())
	require.True(t, rs[2].Text.IsPresent())
}

func TestExtractOverview_MissingHeadingIsError(t *testing.T) {
	f := newFakeFetcher()
	f.pages[site.OverviewURL("G")] = `<p>maintenance</p>`
	ex := app.NewExtractor(f, site, zerolog.Nop())

	ov, _, err := ex.ExtractOverview(context.Background(), "G")
	require.Error(t, err)
	require.Nil(t, ov)
}

func TestPipeline_ReviewFailureDoesNotBlockOverview(t *testing.T) {
	f := newFakeFetcher()
	f.directory("B")
	f.overview("B")
	f.reviews("B", 12, 10, 2)
	f.errs[site.ReviewsURL("B", 2)] = errBoom

	res, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Overviews, 1)
	require.Empty(t, res.Reviews, "a failed traversal yields no partial reviews")
	require.Len(t, res.Misses, 1)
	require.Equal(t, "error", res.Misses[0].Reason)
}

func TestPipeline_FailFast(t *testing.T) {
	f := newFakeFetcher()
	f.directory("B", "C")
	f.errs[site.OverviewURL("B")] = errBoom

	_, err := newPipeline(f, app.PipelineOptions{FailFast: true}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	require.Zero(t, f.count(site.OverviewURL("C")))
}

func TestPipeline_FailFastStopsWorkers(t *testing.T) {
	f := newFakeFetcher()
	f.directory("B", "S1", "S2", "S3", "S4")
	f.errs[site.OverviewURL("B")] = errBoom
	f.block[site.OverviewURL("S1")] = true

	_, err := newPipeline(f, app.PipelineOptions{Workers: 2, FailFast: true}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
	for _, id := range []string{"S2", "S3", "S4"} {
		require.Zero(t, f.count(site.OverviewURL(id)), "practice %s started after the failure", id)
	}
}

func TestPipeline_DuplicateIDsExtractedOnce(t *testing.T) {
	f := newFakeFetcher()
	f.directory("B", "B")
	f.overview("B")
	f.reviews("B", 3, 3)

	for _, workers := range []int{1, 3} {
		res, err := newPipeline(f, app.PipelineOptions{Workers: workers}).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, res.Discovered)
		require.Len(t, res.Overviews, 1)
		require.Equal(t, upTo(3), seqs(res.Reviews))
		require.Equal(t, []string{"B"}, res.ReviewsChecked)
	}
	require.Equal(t, 2, f.count(site.OverviewURL("B")), "one overview fetch per run")
}

func TestPipeline_ZeroReviewsClearsStoredList(t *testing.T) {
	f := newFakeFetcher()
	f.directory("E")
	f.overview("E")
	f.pages[site.ReviewsURL("E", 1)] = `<h1>Reviews</h1><p class="review-count">Reviews 0</p>`

	res, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Reviews)
	require.Empty(t, res.Misses)
	require.Equal(t, []string{"E"}, res.ReviewsChecked)

	repo := &fakeRepo{}
	require.NoError(t, app.NewPublishService(repo, &fakeCache{}, zerolog.Nop()).Publish(context.Background(), res))
	rs, ok := repo.replaced["E"]
	require.True(t, ok, "stored reviews of E must be replaced")
	require.Empty(t, rs)
}

func TestPipeline_DiscoveryFailureAbortsRun(t *testing.T) {
	f := newFakeFetcher()
	f.errs[site.DirectoryURL()] = errBoom

	_, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.ErrorIs(t, err, errBoom)
}

func TestPipeline_WorkersKeepDiscoveryOrder(t *testing.T) {
	f := newFakeFetcher()
	ids := []string{"P1", "P2", "P3", "P4", "P5", "P6"}
	f.directory(ids...)
	for i, id := range ids {
		f.overview(id)
		f.reviews(id, i+1, i+1)
	}
	f.hidden("P3")

	seq, err := newPipeline(f, app.PipelineOptions{}).Run(context.Background())
	require.NoError(t, err)
	par, err := newPipeline(f, app.PipelineOptions{Workers: 4}).Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, seq.Overviews, par.Overviews)
	require.Equal(t, seq.Reviews, par.Reviews)
	require.Equal(t, seq.Misses, par.Misses)
	require.Len(t, seq.Overviews, 5)
}

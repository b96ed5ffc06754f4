package app_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"gp_reviews/internal/domain"
	"gp_reviews/internal/scrape"
)

// ---- fake site ----

var site = scrape.NewSite("http://nhs.test")

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	errs  map[string]error
	// block holds urls whose fetch waits for the context to end
	block map[string]bool
	calls []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]string{}, errs: map[string]error{}, block: map[string]bool{}}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*goquery.Document, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	html, ok := f.pages[url]
	err := f.errs[url]
	wait := f.block[url]
	f.mu.Unlock()

	if wait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (f *fakeFetcher) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeFetcher) directory(ids ...string) {
	var b strings.Builder
	b.WriteString(`<h1>GP practices</h1><a href="/">Home</a>`)
	for _, id := range ids {
		fmt.Fprintf(&b, `<a href="/Services/GP/Overview/DefaultView.aspx?id=%s">Practice %s</a>`, id, id)
	}
	f.pages[site.DirectoryURL()] = b.String()
}

func (f *fakeFetcher) hidden(id string) {
	f.pages[site.OverviewURL(id)] = `<h1>Profile hidden</h1>`
	f.pages[site.ReviewsURL(id, 1)] = `<h1>Profile hidden</h1>`
}

func (f *fakeFetcher) overview(id string) {
	f.pages[site.OverviewURL(id)] = `<h1>Practice ` + id + `</h1>
		<div class="indicator-value">5,120</div><div class="indicator-text">Registered patients</div>
		<div class="indicator-value">88%</div><div class="indicator-text">Would recommend, based on 64 responses</div>
		<p itemprop="address">2 Mill Lane,
		   York</p>`
}

// reviews renders the review list of id with perPage boxes on each page.
func (f *fakeFetcher) reviews(id string, total int, perPage ...int) {
	seq := 0
	for i, n := range perPage {
		var b strings.Builder
		fmt.Fprintf(&b, `<h1>Reviews for %s</h1><p class="review-count">Showing reviews of %d</p><ul>`, id, total)
		for j := 0; j < n; j++ {
			seq++
			b.WriteString(reviewBox(seq))
		}
		b.WriteString(`</ul>`)
		f.pages[site.ReviewsURL(id, i+1)] = b.String()
	}
}

func reviewBox(n int) string {
	return fmt.Sprintf(`<li role="article">
		<div aria-label="Organisation review">
			<span class="star-rating">%s</span>
			<p>Visit</p>
			<p>Review number %d has a long enough body to win.</p>
			<span class="fine-print">Posted on %d May 2021</span>
		</div>
	</li>`, strings.Repeat("★", n%6), n, n%28+1)
}

var errBoom = errors.New("boom")

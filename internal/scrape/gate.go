package scrape

import (
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gp_reviews/internal/domain"
)

// Placeholder headings the source serves (with HTTP 200) for suppressed or removed practices.
const (
	HiddenMarker   = "Profile hidden"
	NotFoundMarker = "Page not found"
)

var ErrMissingHeading = errors.New("scrape: page has no h1 heading")

// Classify reads the first h1 and reports whether the page carries practice data.
// A page without any h1 is malformed, not hidden.
func Classify(doc *goquery.Document) (domain.Availability, error) {
	h := doc.Find("h1").First()
	if h.Length() == 0 {
		return "", ErrMissingHeading
	}
	switch strings.TrimSpace(h.Text()) {
	case HiddenMarker:
		return domain.Hidden, nil
	case NotFoundMarker:
		return domain.NotFound, nil
	default:
		return domain.Available, nil
	}
}

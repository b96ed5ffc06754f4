package scrape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gp_reviews/internal/domain"
)

const (
	reviewCountSel = ".review-count"
	reviewBoxSel   = `li[role="article"]`
	reviewPartSel  = `[aria-label="Organisation review"]`
	replyPartSel   = `[aria-label="Organisation response"]`
)

var (
	ErrMalformedSummary = errors.New("scrape: review count summary has no trailing number")
	ErrMalformedBox     = errors.New("scrape: review box has no review element")
)

// ParseReviewCount reads the total from the summary line ("... of 23").
// ok is false when the page has no summary, i.e. the practice has no review list.
func ParseReviewCount(doc *goquery.Document) (total int, ok bool, err error) {
	sum := doc.Find(reviewCountSel).First()
	if sum.Length() == 0 {
		return 0, false, nil
	}
	toks := strings.Fields(sum.Text())
	if len(toks) == 0 {
		return 0, true, ErrMalformedSummary
	}
	n, valid := atoiLoose(toks[len(toks)-1])
	if !valid {
		return 0, true, fmt.Errorf("%w: %q", ErrMalformedSummary, strings.TrimSpace(sum.Text()))
	}
	return n, true, nil
}

// PageCount is ceil(total / PageSize).
func PageCount(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + PageSize - 1) / PageSize
}

// ReviewBoxes returns the review entries of one list page in page order.
func ReviewBoxes(doc *goquery.Document) []*goquery.Selection {
	var out []*goquery.Selection
	doc.Find(reviewBoxSel).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s)
	})
	return out
}

// ParseReviewBox extracts one review and its optional reply. A box without a
// review element returns ErrMalformedBox together with a record whose review
// fields are NA, so callers can keep the entry without dropping its position.
func ParseReviewBox(practiceID string, seq int, box *goquery.Selection) (domain.Review, error) {
	r := domain.Review{
		PracticeID: practiceID,
		Seq:        seq,
		ReplyText:  domain.Unavailable[string](domain.NoReply),
		ReplyDate:  domain.Unavailable[string](domain.NoReply),
	}
	if reply := box.Find(replyPartSel).First(); reply.Length() > 0 {
		r.ReplyText = ParseText(reply)
		r.ReplyDate = ParseDate(reply)
	}

	review := box.Find(reviewPartSel).First()
	if review.Length() == 0 {
		r.Text = domain.Unavailable[string](domain.NA)
		r.Date = domain.Unavailable[string](domain.NA)
		r.Rating = domain.Unavailable[int](domain.NA)
		return r, ErrMalformedBox
	}
	r.Text = ParseText(review)
	r.Date = ParseDate(review)
	r.Rating = ParseRating(review)
	return r, nil
}

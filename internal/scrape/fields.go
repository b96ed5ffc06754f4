package scrape

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"gp_reviews/internal/domain"
)

const (
	paragraphSel  = "p"
	finePrintSel  = ".fine-print"
	starRatingSel = ".star-rating"
	maxRating     = 5
)

// Anything outside letters, digits, whitespace and ,?/!:;_£-. is dropped from body text.
var disallowedChars = regexp.MustCompile(`[^a-zA-Z0-9\s,?/!:;_£\-.]`)

var months = map[string]int{
	"january": 1, "february": 2, "march": 3, "april": 4,
	"may": 5, "june": 6, "july": 7, "august": 8,
	"september": 9, "october": 10, "november": 11, "december": 12,
}

// ParseText returns the longest paragraph of a review or reply element.
// Metadata paragraphs are short; a lone paragraph means there is no body.
func ParseText(box *goquery.Selection) domain.Field[string] {
	ps := box.Find(paragraphSel)
	if ps.Length() <= 1 {
		return domain.Unavailable[string](domain.NoReply)
	}
	longest, best := "", -1
	ps.Each(func(_ int, p *goquery.Selection) {
		t := p.Text()
		if n := utf8.RuneCountInString(t); n > best {
			longest, best = t, n
		}
	})
	return domain.Present(strings.TrimSpace(disallowedChars.ReplaceAllString(longest, "")))
}

// ParseDate reads the trailing "day month-name year" of the fine print as YYYY-MM-DD.
// Dates only appear alongside a reply, so a missing fine print reads as "No reply".
func ParseDate(box *goquery.Selection) domain.Field[string] {
	fp := box.Find(finePrintSel).First()
	if fp.Length() == 0 {
		return domain.Unavailable[string](domain.NoReply)
	}
	toks := strings.Fields(fp.Text())
	if len(toks) < 3 {
		return domain.Unavailable[string](domain.NA)
	}
	day, err := strconv.Atoi(strings.TrimRightFunc(toks[len(toks)-3], notDigit))
	if err != nil {
		return domain.Unavailable[string](domain.NA)
	}
	month, ok := months[strings.ToLower(strings.TrimRight(toks[len(toks)-2], ","))]
	if !ok {
		return domain.Unavailable[string](domain.NA)
	}
	year, err := strconv.Atoi(strings.TrimRightFunc(toks[len(toks)-1], notDigit))
	if err != nil || day < 1 || day > 31 {
		return domain.Unavailable[string](domain.NA)
	}
	return domain.Present(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

// ParseRating counts the star glyphs; the source renders one character per star.
func ParseRating(box *goquery.Selection) domain.Field[int] {
	stars := box.Find(starRatingSel).First()
	if stars.Length() == 0 {
		return domain.Unavailable[int](domain.NoRating)
	}
	n := 0
	for _, r := range stars.Text() {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	if n > maxRating {
		return domain.Unavailable[int](domain.NoRating)
	}
	return domain.Present(n)
}

func notDigit(r rune) bool { return !unicode.IsDigit(r) }

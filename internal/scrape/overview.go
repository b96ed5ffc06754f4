package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"gp_reviews/internal/domain"
)

const (
	indicatorValueSel = ".indicator-value"
	indicatorTextSel  = ".indicator-text"
	addressSel        = `[itemprop="address"]`
)

type indicator int

const (
	indicatorPatients indicator = iota
	indicatorAvailability
	indicatorRecommend
)

// indicatorLabels maps a label fragment to the field it fills. Boxes vary in
// count and order between practices, so matching is by label, never position.
// The most specific fragment comes first: recommend labels may mention patients.
var indicatorLabels = []struct {
	fragment string
	kind     indicator
}{
	{"recommend", indicatorRecommend},
	{"availability", indicatorAvailability},
	{"patients", indicatorPatients},
}

var whitespaceRun = regexp.MustCompile(`\s{2,}`)

// ParseOverview extracts the indicator pairs and address of an available overview page.
// A malformed indicator leaves only its own field NA.
func ParseOverview(id string, doc *goquery.Document) domain.Overview {
	values := texts(doc.Find(indicatorValueSel))
	labels := texts(doc.Find(indicatorTextSel))

	var (
		patients       *domain.Field[int]
		eveningWeekend *domain.Field[string]
		fraction       *domain.Field[float64]
		sample         *domain.Field[int]
	)
	for i := 0; i < len(values) && i < len(labels); i++ {
		kind, ok := classifyLabel(labels[i])
		if !ok {
			continue
		}
		switch kind {
		case indicatorPatients:
			f := parsePatients(values[i])
			patients = &f
		case indicatorAvailability:
			f := parseAvailability(values[i])
			eveningWeekend = &f
		case indicatorRecommend:
			f := parseRecommendFraction(values[i])
			fraction = &f
			s := parseSampleSize(labels[i])
			sample = &s
		}
	}

	return domain.Overview{
		ID:                id,
		Patients:          orNA(patients),
		EveningWeekend:    orNA(eveningWeekend),
		RecommendFraction: orNA(fraction),
		RecommendSample:   orNA(sample),
		Address:           NormalizeAddress(doc.Find(addressSel).First().Text()),
	}
}

// NormalizeAddress removes every run of two or more whitespace characters, then trims.
func NormalizeAddress(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, ""))
}

func classifyLabel(label string) (indicator, bool) {
	low := strings.ToLower(label)
	for _, l := range indicatorLabels {
		if strings.Contains(low, l.fragment) {
			return l.kind, true
		}
	}
	return 0, false
}

func parsePatients(v string) domain.Field[int] {
	if n, ok := atoiLoose(v); ok {
		return domain.Present(n)
	}
	return domain.Unavailable[int](domain.NA)
}

func parseAvailability(v string) domain.Field[string] {
	v = strings.TrimSpace(v)
	if v == "" {
		return domain.Unavailable[string](domain.NA)
	}
	return domain.Present(v)
}

func parseRecommendFraction(v string) domain.Field[float64] {
	v = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), "%"))
	pct, err := strconv.ParseFloat(v, 64)
	if err != nil || pct < 0 || pct > 100 {
		return domain.Unavailable[float64](domain.NA)
	}
	return domain.Present(pct / 100)
}

// parseSampleSize reads the respondent count from the recommend label, which ends
// "... based on 150 responses". The second-to-last token is the count; labels
// phrased differently fall back to the last numeric token.
func parseSampleSize(label string) domain.Field[int] {
	toks := strings.Fields(label)
	if len(toks) >= 2 {
		if n, ok := atoiLoose(toks[len(toks)-2]); ok {
			return domain.Present(n)
		}
	}
	for i := len(toks) - 1; i >= 0; i-- {
		if n, ok := atoiLoose(toks[i]); ok {
			return domain.Present(n)
		}
	}
	return domain.Unavailable[int](domain.NA)
}

// atoiLoose accepts thousands separators and surrounding punctuation like "(1,234)".
func atoiLoose(s string) (int, bool) {
	s = strings.Trim(strings.TrimSpace(s), "().:;")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func orNA[T any](f *domain.Field[T]) domain.Field[T] {
	if f == nil {
		return domain.Unavailable[T](domain.NA)
	}
	return *f
}

func texts(sel *goquery.Selection) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}

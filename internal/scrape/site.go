// Package scrape turns NHS practice pages into domain records.
// Nothing in here fetches; callers hand in parsed documents.
package scrape

import (
	"fmt"
	"net/url"
	"strings"
)

const DefaultBase = "https://www.nhs.uk"

// PageSize is the number of reviews the source renders per list page.
const PageSize = 10

const (
	directoryPath = "/Services/Pages/HospitalList.aspx?chorg=GpBranch"
	overviewPath  = "/Services/GP/Overview/DefaultView.aspx?id=%s"
	reviewsPath   = "/Services/GP/ReviewsAndRatings/DefaultView.aspx?id=%s&pageno=%d"
)

// Site builds the fixed page URLs against a base host.
type Site struct{ Base string }

func NewSite(base string) Site {
	if base == "" {
		base = DefaultBase
	}
	return Site{Base: strings.TrimRight(base, "/")}
}

func (s Site) DirectoryURL() string { return s.Base + directoryPath }

func (s Site) OverviewURL(id string) string {
	return s.Base + fmt.Sprintf(overviewPath, url.QueryEscape(id))
}

func (s Site) ReviewsURL(id string, page int) string {
	return s.Base + fmt.Sprintf(reviewsPath, url.QueryEscape(id), page)
}

package scrape

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseIdentifiers returns the value of the first query parameter of every link
// that has one, in document order. Duplicates are kept.
func ParseIdentifiers(doc *goquery.Document) []string {
	var ids []string
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		if id, ok := identifierFromHref(a.AttrOr("href", "")); ok {
			ids = append(ids, id)
		}
	})
	return ids
}

func identifierFromHref(href string) (string, bool) {
	_, query, ok := strings.Cut(href, "?")
	if !ok {
		return "", false
	}
	query, _, _ = strings.Cut(query, "#")
	first, _, _ := strings.Cut(query, "&")
	_, v, ok := strings.Cut(first, "=")
	if !ok || v == "" {
		return "", false
	}
	if u, err := url.QueryUnescape(v); err == nil {
		v = u
	}
	return v, true
}

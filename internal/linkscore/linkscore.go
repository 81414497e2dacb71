// Package linkscore picks the internal link most likely to lead to a
// contact or about page.
package linkscore

import (
	"net/url"
	"strings"
)

// Link is one anchor on the current page: its visible text and absolute href.
type Link struct {
	Text string
	Href string
}

// DefaultKeywords covers the contact-page wordings seen across European
// company sites.
var DefaultKeywords = []string{
	"contact",
	"kontakt",
	"kontaktai",
	"contacto",
	"contatti",
	"contactez",
	"impressum",
	"about",
}

// Scoring weights: a keyword in the visible text is a stronger signal than
// one buried in the href.
const (
	textWeight = 10
	hrefWeight = 5
)

// Score sums keyword matches for a single link.
func Score(l Link, keywords []string) int {
	text := strings.ToLower(l.Text)
	href := strings.ToLower(l.Href)

	score := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			score += textWeight
		}
		if strings.Contains(href, kw) {
			score += hrefWeight
		}
	}
	return score
}

// Best returns the eligible link with the strictly highest positive score.
// Ties keep the first link encountered. ok is false when no link scores
// above zero.
func Best(baseURL string, links []Link, keywords []string) (best Link, score int, ok bool) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return Link{}, 0, false
	}

	for _, l := range links {
		if !Eligible(base, l.Href) {
			continue
		}
		if s := Score(l, keywords); s > score {
			best, score, ok = l, s, true
		}
	}
	return best, score, ok
}

// Eligible reports whether href is a same-host http(s) link worth following:
// javascript:, mailto:, tel: and bare fragments are navigation dead ends.
func Eligible(base *url.URL, href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return false
	}
	lower := strings.ToLower(href)
	for _, scheme := range []string{"javascript:", "mailto:", "tel:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}

	u, err := base.Parse(href)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(u.Hostname(), base.Hostname())
}

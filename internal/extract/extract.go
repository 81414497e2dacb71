// Package extract pulls email addresses and phone numbers out of fetched
// page HTML, either with regex heuristics or through an LLM endpoint.
package extract

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Result is a pair of deduplicated contact sets for one page fetch.
// Order is first-seen; emails are deduplicated case-insensitively and
// phones by their digit sequence.
type Result struct {
	Emails []string
	Phones []string
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return len(r.Emails) == 0 && len(r.Phones) == 0
}

// Merge unions two results, keeping first-seen order.
func Merge(a, b Result) Result {
	var out Result
	seenEmail := make(map[string]struct{})
	seenPhone := make(map[string]struct{})
	for _, e := range append(append([]string{}, a.Emails...), b.Emails...) {
		key := strings.ToLower(e)
		if _, ok := seenEmail[key]; ok {
			continue
		}
		seenEmail[key] = struct{}{}
		out.Emails = append(out.Emails, e)
	}
	for _, p := range append(append([]string{}, a.Phones...), b.Phones...) {
		key := nonDigit.ReplaceAllString(p, "")
		if _, ok := seenPhone[key]; ok {
			continue
		}
		seenPhone[key] = struct{}{}
		out.Phones = append(out.Phones, p)
	}
	return out
}

// Extractor turns one fetched page into a contact result. pageURL is the
// address the HTML came from; implementations must return an empty result
// rather than an error for "nothing found".
type Extractor interface {
	Extract(ctx context.Context, pageURL, html string) (Result, error)
}

// RegexExtractor is the heuristic extraction path: mailto:/tel: anchors
// first, then regex scanning of the visible page text.
type RegexExtractor struct{}

// Extract implements Extractor. The context and page URL are unused; regex
// extraction is purely local.
func (RegexExtractor) Extract(_ context.Context, _ string, html string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Result{}, err
	}

	var anchors Result
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		switch {
		case strings.HasPrefix(href, "mailto:"):
			if e := decodeSchemeTarget(href, "mailto:"); e != "" {
				anchors.Emails = append(anchors.Emails, e)
			}
		case strings.HasPrefix(href, "tel:"):
			if p := decodeSchemeTarget(href, "tel:"); p != "" {
				anchors.Phones = append(anchors.Phones, p)
			}
		}
	})

	doc.Find("script, style, noscript").Remove()
	text := doc.Text()

	var scanned Result
	for _, m := range emailPattern.FindAllString(text, -1) {
		scanned.Emails = append(scanned.Emails, m)
	}
	for _, re := range phonePatterns {
		for _, m := range re.FindAllString(text, -1) {
			scanned.Phones = append(scanned.Phones, strings.TrimSpace(m))
		}
	}

	return filter(Merge(anchors, scanned)), nil
}

// decodeSchemeTarget strips the scheme and any query part from a mailto:
// or tel: href and percent-decodes what remains.
func decodeSchemeTarget(href, scheme string) string {
	v := strings.TrimPrefix(href, scheme)
	if i := strings.IndexAny(v, "?#"); i != -1 {
		v = v[:i]
	}
	if dec, err := url.QueryUnescape(v); err == nil {
		v = dec
	}
	return strings.TrimSpace(v)
}

// filter drops junk emails and phones with an implausible digit count.
func filter(r Result) Result {
	var out Result
	for _, e := range r.Emails {
		if isJunkEmail(e) {
			continue
		}
		out.Emails = append(out.Emails, e)
	}
	for _, p := range r.Phones {
		digits := nonDigit.ReplaceAllString(p, "")
		if len(digits) < phoneMinDigits || len(digits) > phoneMaxDigits {
			continue
		}
		out.Phones = append(out.Phones, p)
	}
	return out
}

func isJunkEmail(e string) bool {
	lower := strings.ToLower(e)
	for _, junk := range junkEmailSubstrings {
		if strings.Contains(lower, junk) {
			return true
		}
	}
	return false
}

// CleanText returns the visible text of the page with script, style and
// noscript content removed and whitespace collapsed, truncated to limit
// bytes. It feeds the AI extraction path.
func CleanText(html string, limit int) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Text()), " ")
	if limit > 0 && len(text) > limit {
		text = text[:limit]
	}
	return text
}

// Package scrape runs the sequential contact-harvesting pipeline: pending
// rows are fetched one at a time, contacts extracted, and the workbook
// persisted after every row.
package scrape

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/log"

	"contactscrape/internal/browser"
	"contactscrape/internal/extract"
	"contactscrape/internal/linkscore"
	"contactscrape/internal/workbook"
)

// Fetcher loads one page in the shared browser session.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*browser.Page, error)
}

// Options tune the pipeline loop.
type Options struct {
	Keywords []string      // contact-link keywords; nil means linkscore.DefaultKeywords
	RowDelay time.Duration // pause between rows
	Spinner  bool          // show a per-site activity spinner
}

// Summary reports what one run did.
type Summary struct {
	Processed  int
	Found      int
	NotFound   int
	Errors     int
	Duplicates int
}

// Scraper owns the run state. The processed-URL set lives for one run only
// and is never persisted.
type Scraper struct {
	wb        *workbook.Workbook
	fetcher   Fetcher
	extractor extract.Extractor
	keywords  []string
	rowDelay  time.Duration
	spin      *spinner.Spinner
	processed map[string]struct{}
}

// New builds a scraper over an open workbook.
func New(wb *workbook.Workbook, fetcher Fetcher, extractor extract.Extractor, opts Options) *Scraper {
	keywords := opts.Keywords
	if keywords == nil {
		keywords = linkscore.DefaultKeywords
	}
	s := &Scraper{
		wb:        wb,
		fetcher:   fetcher,
		extractor: extractor,
		keywords:  keywords,
		rowDelay:  opts.RowDelay,
		processed: make(map[string]struct{}),
	}
	if opts.Spinner {
		s.spin = spinner.New(spinner.CharSets[9], 100*time.Millisecond)
	}
	return s
}

// Run processes up to n pending rows. Cancelling ctx stops after the row in
// flight; the workbook is already saved through the last completed row.
func (s *Scraper) Run(ctx context.Context, n int) (Summary, error) {
	candidates, err := s.wb.Pending(n)
	if err != nil {
		return Summary{}, err
	}
	if len(candidates) == 0 {
		log.Info("all rows already have contact information")
		return Summary{}, nil
	}
	log.Info("found rows to process", "count", len(candidates))

	var sum Summary
	for i, cand := range candidates {
		if ctx.Err() != nil {
			log.Warn("interrupted, stopping", "completed", sum.Processed)
			break
		}
		log.Info("progress", "row", i+1, "of", len(candidates), "url", cand.URL)

		email, phone := s.scrapeSite(ctx, cand.URL)
		switch email {
		case workbook.Duplicate:
			sum.Duplicates++
		case workbook.ErrorMark:
			sum.Errors++
		case workbook.NotFound:
			if phone == workbook.NotFound {
				sum.NotFound++
			} else {
				sum.Found++
			}
		default:
			sum.Found++
		}

		if err := s.wb.SetResult(cand.Row, email, phone); err != nil {
			return sum, fmt.Errorf("failed to update row %d: %w", cand.Row, err)
		}
		if err := s.wb.Save(); err != nil {
			return sum, fmt.Errorf("failed to save spreadsheet: %w", err)
		}
		sum.Processed++
		log.Info("progress saved", "row", cand.Row, "email", email, "phone", phone)

		if i < len(candidates)-1 && s.rowDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(s.rowDelay):
			}
		}
	}
	return sum, nil
}

// scrapeSite handles one website end to end and returns the two cell
// values. Any fetch or extract failure yields the Error sentinel; a repeat
// of an already-processed URL yields Duplicate for both fields.
func (s *Scraper) scrapeSite(ctx context.Context, rawURL string) (email, phone string) {
	target := ensureScheme(rawURL)
	norm := NormalizeURL(rawURL)
	if _, done := s.processed[norm]; done {
		log.Info("duplicate URL, skipping", "url", rawURL)
		return workbook.Duplicate, workbook.Duplicate
	}

	s.spinStart(target)
	defer s.spinStop()

	page, err := s.fetcher.Fetch(ctx, target)
	if err != nil {
		log.Error("failed to load site", "url", target, "error", err)
		return workbook.ErrorMark, workbook.ErrorMark
	}

	result, err := s.extractor.Extract(ctx, page.URL, page.HTML)
	if err != nil {
		log.Error("extraction failed", "url", page.URL, "error", err)
		return workbook.ErrorMark, workbook.ErrorMark
	}

	if contact, score, ok := linkscore.Best(page.URL, page.Links, s.keywords); ok {
		log.Info("following contact page", "href", contact.Href, "score", score)
		if contactPage, err := s.fetcher.Fetch(ctx, contact.Href); err != nil {
			log.Warn("contact page failed, keeping homepage results", "href", contact.Href, "error", err)
		} else if contactResult, err := s.extractor.Extract(ctx, contactPage.URL, contactPage.HTML); err == nil {
			result = extract.Merge(result, contactResult)
		}
	}

	s.processed[norm] = struct{}{}

	email = workbook.NotFound
	phone = workbook.NotFound
	if len(result.Emails) > 0 {
		email = strings.Join(result.Emails, ", ")
		log.Info("found emails", "url", target, "emails", email)
	}
	if len(result.Phones) > 0 {
		phone = strings.Join(result.Phones, ", ")
		log.Info("found phones", "url", target, "phones", phone)
	}
	return email, phone
}

func (s *Scraper) spinStart(url string) {
	if s.spin == nil {
		return
	}
	s.spin.Suffix = " " + truncateURL(url, 60)
	s.spin.Start()
}

func (s *Scraper) spinStop() {
	if s.spin == nil {
		return
	}
	s.spin.Stop()
}

// ensureScheme defaults bare hostnames to https.
func ensureScheme(rawURL string) string {
	if strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return "https://" + strings.TrimPrefix(rawURL, "//")
}

// NormalizeURL collapses spelling variants of the same site so duplicate
// rows are caught: scheme differences, host case, fragments and a trailing
// slash all normalize away.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(ensureScheme(strings.TrimSpace(rawURL)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(rawURL))
	}
	u.Scheme = "https"
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

func truncateURL(url string, max int) string {
	if len(url) <= max {
		return url
	}
	return url[:max-3] + "..."
}

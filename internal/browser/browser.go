// Package browser drives a single headless Chrome session over chromedp.
// One session is created per run and reused serially for every site.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"

	"contactscrape/internal/linkscore"
)

// Page is everything the pipeline needs from one navigation: the final URL
// after redirects, the rendered page source and the anchors on it.
type Page struct {
	URL   string
	HTML  string
	Links []linkscore.Link
}

// Session is one long-lived browser used for the whole run.
type Session struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
}

// settleDelay gives client-side rendering a moment after the body is ready.
const settleDelay = 2 * time.Second

// NewSession launches Chrome. A failed launch is reported immediately
// rather than on the first navigation.
func NewSession(headless bool, userAgent string, timeout time.Duration) (*Session, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(userAgent),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	startCtx, cancel := context.WithTimeout(browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	s := &Session{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       timeout,
	}
	log.Info("browser started", "headless", headless)
	return s, nil
}

// Close shuts the browser down.
func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
	log.Info("browser closed")
}

// Fetch navigates to url, dismisses any cookie banner, and returns the
// rendered page with its links.
func (s *Session) Fetch(ctx context.Context, url string) (*Page, error) {
	navCtx, cancel := context.WithTimeout(s.browserCtx, s.timeout)
	defer cancel()
	go func() {
		// Propagate caller cancellation (interrupt) into the navigation.
		select {
		case <-ctx.Done():
			cancel()
		case <-navCtx.Done():
		}
	}()

	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(settleDelay),
	); err != nil {
		return nil, fmt.Errorf("navigation to %s failed: %w", url, err)
	}

	s.dismissCookieBanner(navCtx)

	page := &Page{}
	if err := chromedp.Run(navCtx, chromedp.Location(&page.URL)); err != nil {
		return nil, fmt.Errorf("failed to read current URL: %w", err)
	}
	if err := chromedp.Run(navCtx, chromedp.OuterHTML("html", &page.HTML, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("failed to read page source: %w", err)
	}

	links, err := s.collectLinks(navCtx)
	if err != nil {
		// Links only matter for contact-page discovery; extraction can
		// still run on the page source.
		log.Debug("link collection failed", "url", url, "error", err)
	}
	page.Links = links

	return page, nil
}

// cookieSelectors are common consent-button targets tried by CSS query.
var cookieSelectors = []string{
	`#accept-cookies`,
	`.cookie-accept`,
	`button[aria-label="Accept all"]`,
	`button[aria-label="Accept all cookies"]`,
	`button[aria-label="I agree"]`,
	`#onetrust-accept-btn-handler`,
}

// cookieTexts are consent-button labels tried by XPath when no known
// selector matches.
var cookieTexts = []string{"accept", "agree", "sutinku", "akzeptieren"}

// dismissCookieBanner clicks through common consent dialogs. Every attempt
// is best-effort with a short timeout; failure to find a banner is normal.
func (s *Session) dismissCookieBanner(ctx context.Context) {
	for _, sel := range cookieSelectors {
		if s.tryClick(ctx, sel, chromedp.ByQuery) {
			log.Debug("accepted cookies", "selector", sel)
			return
		}
	}
	for _, text := range cookieTexts {
		xp := fmt.Sprintf(
			`//button[contains(translate(., 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz'), %q)]`,
			strings.ToLower(text))
		if s.tryClick(ctx, xp, chromedp.BySearch) {
			log.Debug("accepted cookies", "text", text)
			return
		}
	}
}

func (s *Session) tryClick(ctx context.Context, sel string, opt chromedp.QueryOption) bool {
	clickCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := chromedp.Run(clickCtx,
		chromedp.Click(sel, opt, chromedp.NodeVisible),
		chromedp.Sleep(time.Second),
	)
	return err == nil
}

// collectLinks enumerates anchors as (visible text, absolute href) pairs.
func (s *Session) collectLinks(ctx context.Context) ([]linkscore.Link, error) {
	const js = `(() => {
		const anchors = Array.from(document.querySelectorAll('a[href]'));
		return anchors.map(a => ({
			text: (a.innerText || a.textContent || '').trim().slice(0, 200),
			href: a.href || ''
		})).filter(l => l.href);
	})()`

	var raw []struct {
		Text string `json:"text"`
		Href string `json:"href"`
	}
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &raw)); err != nil {
		return nil, err
	}

	links := make([]linkscore.Link, 0, len(raw))
	for _, l := range raw {
		links = append(links, linkscore.Link{Text: l.Text, Href: l.Href})
	}
	return links, nil
}

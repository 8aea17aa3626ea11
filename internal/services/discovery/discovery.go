// Package discovery finds a dealership's staff page and extracts contacts
// from it, cascading through platform-specific paths, generic paths, the
// site navigation, and sitemap.xml.
package discovery

import (
	"context"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/xmlquery"

	"dealerscout/internal/browser"
	"dealerscout/internal/domain"
	"dealerscout/internal/platform"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/detector"
	"dealerscout/internal/services/extractor"
)

// Result is the crawl outcome for one site.
type Result struct {
	Detection domain.DetectionResult
	StaffURL  string
	Contacts  []domain.Contact
}

// Options tune the crawl pacing and the contact-page fallback threshold.
type Options struct {
	DelayMin    time.Duration
	DelayMax    time.Duration
	MinContacts int
}

// Service runs staff-page discovery over a page pool. Both the headless
// browser pool and the static fetcher satisfy the pool interface.
type Service struct {
	pool ports.PagePool
	opts Options
}

func New(pool ports.PagePool, opts Options) *Service {
	if opts.DelayMin <= 0 {
		opts.DelayMin = 1500 * time.Millisecond
	}
	if opts.DelayMax < opts.DelayMin {
		opts.DelayMax = 3 * time.Second
	}
	if opts.MinContacts <= 0 {
		opts.MinContacts = 2
	}
	return &Service{pool: pool, opts: opts}
}

var staffIndicators = []string{
	"staff", "team member", "our team", "meet the team",
	"management", "leadership", "employees", "our people",
}

var staffCardSelector = "[class*='staff'], [class*='team'], [class*='employee'], [class*='person']"

var staffEmailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// Discover crawls one site: detect the platform from the homepage, locate a
// staff page, and extract contacts. platformHint, when it names a known
// platform, picks the selector profile directly; homepage detection still
// runs and serves as the fallback. Failures at any single step move the
// cascade along; only pool acquisition errors are returned.
func (s *Service) Discover(ctx context.Context, baseURL, platformHint string) (Result, error) {
	pg, err := s.pool.Acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer pg.Release()

	siteDomain := hostOf(baseURL)
	res := Result{Detection: domain.DetectionResult{Platform: platform.Unknown, Method: detector.MethodNone}}

	var homepage *domain.PageResult
	if home, err := pg.Navigate(ctx, baseURL); err != nil {
		log.Printf("discovery: homepage fetch failed for %s: %v", baseURL, err)
	} else if home.Status < 400 && !browser.IsChallengePage(home) {
		pg.DismissCookieConsent(ctx)
		res.Detection = detector.Detect(home.HTML)
		if !pg.DetectCAPTCHA(ctx) {
			homepage = home
		}
	}

	profile := platform.Lookup(res.Detection.Platform)
	if p := platform.Lookup(platformHint); p != nil {
		profile = p
	}

	staffURL := ""
	if profile != nil && len(profile.StaffPagePaths) > 0 {
		staffURL = s.findByPath(ctx, pg, baseURL, profile.StaffPagePaths, true)
	}
	if staffURL == "" {
		staffURL = s.findByPath(ctx, pg, baseURL, platform.GenericStaffPaths, true)
	}
	if staffURL == "" && homepage != nil {
		staffURL = findFromNav(homepage.HTML, baseURL)
	}
	if staffURL == "" {
		staffURL = s.findFromSitemap(ctx, pg, baseURL)
	}

	if staffURL != "" {
		log.Printf("discovery: found staff page %s", staffURL)
		res.StaffURL = staffURL
		res.Contacts = s.extractFromPage(ctx, pg, staffURL, siteDomain, profile)
	}

	// Thin result: fall back to the contact page, without requiring
	// staff-page indicators.
	if len(res.Contacts) < s.opts.MinContacts {
		contactPaths := platform.GenericContactPaths
		if profile != nil && len(profile.ContactPagePaths) > 0 {
			contactPaths = profile.ContactPagePaths
		}
		contactURL := s.findByPath(ctx, pg, baseURL, contactPaths, false)
		if contactURL != "" && contactURL != staffURL {
			log.Printf("discovery: trying contact page fallback %s", contactURL)
			extra := s.extractFromPage(ctx, pg, contactURL, siteDomain, profile)
			res.Contacts = mergeByEmail(res.Contacts, extra)
			if res.StaffURL == "" && len(res.Contacts) > 0 {
				res.StaffURL = contactURL
			}
		}
	}

	if len(res.Contacts) == 0 {
		log.Printf("discovery: no staff/contacts found for %s", baseURL)
	}
	return res, nil
}

// findByPath probes candidate paths in order and returns the first that
// answers 200 and, when required, passes the staff-page heuristic.
func (s *Service) findByPath(ctx context.Context, pg ports.PageSession, baseURL string, paths []string, requireIndicators bool) string {
	for _, path := range paths {
		target := resolveURL(baseURL, path)
		if target == "" {
			continue
		}
		page, err := pg.Navigate(ctx, target)
		if err != nil {
			continue
		}
		if page.Status == 200 && (!requireIndicators || LooksLikeStaffPage(page.HTML)) {
			return target
		}
		if err := browser.HumanDelay(ctx, 500*time.Millisecond, time.Second); err != nil {
			return ""
		}
	}
	return ""
}

// findFromNav scans the homepage navigation for staff-sounding links.
func findFromNav(homepageHTML, baseURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(homepageHTML))
	if err != nil {
		return ""
	}

	found := ""
	doc.Find(`nav a, header a, .menu a, [class*="nav"] a`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		text := strings.ToLower(strings.TrimSpace(a.Text()))
		href, ok := a.Attr("href")
		if !ok || text == "" || href == "" || strings.HasPrefix(href, "javascript:") {
			return true
		}
		for _, kw := range platform.NavKeywords {
			if strings.Contains(text, kw) {
				found = resolveURL(baseURL, href)
				return false
			}
		}
		return true
	})
	return found
}

var locRe = regexp.MustCompile(`(?is)<loc>\s*(.*?)\s*</loc>`)

// findFromSitemap fetches /sitemap.xml and returns the first URL containing
// a staff keyword. Rendered sitemaps are not always well-formed XML, so a
// regex scan backs up the parser.
func (s *Service) findFromSitemap(ctx context.Context, pg ports.PageSession, baseURL string) string {
	target := resolveURL(baseURL, "/sitemap.xml")
	page, err := pg.Navigate(ctx, target)
	if err != nil || page.Status != 200 {
		return ""
	}

	var locs []string
	if doc, err := xmlquery.Parse(strings.NewReader(page.HTML)); err == nil {
		for _, n := range xmlquery.Find(doc, "//loc") {
			locs = append(locs, strings.TrimSpace(n.InnerText()))
		}
	} else {
		for _, m := range locRe.FindAllStringSubmatch(page.HTML, -1) {
			locs = append(locs, strings.TrimSpace(m[1]))
		}
	}

	for _, loc := range locs {
		lower := strings.ToLower(loc)
		for _, kw := range platform.SitemapKeywords {
			if strings.Contains(lower, kw) {
				return loc
			}
		}
	}
	return ""
}

func (s *Service) extractFromPage(ctx context.Context, pg ports.PageSession, target, siteDomain string, profile *platform.Profile) []domain.Contact {
	page, err := pg.Navigate(ctx, target)
	if err != nil {
		log.Printf("discovery: fetch failed for %s: %v", target, err)
		return nil
	}
	if page.Status >= 400 || browser.IsChallengePage(page) {
		return nil
	}

	pg.DismissCookieConsent(ctx)
	if err := browser.HumanDelay(ctx, s.opts.DelayMin, s.opts.DelayMax); err != nil {
		return nil
	}
	if pg.DetectCAPTCHA(ctx) {
		return nil
	}

	contacts := extractor.Extract(page.HTML, siteDomain, profile)
	log.Printf("discovery: extracted %d contacts from %s", len(contacts), target)
	return contacts
}

// LooksLikeStaffPage is the heuristic gate for path probing: at least two
// staff-section indicators, or three emails, or two card-shaped elements.
func LooksLikeStaffPage(pageHTML string) bool {
	lower := strings.ToLower(pageHTML)

	indicatorCount := 0
	for _, ind := range staffIndicators {
		if strings.Contains(lower, ind) {
			indicatorCount++
		}
	}
	if indicatorCount >= 2 {
		return true
	}

	if len(staffEmailRe.FindAllString(pageHTML, -1)) >= 3 {
		return true
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML)); err == nil {
		if doc.Find(staffCardSelector).Length() >= 2 {
			return true
		}
	}
	return false
}

// mergeByEmail appends extras whose email is unseen; emailless extras are
// kept when they at least carry a name.
func mergeByEmail(contacts, extra []domain.Contact) []domain.Contact {
	seen := make(map[string]bool, len(contacts))
	for _, c := range contacts {
		if c.Email != "" {
			seen[strings.ToLower(c.Email)] = true
		}
	}
	for _, c := range extra {
		email := strings.ToLower(c.Email)
		switch {
		case email != "" && !seen[email]:
			contacts = append(contacts, c)
			seen[email] = true
		case email == "" && c.Name != "":
			contacts = append(contacts, c)
		}
	}
	return contacts
}

func resolveURL(baseURL, ref string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return base.ResolveReference(rel).String()
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

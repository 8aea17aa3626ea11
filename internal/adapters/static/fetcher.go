// Package static is the browserless page fetcher. It satisfies the same
// pool/session interfaces as the headless browser, for sites that render
// server-side and for test/CI environments without Chromium.
package static

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gocolly/colly"
	"github.com/temoto/robotstxt"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

const defaultAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// ErrRobotsDisallowed means robots.txt forbids fetching the URL.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Fetcher hands out static page sessions. Robots rules are fetched once per
// host and cached for the fetcher's lifetime.
type Fetcher struct {
	agent   string
	timeout time.Duration

	mu     sync.Mutex
	robots map[string]*robotstxt.RobotsData
}

var _ ports.PagePool = (*Fetcher)(nil)

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		agent:   defaultAgent,
		timeout: timeout,
		robots:  make(map[string]*robotstxt.RobotsData),
	}
}

// Acquire returns a session. Static sessions are cheap; there is no
// capacity limit to wait for.
func (f *Fetcher) Acquire(ctx context.Context) (ports.PageSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(f.agent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(), // robots are checked explicitly, with caching
	)
	c.SetRequestTimeout(f.timeout)
	_ = c.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 2,
		RandomDelay: 500 * time.Millisecond,
	})

	return &session{fetcher: f, collector: c}, nil
}

type session struct {
	fetcher   *Fetcher
	collector *colly.Collector
	lastHTML  string
}

// Navigate fetches the URL and returns the raw document. Non-2xx statuses
// are results, not errors; the caller inspects Status.
func (s *session) Navigate(ctx context.Context, target string) (*domain.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	allowed, err := s.fetcher.allowed(target)
	if err == nil && !allowed {
		return nil, fmt.Errorf("fetch %s: %w", target, ErrRobotsDisallowed)
	}

	var result *domain.PageResult
	capture := func(r *colly.Response) {
		header := http.Header{}
		if r.Headers != nil {
			header = r.Headers.Clone()
		}
		result = &domain.PageResult{
			URL:    r.Request.URL.String(),
			Status: r.StatusCode,
			HTML:   string(r.Body),
			Header: header,
		}
	}

	c := s.collector.Clone()
	c.OnResponse(capture)
	c.OnError(func(r *colly.Response, _ error) {
		if r != nil && r.StatusCode != 0 {
			capture(r)
		}
	})

	visitErr := c.Visit(target)
	c.Wait()

	if result == nil {
		if visitErr != nil {
			return nil, fmt.Errorf("fetch %s: %w", target, visitErr)
		}
		return nil, fmt.Errorf("fetch %s: no response", target)
	}
	s.lastHTML = result.HTML
	return result, nil
}

// DismissCookieConsent is a no-op without a DOM to click in.
func (s *session) DismissCookieConsent(ctx context.Context) bool { return false }

// DetectCAPTCHA scans the last fetched document for CAPTCHA markup.
func (s *session) DetectCAPTCHA(ctx context.Context) bool {
	lower := strings.ToLower(s.lastHTML)
	for _, marker := range []string{"captcha", "recaptcha", "hcaptcha"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func (s *session) Release() {}

// allowed consults the host's robots.txt, fetching and caching it on first
// use. Hosts without a readable robots.txt allow everything.
func (f *Fetcher) allowed(target string) (bool, error) {
	u, err := url.Parse(target)
	if err != nil {
		return false, err
	}
	host := u.Scheme + "://" + u.Host

	f.mu.Lock()
	data, ok := f.robots[host]
	f.mu.Unlock()

	if !ok {
		data = f.fetchRobots(host)
		f.mu.Lock()
		f.robots[host] = data
		f.mu.Unlock()
	}
	if data == nil {
		return true, nil
	}
	return data.TestAgent(u.Path, f.agent), nil
}

func (f *Fetcher) fetchRobots(host string) *robotstxt.RobotsData {
	client := &http.Client{Timeout: f.timeout}
	resp, err := client.Get(host + "/robots.txt")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}

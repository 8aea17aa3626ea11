package browser

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"dealerscout/internal/domain"
)

// Realistic user agents to rotate through.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 Chrome/121.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:122.0) Gecko/20100101 Firefox/122.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 Version/17.2 Safari/605.1.15",
}

type viewport struct{ Width, Height int64 }

var viewports = []viewport{
	{1280, 900},
	{1366, 768},
	{1440, 900},
	{1536, 864},
	{1920, 1080},
}

// Header set matching a real Chrome navigation.
var extraHeaders = map[string]any{
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.9",
	"Accept-Encoding":           "gzip, deflate, br",
	"DNT":                       "1",
	"Upgrade-Insecure-Requests": "1",
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "none",
	"Sec-Fetch-User":            "?1",
	"Cache-Control":             "max-age=0",
}

// stealthJS runs before any page script and masks the usual automation
// giveaways: webdriver flag, plugin list, languages, hardware shape and the
// network-connection object.
const stealthJS = `(() => {
    Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

    window.chrome = { runtime: {} };

    const originalQuery = window.navigator.permissions.query;
    window.navigator.permissions.query = (parameters) => (
        parameters.name === 'notifications' ?
            Promise.resolve({ state: Notification.permission }) :
            originalQuery(parameters)
    );

    Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
    Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
    Object.defineProperty(navigator, 'platform', { get: () => 'Win32' });
    Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
    Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
    Object.defineProperty(navigator, 'connection', {
        get: () => ({ effectiveType: '4g', rtt: 50, downlink: 10, saveData: false })
    });

    Object.defineProperty(HTMLIFrameElement.prototype, 'contentWindow', {
        get: function() { return window; }
    });
})()`

const cookieDismissJS = `(() => {
    const selectors = [
        '[id*="cookie"] button[class*="accept"]',
        '[id*="cookie"] button[class*="agree"]',
        '[class*="cookie"] button[class*="accept"]',
        '[class*="cookie"] button[class*="agree"]',
        '[id*="consent"] button[class*="accept"]',
        'button[id*="accept-cookie"]',
        'button[id*="acceptCookie"]',
        'a[id*="accept-cookie"]',
        '#onetrust-accept-btn-handler',
        '.cc-accept',
        '.cc-dismiss',
    ];
    for (const selector of selectors) {
        const btn = document.querySelector(selector);
        if (btn) { btn.click(); return true; }
    }
    return false;
})()`

const captchaDetectJS = `(() => {
    const indicators = [
        document.querySelector('[class*="captcha"]'),
        document.querySelector('[id*="captcha"]'),
        document.querySelector('[class*="recaptcha"]'),
        document.querySelector('[id*="recaptcha"]'),
        document.querySelector('iframe[src*="recaptcha"]'),
        document.querySelector('iframe[src*="hcaptcha"]'),
    ];
    return indicators.some(el => el !== null);
})()`

func pickUserAgent() string { return userAgents[rand.Intn(len(userAgents))] }
func pickViewport() viewport { return viewports[rand.Intn(len(viewports))] }

// HumanDelay sleeps for a uniformly random duration in [min,max], returning
// early if the context is done.
func HumanDelay(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		d = min + time.Duration(rand.Int63n(int64(max-min)))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var challengeHeaders = []string{"cf-ray", "cf-cache-status", "cf-mitigated"}

var challengeMarkers = []string{
	"just a moment",
	"attention required",
	"cf-browser-verification",
	"cf-turnstile",
	"challenge-form",
	"challenge-running",
	"challenges.cloudflare.com",
}

// IsChallengePage reports whether a fetched page is an anti-bot challenge,
// checking response headers (403/503 behind a CDN shield) and DOM/title
// markers in the rendered HTML.
func IsChallengePage(res *domain.PageResult) bool {
	if res == nil {
		return false
	}
	if res.Status == 403 || res.Status == 503 {
		for _, h := range challengeHeaders {
			if res.Header.Get(h) != "" {
				return true
			}
		}
	}
	lower := strings.ToLower(res.HTML)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

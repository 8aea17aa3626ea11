// Package companies holds domain and company-name helpers shared by the
// enqueue path and the enrichment pipeline.
package companies

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var ErrInvalidDomain = errors.New("invalid domain")

// ExtractDomain pulls a bare domain out of a URL or host string, without the
// www prefix. Returns ErrInvalidDomain for values that cannot name a site.
func ExtractDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDomain
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidDomain
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if !strings.Contains(host, ".") || len(host) < 3 {
		return "", ErrInvalidDomain
	}
	return host, nil
}

// RegistrableDomain reduces a host to its eTLD+1, the unit discoveries are
// keyed by ("sales.example.co.uk" -> "example.co.uk").
func RegistrableDomain(host string) (string, error) {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")
	etld1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return "", ErrInvalidDomain
	}
	return etld1, nil
}

// DeriveName builds a display company name from a domain when no better
// source exists: "smith-honda.com" -> "Smith Honda".
func DeriveName(siteDomain string) string {
	if siteDomain == "" {
		return ""
	}
	main, _, _ := strings.Cut(siteDomain, ".")
	main = strings.ReplaceAll(main, "-", " ")
	main = strings.ReplaceAll(main, "_", " ")

	words := strings.Fields(main)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

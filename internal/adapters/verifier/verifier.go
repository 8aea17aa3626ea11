// Package verifier checks email deliverability through format and DNS
// levels. Mailbox-level SMTP probing is intentionally not performed; most
// mail hosts block it and the signal is unreliable.
package verifier

import (
	"context"
	"errors"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

var emailFormatRe = regexp.MustCompile(
	`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@` +
		`[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?` +
		`(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)

var roleAddresses = map[string]bool{
	"info": true, "admin": true, "support": true, "sales": true,
	"contact": true, "help": true, "webmaster": true, "postmaster": true,
	"abuse": true, "noreply": true, "no-reply": true, "marketing": true,
	"billing": true, "accounts": true, "service": true, "office": true,
	"team": true, "hello": true, "general": true, "enquiries": true,
	"inquiries": true,
}

var disposableDomains = map[string]bool{
	"mailinator.com": true, "guerrillamail.com": true, "tempmail.com": true,
	"throwaway.email": true, "yopmail.com": true, "sharklasers.com": true,
	"guerrillamailblock.com": true, "grr.la": true, "dispostable.com": true,
	"trashmail.com": true, "10minutemail.com": true, "temp-mail.org": true,
	"fakeinbox.com": true, "mailnesia.com": true, "maildrop.cc": true,
}

type Options struct {
	DomainTimeout time.Duration
	CacheTTL      time.Duration
}

type cached struct {
	result  domain.Verification
	expires time.Time
}

// Service verifies emails with a per-address result cache.
type Service struct {
	resolver *net.Resolver
	opts     Options

	mu    sync.Mutex
	cache map[string]cached
}

var _ ports.EmailVerifier = (*Service)(nil)

func New(opts Options) *Service {
	if opts.DomainTimeout <= 0 {
		opts.DomainTimeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Service{resolver: net.DefaultResolver, opts: opts, cache: make(map[string]cached)}
}

// Verify runs format checks then a DNS MX lookup (A record as fallback).
// DNS trouble yields status "unknown" rather than an error.
func (s *Service) Verify(ctx context.Context, email string) (domain.Verification, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return domain.Verification{Status: "invalid", Confidence: 1, Level: "format", Issues: []string{"Empty email input"}}, nil
	}

	s.mu.Lock()
	if c, ok := s.cache[email]; ok && time.Now().Before(c.expires) {
		s.mu.Unlock()
		return c.result, nil
	}
	s.mu.Unlock()

	result := s.verify(ctx, email)

	s.mu.Lock()
	s.cache[email] = cached{result: result, expires: time.Now().Add(s.opts.CacheTTL)}
	s.mu.Unlock()
	return result, nil
}

func (s *Service) verify(ctx context.Context, email string) domain.Verification {
	valid, confidence, issues := verifyFormat(email)
	if !valid {
		return domain.Verification{Status: "invalid", Confidence: 1, Level: "format", Issues: issues}
	}

	_, host, _ := strings.Cut(email, "@")
	dnsValid, dnsConfidence, uncertain, dnsIssues := s.verifyDomain(ctx, host)
	issues = append(issues, dnsIssues...)
	confidence = max(confidence, dnsConfidence)

	switch {
	case !dnsValid && uncertain:
		return domain.Verification{Status: "unknown", Confidence: dnsConfidence, Level: "domain", Issues: issues}
	case !dnsValid:
		return domain.Verification{Status: "invalid", Confidence: dnsConfidence, Level: "domain", Issues: issues}
	}

	status := "valid"
	isValid := confidence >= 0.5
	if !isValid {
		status = "risky"
	}
	return domain.Verification{Valid: isValid, Status: status, Confidence: confidence, Level: "domain", Issues: issues}
}

func verifyFormat(email string) (valid bool, confidence float64, issues []string) {
	if !emailFormatRe.MatchString(email) {
		return false, 1, []string{"Invalid email format"}
	}
	confidence = 0.3

	local, host, _ := strings.Cut(email, "@")
	valid = true

	if len(local) > 64 {
		issues = append(issues, "Local part exceeds 64 characters")
		valid = false
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		issues = append(issues, "Local part starts or ends with a dot")
		valid = false
	}
	if strings.Contains(local, "..") {
		issues = append(issues, "Local part contains consecutive dots")
		valid = false
	}
	if len(host) > 253 {
		issues = append(issues, "Domain exceeds 253 characters")
		valid = false
	}
	if !strings.Contains(host, ".") {
		issues = append(issues, "Domain has no TLD")
		valid = false
	}
	if roleAddresses[local] {
		issues = append(issues, "Role-based email address (not personal)")
		confidence -= 0.1
	}
	if disposableDomains[host] {
		issues = append(issues, "Disposable email domain")
		valid = false
	}
	if valid && len(issues) == 0 {
		confidence = 0.4
	}
	return valid, confidence, issues
}

func (s *Service) verifyDomain(ctx context.Context, host string) (valid bool, confidence float64, uncertain bool, issues []string) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.DomainTimeout)
	defer cancel()

	mx, err := s.resolver.LookupMX(ctx, host)
	if err == nil && len(mx) > 0 {
		return true, 0.7, false, nil
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			// Domain may still receive mail on its A record.
			if addrs, aErr := s.resolver.LookupHost(ctx, host); aErr == nil && len(addrs) > 0 {
				return true, 0.5, false, []string{"No MX records but A record exists for domain: " + host}
			}
			return false, 0.9, false, []string{"No MX or A records for domain: " + host}
		}
		if dnsErr.IsTimeout {
			return false, 0.3, true, []string{"DNS lookup timed out for domain: " + host}
		}
	}
	return false, 0.3, true, []string{"DNS verification error for domain: " + host}
}

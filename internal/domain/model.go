package domain

import (
	"net/http"
	"time"
)

// Core domain models used internally. HTTP request/response shapes live in
// the http adapter; keep these decoupled where helpful.

// ContactSource identifies where a contact record came from.
type ContactSource string

const (
	SourceCrawl    ContactSource = "crawl"
	SourceProvider ContactSource = "provider"
)

// Contact is a single discovered person. Extraction and the provider client
// create these; validation/scoring fills in ConfidenceScore, QualityFlags and
// Factors, after which the record is never mutated.
type Contact struct {
	Name        string
	Title       string
	Email       string
	Phone       string
	PhotoURL    string
	LinkedInURL string

	CompanyName   string
	CompanyDomain string

	Source          ContactSource
	ConfidenceScore float64
	QualityFlags    []string
	Factors         ConfidenceFactors
}

// HasIdentity reports whether the contact carries enough to keep: a
// non-empty email or a non-empty name.
func (c Contact) HasIdentity() bool {
	return c.Email != "" || c.Name != ""
}

// ConfidenceFactors are the per-factor sub-scores feeding the 0-100
// confidence score.
type ConfidenceFactors struct {
	DataCompleteness  float64
	DomainConsistency float64
	ProfessionalTitle float64
	LinkedInPresence  float64
	DataConsistency   float64
	EmailQuality      float64
}

// DetectionResult describes the website platform classification for a site.
type DetectionResult struct {
	Platform   string
	Confidence float64
	Method     string
}

// PageResult is a fetched page: final URL, HTTP status, rendered HTML and
// response headers (used for anti-bot challenge detection).
type PageResult struct {
	URL    string
	Status int
	HTML   string
	Header http.Header
}

// CompanyRecord is a company as returned by the data provider.
type CompanyRecord struct {
	ID          string
	Name        string
	Domain      string
	WebsiteURL  string
	Industry    string
	Employees   int
	Phone       string
	LinkedInURL string
}

// Verification is the outcome of an external email verification check.
// Level is one of "format", "domain", "mailbox".
type Verification struct {
	Valid      bool
	Status     string
	Confidence float64
	Level      string
	Issues     []string
}

// Discovery tracks one contact-discovery run for a site.
type Discovery struct {
	ID         string
	DomainRef  string
	URL        string
	Status     string // queued|running|completed|failed
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// SiteResult is the finalized output for one site: what was detected, where
// contacts were found, and the ranked contact list.
type SiteResult struct {
	Domain      string
	CompanyName string
	Detection   DetectionResult
	StaffURL    string
	Contacts    []Contact
}

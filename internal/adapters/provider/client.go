// Package provider is the HTTP client for the secondary contact data
// provider (Apollo-compatible API). Requests are rate limited and retried
// with exponential backoff, honoring Retry-After on 429/503.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/roles"
)

const (
	DefaultBaseURL = "https://api.apollo.io/v1"

	maxRetries   = 3
	baseDelay    = time.Second
	maxDelay     = 60 * time.Second
	requestLimit = rate.Limit(0.8) // steady-state requests per second
)

var retryableStatuses = map[int]bool{
	408: true, 429: true, 500: true, 502: true, 503: true, 504: true,
	520: true, 521: true, 522: true, 523: true, 524: true, 525: true,
	526: true, 527: true,
}

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider %s: status %d", e.Endpoint, e.StatusCode)
}

// Client implements ports.ContactProvider against an Apollo-style API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	limiter *rate.Limiter
}

var _ ports.ContactProvider = (*Client)(nil)

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(requestLimit, 1),
	}
}

type orgSearchRequest struct {
	OrganizationDomains []string `json:"organization_domains,omitempty"`
	OrganizationName    string   `json:"organization_name,omitempty"`
	PerPage             int      `json:"per_page"`
	Page                int      `json:"page"`
}

type orgSearchResponse struct {
	Organizations []apiOrganization `json:"organizations"`
}

type apiOrganization struct {
	ID                    string `json:"id"`
	Name                  string `json:"name"`
	PrimaryDomain         string `json:"primary_domain"`
	WebsiteURL            string `json:"website_url"`
	Industry              string `json:"industry"`
	EstimatedNumEmployees int    `json:"estimated_num_employees"`
	Phone                 string `json:"phone"`
	LinkedinURL           string `json:"linkedin_url"`
}

type peopleSearchRequest struct {
	PerPage             int      `json:"per_page"`
	Page                int      `json:"page"`
	PersonSeniorities   []string `json:"person_seniorities,omitempty"`
	PersonTitles        []string `json:"person_titles,omitempty"`
	OrganizationIDs     []string `json:"organization_ids,omitempty"`
	OrganizationDomains []string `json:"organization_domains,omitempty"`
}

type peopleSearchResponse struct {
	People []apiPerson `json:"people"`
}

type apiPerson struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Title        string     `json:"title"`
	Email        string     `json:"email"`
	LinkedinURL  string     `json:"linkedin_url"`
	Seniority    string     `json:"seniority"`
	PhoneNumbers []apiPhone `json:"phone_numbers"`
	Organization struct {
		Name string `json:"name"`
	} `json:"organization"`
}

type apiPhone struct {
	SanitizedNumber string `json:"sanitized_number"`
	RawNumber       string `json:"raw_number"`
}

type personMatchResponse struct {
	Person *apiPerson `json:"person"`
}

// SearchCompany resolves a company record, trying progressively looser
// strategies: domain plus name, domain only, name only, then common domain
// variations. Returns nil without error when nothing matches.
func (c *Client) SearchCompany(ctx context.Context, siteDomain string, companyName string) (*domain.CompanyRecord, error) {
	if siteDomain != "" && companyName != "" {
		rec, err := c.searchOrganizations(ctx, orgSearchRequest{
			OrganizationDomains: []string{siteDomain},
			OrganizationName:    companyName,
			PerPage:             1, Page: 1,
		})
		if err != nil || rec != nil {
			return rec, err
		}
	}

	if siteDomain != "" {
		rec, err := c.searchOrganizations(ctx, orgSearchRequest{
			OrganizationDomains: []string{siteDomain},
			PerPage:             1, Page: 1,
		})
		if err != nil || rec != nil {
			return rec, err
		}
	}

	if companyName != "" {
		rec, err := c.searchOrganizations(ctx, orgSearchRequest{
			OrganizationName: companyName,
			PerPage:          3, Page: 1,
		})
		if err != nil || rec != nil {
			return rec, err
		}
	}

	if siteDomain != "" {
		for _, variation := range domainVariations(siteDomain) {
			rec, err := c.searchOrganizations(ctx, orgSearchRequest{
				OrganizationDomains: []string{variation},
				OrganizationName:    companyName,
				PerPage:             1, Page: 1,
			})
			if err != nil || rec != nil {
				return rec, err
			}
		}
	}

	log.Printf("provider: no organization found for domain=%s name=%q", siteDomain, companyName)
	return nil, nil
}

func (c *Client) searchOrganizations(ctx context.Context, req orgSearchRequest) (*domain.CompanyRecord, error) {
	var resp orgSearchResponse
	if err := c.post(ctx, "/organizations/search", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Organizations) == 0 {
		return nil, nil
	}
	org := resp.Organizations[0]
	return &domain.CompanyRecord{
		ID:          org.ID,
		Name:        org.Name,
		Domain:      org.PrimaryDomain,
		WebsiteURL:  org.WebsiteURL,
		Industry:    org.Industry,
		Employees:   org.EstimatedNumEmployees,
		Phone:       org.Phone,
		LinkedInURL: org.LinkedinURL,
	}, nil
}

// SearchPeople fetches decision-makers at a company. With no criteria it
// defaults to senior leadership filters; criteria narrow by seniority and
// title instead.
func (c *Client) SearchPeople(ctx context.Context, companyID string, siteDomain string, limit int, criteria *roles.FilterCriteria) ([]domain.Contact, error) {
	if companyID == "" && siteDomain == "" {
		return nil, nil
	}
	if limit <= 0 || limit > 25 {
		limit = 25
	}

	req := peopleSearchRequest{PerPage: limit, Page: 1}
	if criteria != nil {
		req.PersonSeniorities, req.PersonTitles = criteriaToSearchParams(criteria)
	} else {
		req.PersonSeniorities = []string{"owner", "c_suite", "vp", "director", "manager"}
		req.PersonTitles = []string{
			"owner", "president", "ceo", "cfo", "general manager",
			"managing partner", "director", "vice president",
		}
	}
	if companyID != "" {
		req.OrganizationIDs = []string{companyID}
	} else {
		req.OrganizationDomains = []string{siteDomain}
	}

	var resp peopleSearchResponse
	if err := c.post(ctx, "/mixed_people/search", req, &resp); err != nil {
		return nil, err
	}
	log.Printf("provider: found %d people for org_id=%s domain=%s", len(resp.People), companyID, siteDomain)

	contacts := make([]domain.Contact, 0, len(resp.People))
	for _, p := range resp.People {
		contacts = append(contacts, toContact(p))
	}
	return contacts, nil
}

// EnrichPerson looks up a single person by email address.
func (c *Client) EnrichPerson(ctx context.Context, email string) (*domain.Contact, error) {
	var resp personMatchResponse
	if err := c.post(ctx, "/people/match", map[string]string{"email": email}, &resp); err != nil {
		return nil, err
	}
	if resp.Person == nil {
		return nil, nil
	}
	contact := toContact(*resp.Person)
	return &contact, nil
}

func toContact(p apiPerson) domain.Contact {
	phone := ""
	if len(p.PhoneNumbers) > 0 {
		phone = p.PhoneNumbers[0].SanitizedNumber
		if phone == "" {
			phone = p.PhoneNumbers[0].RawNumber
		}
	}
	return domain.Contact{
		Name:        strings.TrimSpace(p.FirstName + " " + p.LastName),
		Title:       p.Title,
		Email:       p.Email,
		Phone:       phone,
		LinkedInURL: p.LinkedinURL,
		CompanyName: p.Organization.Name,
		Source:      domain.SourceProvider,
	}
}

func domainVariations(siteDomain string) []string {
	var variations []string
	if strings.HasPrefix(siteDomain, "www.") {
		variations = append(variations, siteDomain[4:])
	} else {
		variations = append(variations, "www."+siteDomain)
	}

	base := strings.TrimPrefix(siteDomain, "www.")
	for _, sub := range []string{"shop", "store", "sales", "main", "site"} {
		variations = append(variations, sub+"."+base)
	}
	if strings.HasSuffix(base, ".com") {
		noTLD := strings.TrimSuffix(base, ".com")
		variations = append(variations, noTLD+".net", noTLD+".org")
	}
	if len(variations) > 5 {
		variations = variations[:5]
	}
	return variations
}

var seniorityParams = map[roles.Seniority][]string{
	roles.SeniorityCSuite:          {"c_suite"},
	roles.SenioritySeniorExecutive: {"c_suite", "vp"},
	roles.SeniorityDirector:        {"director"},
	roles.SeniorityManager:         {"manager"},
	roles.SenioritySpecialist:      {"manager"},
}

var categoryTitleParams = map[roles.Category][]string{
	roles.CategoryOwnership: {
		"owner", "co-owner", "dealership owner", "business owner",
		"dealer principal", "principal", "managing partner", "partner",
	},
	roles.CategorySeniorLeadership: {
		"ceo", "president", "chief executive officer", "chief executive",
		"managing director", "executive director", "general manager",
		"dealership general manager", "gm",
	},
	roles.CategoryManagement: {
		"general manager", "regional manager", "district manager",
		"dealership manager", "location manager", "branch manager",
	},
	roles.CategoryDepartmentHead: {
		"director", "vice president", "vp", "senior vice president", "svp",
		"executive vice president", "evp",
	},
	roles.CategorySales: {
		"sales director", "sales manager", "general sales manager",
		"new car manager", "used car manager", "pre-owned manager",
		"fleet manager", "commercial director", "sales vp",
	},
	roles.CategoryService: {
		"service director", "service manager", "fixed operations director",
		"fixed operations manager", "parts director", "parts manager",
		"warranty manager", "collision center manager",
	},
	roles.CategoryFinance: {
		"cfo", "finance director", "finance manager", "controller",
		"f&i manager", "business manager", "finance and insurance manager",
	},
	roles.CategoryMarketing: {
		"marketing director", "marketing manager", "advertising director",
		"digital marketing manager", "brand manager",
	},
	roles.CategoryOperations: {
		"operations director", "operations manager", "facility manager",
		"administrative manager", "office manager",
	},
	roles.CategoryIT: {
		"it director", "technology director", "systems manager", "it manager",
		"digital operations manager",
	},
	roles.CategoryHRAdmin: {
		"hr director", "human resources director", "admin director",
		"hr manager", "human resources manager", "people director",
	},
}

var dealershipSpecificTitles = []string{
	"dealer principal", "dealership owner", "dealership general manager",
	"dealer", "managing dealer", "dealer operator", "general sales manager",
	"new car sales manager", "used car sales manager", "pre-owned manager",
	"fleet sales manager", "internet sales manager", "leasing manager",
	"sales director", "service manager", "fixed operations manager",
	"parts manager", "service director", "fixed operations director",
	"parts director", "collision center manager", "body shop manager",
	"warranty manager", "f&i manager", "finance and insurance manager",
	"business manager", "finance manager", "credit manager",
	"dealership operations manager", "lot manager", "inventory manager",
	"facility manager", "administrative manager",
}

// criteriaToSearchParams maps role filter criteria to the provider's
// seniority and title search parameters, deduplicated and sorted for
// deterministic requests.
func criteriaToSearchParams(criteria *roles.FilterCriteria) (seniorities, titles []string) {
	seniorSet := make(map[string]bool)
	titleSet := make(map[string]bool)

	for _, level := range criteria.SeniorityLevels {
		for _, s := range seniorityParams[level] {
			seniorSet[s] = true
		}
	}
	for _, cat := range criteria.Categories {
		for _, t := range categoryTitleParams[cat] {
			titleSet[t] = true
		}
	}
	if criteria.DealershipSpecificOnly {
		for _, t := range dealershipSpecificTitles {
			titleSet[t] = true
		}
	}

	for s := range seniorSet {
		seniorities = append(seniorities, s)
	}
	for t := range titleSet {
		titles = append(titles, t)
	}
	sort.Strings(seniorities)
	sort.Strings(titles)
	return seniorities, titles
}

// post sends one JSON request with rate limiting and retries. Non-retryable
// statuses fail immediately; 429/503 honor Retry-After before the next
// attempt.
func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	b := retry.NewExponential(baseDelay)
	b = retry.WithJitterPercent(50, b)
	b = retry.WithCappedDuration(maxDelay, b)
	b = retry.WithMaxRetries(maxRetries, b)

	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", c.apiKey)

		resp, err := c.httpc.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			data, err := io.ReadAll(resp.Body)
			if err != nil {
				return retry.RetryableError(err)
			}
			if err := json.Unmarshal(data, out); err != nil {
				return retry.RetryableError(fmt.Errorf("decode response: %w", err))
			}
			return nil
		}

		statusErr := &StatusError{StatusCode: resp.StatusCode, Endpoint: path}
		if !retryableStatuses[resp.StatusCode] {
			return statusErr
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
			if d, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
				log.Printf("provider: status %d, honoring Retry-After %s", resp.StatusCode, d)
				if err := sleepCtx(ctx, min(d, maxDelay)); err != nil {
					return err
				}
			}
		}
		return retry.RetryableError(statusErr)
	})
}

func parseRetryAfter(v string) (time.Duration, bool) {
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second)), true
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d, true
		}
	}
	return 0, false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

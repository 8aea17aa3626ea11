package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/discovery"
	"dealerscout/internal/services/roles"
	"dealerscout/internal/services/validation"
)

type fakePool struct {
	pages map[string]string
}

func (f *fakePool) Acquire(ctx context.Context) (ports.PageSession, error) {
	return &fakeSession{pool: f}, nil
}

type fakeSession struct {
	pool *fakePool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) (*domain.PageResult, error) {
	html, ok := s.pool.pages[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &domain.PageResult{URL: url, Status: 200, HTML: html}, nil
}

func (s *fakeSession) DismissCookieConsent(ctx context.Context) bool { return false }
func (s *fakeSession) DetectCAPTCHA(ctx context.Context) bool        { return false }
func (s *fakeSession) Release()                                      {}

type fakeProvider struct {
	company        *domain.CompanyRecord
	people         []domain.Contact
	companyCalls   int
	peopleCalls    int
	lastCompanyID  string
	lastSiteDomain string
}

func (f *fakeProvider) SearchCompany(ctx context.Context, siteDomain, companyName string) (*domain.CompanyRecord, error) {
	f.companyCalls++
	return f.company, nil
}

func (f *fakeProvider) SearchPeople(ctx context.Context, companyID, siteDomain string, limit int, criteria *roles.FilterCriteria) ([]domain.Contact, error) {
	f.peopleCalls++
	f.lastCompanyID = companyID
	f.lastSiteDomain = siteDomain
	return f.people, nil
}

func newCrawler(pages map[string]string) *discovery.Service {
	return discovery.New(&fakePool{pages: pages}, discovery.Options{
		DelayMin: time.Millisecond, DelayMax: 2 * time.Millisecond, MinContacts: 1,
	})
}

const staffPageHTML = `<html><body>
<h1>Meet the Team</h1><p>Our team</p>
<div class="team-member"><h3>John Smith</h3><p>General Sales Manager</p>
  <a href="mailto:jsmith@smithauto.com">email</a></div>
</body></html>`

func TestDiscoverContactsCrawlOnly(t *testing.T) {
	crawler := newCrawler(map[string]string{
		"https://smithauto.com":       `<html><body>home</body></html>`,
		"https://smithauto.com/staff": staffPageHTML,
	})
	provider := &fakeProvider{}
	svc := New(crawler, provider, validation.New(nil), 1)

	result, err := svc.DiscoverContacts(context.Background(), "smithauto.com", "", "", nil)
	require.NoError(t, err)

	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "John Smith", result.Contacts[0].Name)
	assert.Equal(t, domain.SourceCrawl, result.Contacts[0].Source)
	assert.Equal(t, "smithauto.com", result.Contacts[0].CompanyDomain)
	assert.Greater(t, result.Contacts[0].ConfidenceScore, 0.0)
	assert.NotEmpty(t, result.Contacts[0].QualityFlags)

	// crawl met the minimum; provider never consulted
	assert.Zero(t, provider.companyCalls)
	assert.Zero(t, provider.peopleCalls)

	assert.Equal(t, "smithauto.com", result.Domain)
	assert.Equal(t, "Smithauto", result.CompanyName)
	assert.Equal(t, "https://smithauto.com/staff", result.StaffURL)
}

func TestDiscoverContactsProviderFallback(t *testing.T) {
	crawler := newCrawler(map[string]string{
		"https://smithauto.com":       `<html><body>home</body></html>`,
		"https://smithauto.com/staff": staffPageHTML,
	})
	provider := &fakeProvider{
		company: &domain.CompanyRecord{ID: "org-1", Name: "Smith Auto Group"},
		people: []domain.Contact{
			{Name: "John Smith", Email: "jsmith@smithauto.com", Title: "GM", Source: domain.SourceProvider},
			{Name: "Mary Jones", Email: "mjones@smithauto.com", Title: "Owner", Source: domain.SourceProvider},
			{Name: "Pat Poe", Title: "Controller", Source: domain.SourceProvider},
		},
	}
	svc := New(crawler, provider, validation.New(nil), 5)

	result, err := svc.DiscoverContacts(context.Background(), "smithauto.com", "", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, provider.companyCalls)
	assert.Equal(t, 1, provider.peopleCalls)
	assert.Equal(t, "org-1", provider.lastCompanyID)
	assert.Equal(t, "Smith Auto Group", result.CompanyName)

	// crawled John kept; provider's duplicate dropped; Mary and Pat merged in
	require.Len(t, result.Contacts, 3)
	emails := make(map[string]domain.ContactSource)
	for _, c := range result.Contacts {
		emails[c.Email] = c.Source
	}
	assert.Equal(t, domain.SourceCrawl, emails["jsmith@smithauto.com"])
	assert.Equal(t, domain.SourceProvider, emails["mjones@smithauto.com"])
}

func TestDiscoverContactsRankedByScore(t *testing.T) {
	crawler := newCrawler(map[string]string{})
	provider := &fakeProvider{
		people: []domain.Contact{
			{Name: "Low Value", Source: domain.SourceProvider},
			{Name: "Mary Jones", Email: "mjones@smithauto.com", Title: "Owner",
				Phone: "(555) 123-4567", Source: domain.SourceProvider},
		},
	}
	svc := New(crawler, provider, validation.New(nil), 2)

	result, err := svc.DiscoverContacts(context.Background(), "smithauto.com", "", "", nil)
	require.NoError(t, err)

	require.Len(t, result.Contacts, 2)
	assert.Equal(t, "Mary Jones", result.Contacts[0].Name)
	assert.GreaterOrEqual(t, result.Contacts[0].ConfidenceScore, result.Contacts[1].ConfidenceScore)
}

func TestDiscoverContactsAppliesCriteria(t *testing.T) {
	crawler := newCrawler(map[string]string{})
	provider := &fakeProvider{
		people: []domain.Contact{
			{Name: "Mary Jones", Email: "mjones@smithauto.com", Title: "Owner", Source: domain.SourceProvider},
			{Name: "Bob Baker", Email: "bbaker@smithauto.com", Title: "Receptionist", Source: domain.SourceProvider},
		},
	}
	svc := New(crawler, provider, validation.New(nil), 2)

	criteria := &roles.FilterCriteria{MinSeniorityScore: 0.5}
	result, err := svc.DiscoverContacts(context.Background(), "smithauto.com", "", "", criteria)
	require.NoError(t, err)

	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "Mary Jones", result.Contacts[0].Name)
}

func TestDiscoverContactsCallerSuppliedHints(t *testing.T) {
	crawler := newCrawler(map[string]string{
		"https://smithauto.com":       `<html><body>home</body></html>`,
		"https://smithauto.com/staff": staffPageHTML,
	})
	svc := New(crawler, &fakeProvider{}, validation.New(nil), 1)

	result, err := svc.DiscoverContacts(context.Background(), "smithauto.com",
		"Smith Auto Group", "DealerFire", nil)
	require.NoError(t, err)

	// The supplied name replaces domain-derived "Smithauto" everywhere.
	assert.Equal(t, "Smith Auto Group", result.CompanyName)
	require.Len(t, result.Contacts, 1)
	assert.Equal(t, "Smith Auto Group", result.Contacts[0].CompanyName)
	assert.Equal(t, "https://smithauto.com/staff", result.StaffURL)
}

func TestMergeContacts(t *testing.T) {
	crawled := []domain.Contact{
		{Name: "John Smith", Email: "jsmith@x.com", Source: domain.SourceCrawl},
		{Name: "No Email", Source: domain.SourceCrawl},
	}
	provider := []domain.Contact{
		{Name: "John S.", Email: "JSMITH@x.com", Source: domain.SourceProvider},
		{Name: "Mary Jones", Email: "mjones@x.com", Source: domain.SourceProvider},
		{Name: "No Email", Source: domain.SourceProvider},
		{Name: "Pat Poe", Source: domain.SourceProvider},
	}

	merged := mergeContacts(crawled, provider)
	require.Len(t, merged, 4)
	assert.Equal(t, "John Smith", merged[0].Name)
	assert.Equal(t, "No Email", merged[1].Name)
	assert.Equal(t, domain.SourceCrawl, merged[1].Source)
	assert.Equal(t, "Mary Jones", merged[2].Name)
	assert.Equal(t, "Pat Poe", merged[3].Name)
}

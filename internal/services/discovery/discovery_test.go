package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

// fakePool serves canned pages by URL. URLs without a page fail the fetch,
// which the cascade treats the same as an unreachable path.
type fakePool struct {
	pages   map[string]string
	captcha bool
	visited []string
}

func (f *fakePool) Acquire(ctx context.Context) (ports.PageSession, error) {
	return &fakeSession{pool: f}, nil
}

type fakeSession struct {
	pool *fakePool
}

func (s *fakeSession) Navigate(ctx context.Context, url string) (*domain.PageResult, error) {
	s.pool.visited = append(s.pool.visited, url)
	html, ok := s.pool.pages[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return &domain.PageResult{URL: url, Status: 200, HTML: html}, nil
}

func (s *fakeSession) DismissCookieConsent(ctx context.Context) bool { return false }
func (s *fakeSession) DetectCAPTCHA(ctx context.Context) bool        { return s.pool.captcha }
func (s *fakeSession) Release()                                      {}

func fastOptions(minContacts int) Options {
	return Options{DelayMin: time.Millisecond, DelayMax: 2 * time.Millisecond, MinContacts: minContacts}
}

const staffPageHTML = `<html><body>
<h1>Meet the Team</h1><p>Our team is here to help.</p>
<div class="team-member"><h3>John Smith</h3><p>General Sales Manager</p>
  <a href="mailto:jsmith@smithauto.com">email</a></div>
<div class="team-member"><h3>Mary Jones</h3><p>Finance Director</p>
  <a href="mailto:mjones@smithauto.com">email</a></div>
</body></html>`

func TestDiscoverFindsStaffPageByPath(t *testing.T) {
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":       `<html><body><h1>Smith Auto</h1></body></html>`,
		"https://smithauto.com/staff": staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)

	assert.Equal(t, "https://smithauto.com/staff", res.StaffURL)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "John Smith", res.Contacts[0].Name)
	assert.Equal(t, "jsmith@smithauto.com", res.Contacts[0].Email)
	assert.Equal(t, domain.SourceCrawl, res.Contacts[0].Source)
	assert.Equal(t, "Custom/Unknown", res.Detection.Platform)
}

func TestDiscoverPlatformPathsTriedFirst(t *testing.T) {
	homepage := `<html><body><script src="https://cdn.dealeron.com/site.js"></script></body></html>`
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":          homepage,
		"https://smithauto.com/our-team": staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)

	assert.Equal(t, "DealerOn", res.Detection.Platform)
	assert.Equal(t, "https://smithauto.com/our-team", res.StaffURL)
	assert.NotEmpty(t, res.Contacts)
}

func TestDiscoverPlatformHintSeedsProfile(t *testing.T) {
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":          `<html><body>plain</body></html>`,
		"https://smithauto.com/our-team": staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "DealerInspire")
	require.NoError(t, err)

	// Detection still reports what the homepage shows; the hint picks the
	// path order, so /our-team is the first probe after the homepage.
	assert.Equal(t, "Custom/Unknown", res.Detection.Platform)
	require.GreaterOrEqual(t, len(pool.visited), 2)
	assert.Equal(t, "https://smithauto.com/our-team", pool.visited[1])
	assert.Equal(t, "https://smithauto.com/our-team", res.StaffURL)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "John Smith", res.Contacts[0].Name)
}

func TestDiscoverUnknownPlatformHintIgnored(t *testing.T) {
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":       `<html><body>plain</body></html>`,
		"https://smithauto.com/staff": staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "NotARealPlatform")
	require.NoError(t, err)
	assert.Equal(t, "https://smithauto.com/staff", res.StaffURL)
	assert.Len(t, res.Contacts, 2)
}

func TestDiscoverFallsBackToNav(t *testing.T) {
	homepage := `<html><body><nav>
	<a href="/inventory">Inventory</a>
	<a href="/our-people-page">Meet the Team</a>
	</nav></body></html>`
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":                 homepage,
		"https://smithauto.com/our-people-page": staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)

	assert.Equal(t, "https://smithauto.com/our-people-page", res.StaffURL)
	assert.Len(t, res.Contacts, 2)
}

func TestDiscoverFallsBackToSitemap(t *testing.T) {
	sitemap := `<?xml version="1.0"?><urlset>
	<url><loc>https://smithauto.com/inventory</loc></url>
	<url><loc>https://smithauto.com/hidden/meet-the-team</loc></url>
	</urlset>`
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":                       `<html><body>plain</body></html>`,
		"https://smithauto.com/sitemap.xml":           sitemap,
		"https://smithauto.com/hidden/meet-the-team":  staffPageHTML,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)
	assert.Equal(t, "https://smithauto.com/hidden/meet-the-team", res.StaffURL)
	assert.Len(t, res.Contacts, 2)
}

func TestDiscoverContactPageFallback(t *testing.T) {
	thinStaff := `<html><body>
	<h1>Meet the Team</h1><p>Our team</p>
	<div class="team-member"><h3>John Smith</h3><p>General Sales Manager</p>
	  <a href="mailto:jsmith@smithauto.com">email</a></div>
	</body></html>`
	contactPage := `<html><body>
	<div class="team-member"><h3>Mary Jones</h3><p>Finance Director</p>
	  <a href="mailto:mjones@smithauto.com">email</a></div>
	</body></html>`
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com":            `<html><body>plain</body></html>`,
		"https://smithauto.com/staff":      thinStaff,
		"https://smithauto.com/contact-us": contactPage,
	}}
	svc := New(pool, fastOptions(2))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)

	assert.Equal(t, "https://smithauto.com/staff", res.StaffURL)
	require.Len(t, res.Contacts, 2)
	assert.Equal(t, "jsmith@smithauto.com", res.Contacts[0].Email)
	assert.Equal(t, "mjones@smithauto.com", res.Contacts[1].Email)
}

func TestDiscoverCaptchaBlocksExtraction(t *testing.T) {
	pool := &fakePool{
		pages: map[string]string{
			"https://smithauto.com":       `<html><body>plain</body></html>`,
			"https://smithauto.com/staff": staffPageHTML,
		},
		captcha: true,
	}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)
	assert.Empty(t, res.Contacts)
}

func TestDiscoverChallengeHomepageSkipsDetection(t *testing.T) {
	pool := &fakePool{pages: map[string]string{
		"https://smithauto.com": `<html><head><title>Just a moment...</title></head></html>`,
	}}
	svc := New(pool, fastOptions(1))

	res, err := svc.Discover(context.Background(), "https://smithauto.com", "")
	require.NoError(t, err)
	assert.Equal(t, "Custom/Unknown", res.Detection.Platform)
	assert.Empty(t, res.Contacts)
}

func TestLooksLikeStaffPage(t *testing.T) {
	assert.True(t, LooksLikeStaffPage(`<html><body>Our Team - Meet the Team</body></html>`))
	assert.True(t, LooksLikeStaffPage(`<html><body>
	a@x.com b@x.com c@x.com</body></html>`))
	assert.True(t, LooksLikeStaffPage(`<html><body>
	<div class="staff-card"></div><div class="staff-card"></div></body></html>`))
	assert.False(t, LooksLikeStaffPage(`<html><body><h1>New Inventory</h1></body></html>`))
}

func TestMergeByEmail(t *testing.T) {
	base := []domain.Contact{{Name: "John Smith", Email: "jsmith@x.com"}}
	extra := []domain.Contact{
		{Name: "J. Smith", Email: "JSMITH@x.com"},
		{Name: "Mary Jones", Email: "mjones@x.com"},
		{Name: "Front Desk"},
		{},
	}
	merged := mergeByEmail(base, extra)
	require.Len(t, merged, 3)
	assert.Equal(t, "Mary Jones", merged[1].Name)
	assert.Equal(t, "Front Desk", merged[2].Name)
}

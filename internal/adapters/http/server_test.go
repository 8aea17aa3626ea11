package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

type fakeScanner struct {
	enqueueID  string
	enqueueErr error
	statuses   map[string]string
}

func (f *fakeScanner) Enqueue(ctx context.Context, rawURL string) (string, error) {
	return f.enqueueID, f.enqueueErr
}

func (f *fakeScanner) Status(ctx context.Context, discoveryID string) (string, error) {
	if s, ok := f.statuses[discoveryID]; ok {
		return s, nil
	}
	return "", ports.ErrNotFound
}

type fakeDiscoveries struct {
	urls map[string]string
}

func (f *fakeDiscoveries) Create(ctx context.Context, domainID, url string) (string, error) {
	return "", nil
}

func (f *fakeDiscoveries) Status(ctx context.Context, discoveryID string) (string, error) {
	return "", ports.ErrNotFound
}

func (f *fakeDiscoveries) URLForDiscovery(ctx context.Context, discoveryID string) (string, error) {
	if u, ok := f.urls[discoveryID]; ok {
		return u, nil
	}
	return "", ports.ErrNotFound
}

type fakeResults struct {
	byDomain    map[string]domain.SiteResult
	byDiscovery map[string][]domain.Contact
}

func (f *fakeResults) SaveResult(ctx context.Context, discoveryID string, result domain.SiteResult) error {
	return nil
}

func (f *fakeResults) LatestByDomain(ctx context.Context, registrable string) (bool, domain.SiteResult, error) {
	r, ok := f.byDomain[registrable]
	return ok, r, nil
}

func (f *fakeResults) ContactsForDiscovery(ctx context.Context, discoveryID string) ([]domain.Contact, error) {
	if c, ok := f.byDiscovery[discoveryID]; ok {
		return c, nil
	}
	return nil, ports.ErrNotFound
}

type fakeJobs struct{}

func (fakeJobs) ClaimNext(ctx context.Context) (ports.DiscoveryJob, bool, error) {
	return ports.DiscoveryJob{}, false, nil
}
func (fakeJobs) MarkCompleted(ctx context.Context, jobID string) error      { return nil }
func (fakeJobs) MarkFailed(ctx context.Context, jobID, reason string) error { return nil }
func (fakeJobs) StartJobForDiscovery(ctx context.Context, discoveryID string) (string, error) {
	return "job-1", nil
}

type fakeProcessor struct {
	processed []string
}

func (f *fakeProcessor) Process(ctx context.Context, discoveryID, url string) error {
	f.processed = append(f.processed, discoveryID)
	return nil
}

const testDiscoveryID = "5a7e7d6e-9a3e-4bb2-a818-2f29c2c1a111"

func newTestServer(scanner *fakeScanner, results *fakeResults) *Server {
	return New(
		scanner,
		&fakeDiscoveries{urls: map[string]string{testDiscoveryID: "https://smithhonda.com"}},
		results,
		fakeJobs{},
		&fakeProcessor{},
	)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeScanner{}, &fakeResults{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateDiscoveryAccepted(t *testing.T) {
	scanner := &fakeScanner{enqueueID: testDiscoveryID}
	srv := newTestServer(scanner, &fakeResults{})

	body := strings.NewReader(`{"url":"https://smithhonda.com"}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/discoveries", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, testDiscoveryID, resp["discovery_id"])
}

func TestCreateDiscoveryBadBody(t *testing.T) {
	srv := newTestServer(&fakeScanner{}, &fakeResults{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/discoveries", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/discoveries", strings.NewReader(`not json`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDiscoveryWait(t *testing.T) {
	scanner := &fakeScanner{
		enqueueID: testDiscoveryID,
		statuses:  map[string]string{testDiscoveryID: "completed"},
	}
	results := &fakeResults{byDiscovery: map[string][]domain.Contact{
		testDiscoveryID: {{Name: "John Smith", Email: "jsmith@smithhonda.com", Source: domain.SourceCrawl}},
	}}
	srv := newTestServer(scanner, results)

	body := strings.NewReader(`{"url":"https://smithhonda.com"}`)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/discoveries?wait=1", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Contacts []struct {
			Name string `json:"name"`
		} `json:"contacts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	require.Len(t, resp.Contacts, 1)
	assert.Equal(t, "John Smith", resp.Contacts[0].Name)
}

func TestGetDiscovery(t *testing.T) {
	scanner := &fakeScanner{statuses: map[string]string{testDiscoveryID: "running"}}
	srv := newTestServer(scanner, &fakeResults{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discoveries/"+testDiscoveryID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "running", resp["status"])
}

func TestGetDiscoveryInvalidID(t *testing.T) {
	srv := newTestServer(&fakeScanner{}, &fakeResults{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discoveries/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetDiscoveryNotFound(t *testing.T) {
	srv := newTestServer(&fakeScanner{statuses: map[string]string{}}, &fakeResults{})
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/discoveries/00000000-0000-0000-0000-000000000000", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetContacts(t *testing.T) {
	results := &fakeResults{byDiscovery: map[string][]domain.Contact{
		testDiscoveryID: {{Name: "John Smith", ConfidenceScore: 91.5, Source: domain.SourceCrawl}},
	}}
	srv := newTestServer(&fakeScanner{}, results)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/discoveries/"+testDiscoveryID+"/contacts", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]struct {
		Name            string  `json:"name"`
		ConfidenceScore float64 `json:"confidence_score"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp["contacts"], 1)
	assert.Equal(t, 91.5, resp["contacts"][0].ConfidenceScore)
}

func TestGetLatestResult(t *testing.T) {
	results := &fakeResults{byDomain: map[string]domain.SiteResult{
		"smithhonda.com": {
			Domain:      "smithhonda.com",
			CompanyName: "Smith Honda",
			Detection:   domain.DetectionResult{Platform: "DealerOn", Confidence: 0.85, Method: "signature:dealeron.com"},
			StaffURL:    "https://smithhonda.com/staff",
			Contacts:    []domain.Contact{{Name: "John Smith", Source: domain.SourceCrawl}},
		},
	}}
	srv := newTestServer(&fakeScanner{}, results)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/www.smithhonda.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "smithhonda.com", resp["domain"])
	assert.Equal(t, "DealerOn", resp["platform"])

	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/results/unknownsite.com", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

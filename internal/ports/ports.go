package ports

import (
	"context"

	"dealerscout/internal/domain"
	"dealerscout/internal/services/roles"
)

// PageSession is a borrowed page from the pool. Navigate fetches a URL and
// returns the rendered page; Release must be called on every exit path to
// return the capacity slot.
type PageSession interface {
	Navigate(ctx context.Context, url string) (*domain.PageResult, error)
	DismissCookieConsent(ctx context.Context) bool
	DetectCAPTCHA(ctx context.Context) bool
	Release()
}

// PagePool hands out page sessions with bounded concurrency. Acquire blocks
// until a slot is free or the context is done.
type PagePool interface {
	Acquire(ctx context.Context) (PageSession, error)
}

// ContactProvider is the secondary people/company data source consulted when
// crawling under-delivers.
type ContactProvider interface {
	SearchCompany(ctx context.Context, siteDomain string, companyName string) (*domain.CompanyRecord, error)
	SearchPeople(ctx context.Context, companyID string, siteDomain string, limit int, criteria *roles.FilterCriteria) ([]domain.Contact, error)
}

// Scanner enqueues discovery runs and reports their status.
type Scanner interface {
	Enqueue(ctx context.Context, rawURL string) (discoveryID string, err error)
	Status(ctx context.Context, discoveryID string) (status string, err error)
}

// EmailVerifier optionally deepens email-quality scoring. When absent,
// scoring falls back to format/domain validity.
type EmailVerifier interface {
	Verify(ctx context.Context, email string) (domain.Verification, error)
}

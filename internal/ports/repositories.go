package ports

import (
	"context"
	"errors"

	"dealerscout/internal/domain"
)

// ErrNotFound is returned by repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// DomainRepository stores and fetches domains by registrable domain (eTLD+1).
type DomainRepository interface {
	GetOrCreate(ctx context.Context, registrable string) (domainID string, err error)
}

// DiscoveryRepository manages discovery-run records.
type DiscoveryRepository interface {
	Create(ctx context.Context, domainID string, url string) (discoveryID string, err error)
	Status(ctx context.Context, discoveryID string) (status string, err error)
	URLForDiscovery(ctx context.Context, discoveryID string) (url string, err error)
}

// ResultRepository persists finalized site results and serves the stored
// ranked contact lists.
type ResultRepository interface {
	SaveResult(ctx context.Context, discoveryID string, result domain.SiteResult) error
	LatestByDomain(ctx context.Context, registrable string) (exists bool, result domain.SiteResult, err error)
	ContactsForDiscovery(ctx context.Context, discoveryID string) ([]domain.Contact, error)
}

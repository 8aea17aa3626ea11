// Package scanner enqueues discovery runs for dealership sites.
package scanner

import (
	"context"
	"strings"

	"dealerscout/internal/ports"
	"dealerscout/internal/services/companies"
)

type Service struct {
	domains     ports.DomainRepository
	discoveries ports.DiscoveryRepository
}

func New(domains ports.DomainRepository, discoveries ports.DiscoveryRepository) *Service {
	return &Service{domains: domains, discoveries: discoveries}
}

// Enqueue registers a discovery run for the site and returns its id. The
// domain row is keyed by eTLD+1 so repeat runs for the same dealership share
// a history.
func (s *Service) Enqueue(ctx context.Context, rawURL string) (string, error) {
	host, err := companies.ExtractDomain(rawURL)
	if err != nil {
		return "", err
	}
	registrable, err := companies.RegistrableDomain(host)
	if err != nil {
		registrable = host
	}

	domainID, err := s.domains.GetOrCreate(ctx, registrable)
	if err != nil {
		return "", err
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	return s.discoveries.Create(ctx, domainID, rawURL)
}

func (s *Service) Status(ctx context.Context, discoveryID string) (string, error) {
	return s.discoveries.Status(ctx, discoveryID)
}

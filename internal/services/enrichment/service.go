// Package enrichment runs the full contact pipeline for one site: crawl
// first, provider fallback when crawling under-delivers, merge, validate,
// score and rank.
package enrichment

import (
	"context"
	"log"
	"sort"
	"strings"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
	"dealerscout/internal/services/companies"
	"dealerscout/internal/services/discovery"
	"dealerscout/internal/services/roles"
	"dealerscout/internal/services/validation"
)

const providerPeopleLimit = 10

// Service orchestrates discovery, the provider fallback and scoring. The
// provider is optional; without one the pipeline is crawl-only.
type Service struct {
	discovery  *discovery.Service
	provider   ports.ContactProvider
	validator  *validation.Validator
	minCrawled int
}

func New(d *discovery.Service, provider ports.ContactProvider, v *validation.Validator, minCrawled int) *Service {
	if minCrawled <= 0 {
		minCrawled = 2
	}
	return &Service{discovery: d, provider: provider, validator: v, minCrawled: minCrawled}
}

// DiscoverContacts produces the finalized, ranked contact list for a site.
// companyName and platformHint are optional: an empty name is derived from
// the domain, an empty hint leaves platform detection to the crawl.
// Individual stages may fail without failing the run; a site that yields
// nothing completes with an empty contact list.
func (s *Service) DiscoverContacts(ctx context.Context, siteDomain, companyName, platformHint string, criteria *roles.FilterCriteria) (domain.SiteResult, error) {
	baseURL := "https://" + siteDomain
	if companyName == "" {
		companyName = companies.DeriveName(siteDomain)
	}

	var crawl discovery.Result
	if s.discovery != nil {
		var err error
		crawl, err = s.discovery.Discover(ctx, baseURL, platformHint)
		if err != nil {
			if ctx.Err() != nil {
				return domain.SiteResult{}, ctx.Err()
			}
			log.Printf("enrichment: crawl failed for %s: %v", siteDomain, err)
		}
	}
	log.Printf("enrichment: crawled %d contacts from %s", len(crawl.Contacts), siteDomain)

	var providerContacts []domain.Contact
	if len(crawl.Contacts) < s.minCrawled && s.provider != nil {
		companyID := ""
		if rec, err := s.provider.SearchCompany(ctx, siteDomain, companyName); err != nil {
			log.Printf("enrichment: provider company search failed for %s: %v", siteDomain, err)
		} else if rec != nil {
			companyID = rec.ID
			if rec.Name != "" {
				companyName = rec.Name
			}
		}

		people, err := s.provider.SearchPeople(ctx, companyID, siteDomain, providerPeopleLimit, criteria)
		if err != nil {
			log.Printf("enrichment: provider people search failed for %s: %v", siteDomain, err)
		} else {
			log.Printf("enrichment: provider found %d contacts for %s", len(people), siteDomain)
			providerContacts = people
		}
	}

	merged := mergeContacts(crawl.Contacts, providerContacts)

	for i := range merged {
		if merged[i].CompanyDomain == "" {
			merged[i].CompanyDomain = siteDomain
		}
		if merged[i].CompanyName == "" {
			merged[i].CompanyName = companyName
		}
		cv := s.validator.ValidateContact(ctx, merged[i])
		score, factors := s.validator.ConfidenceScore(merged[i], cv)
		merged[i].ConfidenceScore = score
		merged[i].Factors = factors
		merged[i].QualityFlags = s.validator.QualityFlags(merged[i], cv)
	}

	if criteria != nil {
		merged = roles.FilterContacts(merged, criteria)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].ConfidenceScore > merged[j].ConfidenceScore
	})

	return domain.SiteResult{
		Domain:      siteDomain,
		CompanyName: companyName,
		Detection:   crawl.Detection,
		StaffURL:    crawl.StaffURL,
		Contacts:    merged,
	}, nil
}

// mergeContacts combines the two sources, crawl first. Crawled contacts are
// kept unconditionally (emailless ones included); provider contacts join only
// when their email, or failing that their name, is unseen.
func mergeContacts(crawled, provider []domain.Contact) []domain.Contact {
	seenEmails := make(map[string]bool)
	merged := make([]domain.Contact, 0, len(crawled)+len(provider))

	for _, c := range crawled {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email != "" {
			if seenEmails[email] {
				continue
			}
			seenEmails[email] = true
		}
		merged = append(merged, c)
	}

	for _, c := range provider {
		email := strings.ToLower(strings.TrimSpace(c.Email))
		if email != "" {
			if seenEmails[email] {
				continue
			}
			seenEmails[email] = true
			merged = append(merged, c)
			continue
		}
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" {
			continue
		}
		duplicate := false
		for _, m := range merged {
			if strings.ToLower(strings.TrimSpace(m.Name)) == name {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, c)
		}
	}
	return merged
}

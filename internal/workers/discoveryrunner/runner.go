// Package discoveryrunner claims queued discovery jobs and runs the contact
// pipeline for each.
package discoveryrunner

import (
	"context"
	"log"
	"time"

	"dealerscout/internal/ports"
	"dealerscout/internal/services/companies"
	"dealerscout/internal/services/enrichment"
	"dealerscout/internal/services/roles"
)

// DiscoveryProcessor performs the discovery work for one job.
type DiscoveryProcessor interface {
	Process(ctx context.Context, discoveryID, url string) error
}

// Processor is the production pipeline: enrich the site and persist the
// finalized result.
type Processor struct {
	Enrichment *enrichment.Service
	Results    ports.ResultRepository
	Criteria   *roles.FilterCriteria
}

func (p Processor) Process(ctx context.Context, discoveryID, url string) error {
	host, err := companies.ExtractDomain(url)
	if err != nil {
		return err
	}
	result, err := p.Enrichment.DiscoverContacts(ctx, host, "", "", p.Criteria)
	if err != nil {
		return err
	}
	return p.Results.SaveResult(ctx, discoveryID, result)
}

// Run starts worker goroutines that claim jobs and process them.
func Run(ctx context.Context, repo ports.JobRepository, processor DiscoveryProcessor, concurrency int, pollInterval time.Duration) {
	if concurrency < 1 {
		return
	}
	jobsCh := make(chan ports.DiscoveryJob, concurrency)

	// dispatcher loop
	go func() {
		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				close(jobsCh)
				return
			case <-ticker.C:
				for {
					job, found, err := repo.ClaimNext(ctx)
					if err != nil {
						log.Printf("job claim error: %v", err)
						break
					}
					if !found {
						break
					}
					jobsCh <- job
				}
			}
		}
	}()

	// workers
	for i := 0; i < concurrency; i++ {
		go func(idx int) {
			for job := range jobsCh {
				if err := processor.Process(ctx, job.DiscoveryID, job.URL); err != nil {
					_ = repo.MarkFailed(ctx, job.ID, err.Error())
					log.Printf("worker %d: job %s failed: %v", idx, job.ID, err)
					continue
				}
				if err := repo.MarkCompleted(ctx, job.ID); err != nil {
					log.Printf("worker %d: complete err: %v", idx, err)
				}
			}
		}(i)
	}
}

// ProcessInline starts and processes a specific discovery synchronously
// using the same processor logic as the background workers.
func ProcessInline(ctx context.Context, repo ports.JobRepository, processor DiscoveryProcessor, discoveryID, url string) error {
	jobID, err := repo.StartJobForDiscovery(ctx, discoveryID)
	if err != nil {
		return err
	}
	if err := processor.Process(ctx, discoveryID, url); err != nil {
		_ = repo.MarkFailed(ctx, jobID, err.Error())
		return err
	}
	return repo.MarkCompleted(ctx, jobID)
}

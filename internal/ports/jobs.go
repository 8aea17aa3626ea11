package ports

import "context"

type DiscoveryJob struct {
	ID          string
	DiscoveryID string
	URL         string
}

// JobRepository supports claiming and updating discovery jobs.
type JobRepository interface {
	ClaimNext(ctx context.Context) (job DiscoveryJob, found bool, err error)
	MarkCompleted(ctx context.Context, jobID string) error
	MarkFailed(ctx context.Context, jobID string, reason string) error
	StartJobForDiscovery(ctx context.Context, discoveryID string) (jobID string, err error)
}

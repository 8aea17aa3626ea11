package discoveryrunner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealerscout/internal/ports"
)

type memJobs struct {
	mu        sync.Mutex
	queued    []ports.DiscoveryJob
	completed []string
	failed    map[string]string
}

func newMemJobs(jobs ...ports.DiscoveryJob) *memJobs {
	return &memJobs{queued: jobs, failed: make(map[string]string)}
}

func (m *memJobs) ClaimNext(ctx context.Context) (ports.DiscoveryJob, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queued) == 0 {
		return ports.DiscoveryJob{}, false, nil
	}
	job := m.queued[0]
	m.queued = m.queued[1:]
	return job, true, nil
}

func (m *memJobs) MarkCompleted(ctx context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, jobID)
	return nil
}

func (m *memJobs) MarkFailed(ctx context.Context, jobID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[jobID] = reason
	return nil
}

func (m *memJobs) StartJobForDiscovery(ctx context.Context, discoveryID string) (string, error) {
	return "job-" + discoveryID, nil
}

type recordingProcessor struct {
	mu        sync.Mutex
	processed []string
	err       error
}

func (p *recordingProcessor) Process(ctx context.Context, discoveryID, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, discoveryID)
	return p.err
}

func TestRunProcessesQueuedJobs(t *testing.T) {
	repo := newMemJobs(
		ports.DiscoveryJob{ID: "j1", DiscoveryID: "d1", URL: "https://a.com"},
		ports.DiscoveryJob{ID: "j2", DiscoveryID: "d2", URL: "https://b.com"},
	)
	proc := &recordingProcessor{}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx, repo, proc, 2, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.completed) == 2
	}, 2*time.Second, 10*time.Millisecond)

	proc.mu.Lock()
	defer proc.mu.Unlock()
	assert.ElementsMatch(t, []string{"d1", "d2"}, proc.processed)
}

func TestRunMarksFailures(t *testing.T) {
	repo := newMemJobs(ports.DiscoveryJob{ID: "j1", DiscoveryID: "d1", URL: "https://a.com"})
	proc := &recordingProcessor{err: errors.New("site unreachable")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	Run(ctx, repo, proc, 1, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return len(repo.failed) == 1
	}, 2*time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, "site unreachable", repo.failed["j1"])
	assert.Empty(t, repo.completed)
}

func TestRunNoConcurrencyIsNoop(t *testing.T) {
	repo := newMemJobs(ports.DiscoveryJob{ID: "j1", DiscoveryID: "d1"})
	Run(context.Background(), repo, &recordingProcessor{}, 0, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Len(t, repo.queued, 1)
}

func TestProcessInline(t *testing.T) {
	repo := newMemJobs()
	proc := &recordingProcessor{}

	err := ProcessInline(context.Background(), repo, proc, "d9", "https://a.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"d9"}, proc.processed)
	assert.Equal(t, []string{"job-d9"}, repo.completed)
}

func TestProcessInlineFailure(t *testing.T) {
	repo := newMemJobs()
	proc := &recordingProcessor{err: errors.New("boom")}

	err := ProcessInline(context.Background(), repo, proc, "d9", "https://a.com")
	require.Error(t, err)
	assert.Equal(t, "boom", repo.failed["job-d9"])
}

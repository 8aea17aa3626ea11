package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"dealerscout/internal/ports"
)

// ClaimNext selects the next queued job using SKIP LOCKED and marks it running.
func (db *DB) ClaimNext(ctx context.Context) (job ports.DiscoveryJob, found bool, err error) {
	// Use explicit transaction to safely lock and transition state
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return job, false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	// Lock the next queued job
	err = tx.QueryRow(ctx, `
        SELECT j.id, j.discovery_id, d.url
        FROM discovery_jobs j
        JOIN discoveries d ON d.id = j.discovery_id
        WHERE j.status = 'queued'
        ORDER BY j.queued_at
        FOR UPDATE OF j SKIP LOCKED
        LIMIT 1
    `).Scan(&job.ID, &job.DiscoveryID, &job.URL)
	if errors.Is(err, pgx.ErrNoRows) {
		return job, false, nil
	}
	if err != nil {
		return job, false, err
	}

	// Mark job running and bump attempts
	if _, err = tx.Exec(ctx, `
        UPDATE discovery_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1
    `, job.ID); err != nil {
		return job, false, err
	}
	// Ensure discoveries reflects running
	if _, err = tx.Exec(ctx, `
        UPDATE discoveries SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1
    `, job.DiscoveryID); err != nil {
		return job, false, err
	}
	return job, true, nil
}

func (db *DB) MarkCompleted(ctx context.Context, jobID string) error {
	// complete job and discovery atomically
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var discoveryID string
	if err = tx.QueryRow(ctx, `SELECT discovery_id FROM discovery_jobs WHERE id=$1`, jobID).Scan(&discoveryID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE discovery_jobs SET status='completed', finished_at=now() WHERE id=$1`, jobID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE discoveries SET status='completed', finished_at=now() WHERE id=$1`, discoveryID); err != nil {
		return err
	}
	return nil
}

func (db *DB) MarkFailed(ctx context.Context, jobID string, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()
	var discoveryID string
	if err = tx.QueryRow(ctx, `SELECT discovery_id FROM discovery_jobs WHERE id=$1`, jobID).Scan(&discoveryID); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE discovery_jobs SET status='failed', finished_at=now(), last_error=$2 WHERE id=$1`, jobID, reason); err != nil {
		return err
	}
	if _, err = tx.Exec(ctx, `UPDATE discoveries SET status='failed', finished_at=now() WHERE id=$1`, discoveryID); err != nil {
		return err
	}
	return nil
}

// StartJobForDiscovery marks the job for a specific discovery as running and returns the job id.
func (db *DB) StartJobForDiscovery(ctx context.Context, discoveryID string) (string, error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			_ = tx.Commit(ctx)
		}
	}()

	var jobID string
	// lock specific job row if queued
	err = tx.QueryRow(ctx, `
        SELECT id FROM discovery_jobs
        WHERE discovery_id = $1 AND status = 'queued'
        FOR UPDATE SKIP LOCKED
    `, discoveryID).Scan(&jobID)
	if err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx, `UPDATE discovery_jobs SET status='running', started_at=now(), attempts=attempts+1 WHERE id=$1`, jobID); err != nil {
		return "", err
	}
	if _, err = tx.Exec(ctx, `UPDATE discoveries SET status='running', started_at=COALESCE(started_at, now()) WHERE id=$1`, discoveryID); err != nil {
		return "", err
	}
	return jobID, nil
}

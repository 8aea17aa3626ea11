package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"dealerscout/internal/domain"
	"dealerscout/internal/ports"
)

var ErrNotFound = ports.ErrNotFound

// DomainRepository
func (db *DB) GetOrCreate(ctx context.Context, registrable string) (string, error) {
	registrable = strings.ToLower(registrable)
	var id string
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO domains (registrable_domain)
        VALUES ($1)
        ON CONFLICT (registrable_domain) DO UPDATE SET registrable_domain = EXCLUDED.registrable_domain
        RETURNING id
    `, registrable).Scan(&id)
	return id, err
}

// DiscoveryRepository
func (db *DB) Create(ctx context.Context, domainID string, url string) (string, error) {
	var discoveryID string
	err := db.Pool.QueryRow(ctx, `
        INSERT INTO discoveries (domain_id, url, status)
        VALUES ($1, $2, 'queued')
        RETURNING id
    `, domainID, url).Scan(&discoveryID)
	if err != nil {
		return "", err
	}
	// create job row
	_, err = db.Pool.Exec(ctx, `INSERT INTO discovery_jobs (discovery_id) VALUES ($1)`, discoveryID)
	return discoveryID, err
}

func (db *DB) Status(ctx context.Context, discoveryID string) (string, error) {
	var status string
	err := db.Pool.QueryRow(ctx, `SELECT status FROM discoveries WHERE id = $1`, discoveryID).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return status, err
}

// ResultRepository
func (db *DB) SaveResult(ctx context.Context, discoveryID string, result domain.SiteResult) error {
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

	var domainID string
	if err = tx.QueryRow(ctx, `SELECT domain_id FROM discoveries WHERE id=$1`, discoveryID).Scan(&domainID); err != nil {
		return err
	}

	resultID := uuid.New().String()
	if _, err = tx.Exec(ctx, `
        INSERT INTO site_results (id, discovery_id, domain_id, company_name, platform, platform_confidence, detection_method, staff_url)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `, resultID, discoveryID, domainID, result.CompanyName,
		result.Detection.Platform, result.Detection.Confidence, result.Detection.Method, result.StaffURL); err != nil {
		return err
	}

	for i, c := range result.Contacts {
		if _, err = tx.Exec(ctx, `
            INSERT INTO contacts (id, result_id, rank, name, title, email, phone, photo_url, linkedin_url, source, confidence_score, quality_flags)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        `, uuid.New().String(), resultID, i, c.Name, c.Title, c.Email, c.Phone,
			c.PhotoURL, c.LinkedInURL, string(c.Source), c.ConfidenceScore, c.QualityFlags); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) LatestByDomain(ctx context.Context, registrable string) (bool, domain.SiteResult, error) {
	var out domain.SiteResult
	var resultID string
	err := db.Pool.QueryRow(ctx, `
        SELECT r.id, d.registrable_domain, r.company_name, r.platform, r.platform_confidence, r.detection_method, r.staff_url
        FROM site_results r
        JOIN domains d ON d.id = r.domain_id
        WHERE d.registrable_domain = $1
        ORDER BY r.created_at DESC
        LIMIT 1
    `, strings.ToLower(registrable)).Scan(&resultID, &out.Domain, &out.CompanyName,
		&out.Detection.Platform, &out.Detection.Confidence, &out.Detection.Method, &out.StaffURL)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, out, nil
	}
	if err != nil {
		return false, out, err
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT name, title, email, phone, photo_url, linkedin_url, source, confidence_score, COALESCE(quality_flags, '[]'::jsonb)
        FROM contacts
        WHERE result_id = $1
        ORDER BY rank
    `, resultID)
	if err != nil {
		return false, out, err
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.Contact
		var source string
		if err := rows.Scan(&c.Name, &c.Title, &c.Email, &c.Phone, &c.PhotoURL,
			&c.LinkedInURL, &source, &c.ConfidenceScore, &c.QualityFlags); err != nil {
			return false, out, err
		}
		c.Source = domain.ContactSource(source)
		out.Contacts = append(out.Contacts, c)
	}
	if err := rows.Err(); err != nil {
		return false, out, err
	}
	return true, out, nil
}

// ContactsForDiscovery returns the ranked contacts stored for one discovery.
func (db *DB) ContactsForDiscovery(ctx context.Context, discoveryID string) ([]domain.Contact, error) {
	var resultID string
	err := db.Pool.QueryRow(ctx, `
        SELECT id FROM site_results WHERE discovery_id = $1 ORDER BY created_at DESC LIMIT 1
    `, discoveryID).Scan(&resultID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
        SELECT name, title, email, phone, photo_url, linkedin_url, source, confidence_score, COALESCE(quality_flags, '[]'::jsonb)
        FROM contacts
        WHERE result_id = $1
        ORDER BY rank
    `, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var source string
		if err := rows.Scan(&c.Name, &c.Title, &c.Email, &c.Phone, &c.PhotoURL,
			&c.LinkedInURL, &source, &c.ConfidenceScore, &c.QualityFlags); err != nil {
			return nil, err
		}
		c.Source = domain.ContactSource(source)
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// URLForDiscovery looks up the site URL a discovery was enqueued with.
func (db *DB) URLForDiscovery(ctx context.Context, discoveryID string) (string, error) {
	var url string
	err := db.Pool.QueryRow(ctx, `SELECT url FROM discoveries WHERE id=$1`, discoveryID).Scan(&url)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return url, err
}

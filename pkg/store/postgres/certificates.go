package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tapecert/tapecert/pkg/cert"
	"github.com/tapecert/tapecert/pkg/errs"
	"github.com/tapecert/tapecert/pkg/store"
)

const certificateColumns = `id, certificate_no, retailer_id, dealer_name, dealer_license,
	vehicle_details, owner_details, fitment_details, fitment_date, status, created_at, updated_at`

// CreateCertificate inserts a certificate and any images already attached to
// it in a single transaction.
func (s *Store) CreateCertificate(ctx context.Context, c *cert.Certificate) error {
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = c.CreatedAt

	vehicleJSON, err := json.Marshal(c.VehicleDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle details: %w", err)
	}
	ownerJSON, err := json.Marshal(c.OwnerDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal owner details: %w", err)
	}
	fitmentJSON, err := json.Marshal(c.FitmentDetails)
	if err != nil {
		return fmt.Errorf("failed to marshal fitment details: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO certificates (id, certificate_no, retailer_id, dealer_name, dealer_license,
			vehicle_details, owner_details, fitment_details, fitment_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = tx.ExecContext(ctx, query,
		c.ID,
		c.CertificateNo,
		c.RetailerID,
		c.DealerName,
		c.DealerLicense,
		string(vehicleJSON),
		string(ownerJSON),
		string(fitmentJSON),
		c.FitmentDate,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Newf(errs.Conflict, "certificate already exists: %s", c.CertificateNo)
		}
		return fmt.Errorf("failed to create certificate: %w", err)
	}

	imageQuery := `
		INSERT INTO certificate_images (certificate_id, tag, payload, updated_at)
		VALUES ($1, $2, $3, $4)
	`
	for tag, payload := range c.Images {
		if _, err := tx.ExecContext(ctx, imageQuery, c.ID, string(tag), payload, c.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert image %s: %w", tag, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetCertificate returns one certificate with its images.
func (s *Store) GetCertificate(ctx context.Context, id string) (*cert.Certificate, error) {
	// Check cache first
	if s.cache != nil {
		if c, err := s.cache.Get(ctx, id); err == nil && c != nil {
			return c, nil
		}
	}

	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`

	c, err := scanCertificate(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.NotFound, "certificate not found: %s", id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}

	images, err := s.loadImages(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Images = images[id]
	if c.Images == nil {
		c.Images = map[cert.ImageTag]string{}
	}

	// Cache result
	if s.cache != nil {
		s.cache.Set(ctx, c)
	}

	return c, nil
}

// ListCertificates returns certificates owned by the scope, newest first,
// images included.
func (s *Store) ListCertificates(ctx context.Context, scope store.OwnerScope) ([]*cert.Certificate, error) {
	if scope.Empty() {
		return []*cert.Certificate{}, nil
	}

	query := `SELECT ` + certificateColumns + ` FROM certificates`
	var args []interface{}
	if !scope.All {
		query += ` WHERE retailer_id IN (` + inPlaceholders(1, len(scope.IDs)) + `)`
		for _, id := range scope.IDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	defer rows.Close()

	certs := []*cert.Certificate{}
	ids := []string{}
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan certificate: %w", err)
		}
		c.Images = map[cert.ImageTag]string{}
		certs = append(certs, c)
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate certificates: %w", err)
	}

	if len(ids) > 0 {
		images, err := s.loadImages(ctx, ids...)
		if err != nil {
			return nil, err
		}
		for _, c := range certs {
			if m, ok := images[c.ID]; ok {
				c.Images = m
			}
		}
	}

	return certs, nil
}

// UpdateCertificateFields applies a partial update. Absent fields keep their
// stored values; updated_at is always bumped. Returns the fresh record.
func (s *Store) UpdateCertificateFields(ctx context.Context, id string, upd store.CertificateUpdate) (*cert.Certificate, error) {
	sets := []string{}
	args := []interface{}{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.DealerName != nil {
		sets = append(sets, "dealer_name = "+arg(*upd.DealerName))
	}
	if upd.DealerLicense != nil {
		sets = append(sets, "dealer_license = "+arg(*upd.DealerLicense))
	}
	if upd.VehicleDetails != nil {
		data, err := json.Marshal(upd.VehicleDetails)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal vehicle details: %w", err)
		}
		sets = append(sets, "vehicle_details = "+arg(string(data)))
	}
	if upd.OwnerDetails != nil {
		data, err := json.Marshal(upd.OwnerDetails)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal owner details: %w", err)
		}
		sets = append(sets, "owner_details = "+arg(string(data)))
	}
	if upd.FitmentDetails != nil {
		data, err := json.Marshal(upd.FitmentDetails)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal fitment details: %w", err)
		}
		sets = append(sets, "fitment_details = "+arg(string(data)))
	}
	if upd.Status != nil {
		sets = append(sets, "status = "+arg(string(*upd.Status)))
	}
	sets = append(sets, "updated_at = "+arg(time.Now().UTC()))

	query := "UPDATE certificates SET "
	for i, set := range sets {
		if i > 0 {
			query += ", "
		}
		query += set
	}
	query += " WHERE id = " + arg(id)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return nil, errs.Newf(errs.NotFound, "certificate not found: %s", id)
	}

	// Invalidate cache
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}

	return s.GetCertificate(ctx, id)
}

// AttachImage upserts one tagged image payload and bumps the parent
// certificate's updated_at in the same transaction. When S3 offload is
// enabled the payload is also written there content-addressed and the
// object key recorded next to the row.
func (s *Store) AttachImage(ctx context.Context, id string, tag cert.ImageTag, payload string) error {
	var objectKey *string
	if s.blobs != nil {
		key, err := s.blobs.Put(ctx, []byte(payload))
		if err != nil {
			return fmt.Errorf("failed to offload image: %w", err)
		}
		objectKey = &key
	}

	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `UPDATE certificates SET updated_at = $1 WHERE id = $2`, now, id)
	if err != nil {
		return fmt.Errorf("failed to touch certificate: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read touch result: %w", err)
	}
	if affected == 0 {
		return errs.Newf(errs.NotFound, "certificate not found: %s", id)
	}

	query := `
		INSERT INTO certificate_images (certificate_id, tag, payload, object_key, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (certificate_id, tag) DO UPDATE SET
			payload = excluded.payload,
			object_key = excluded.object_key,
			updated_at = excluded.updated_at
	`
	if _, err := tx.ExecContext(ctx, query, id, string(tag), payload, objectKey, now); err != nil {
		return fmt.Errorf("failed to upsert image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Invalidate cache
	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}

	return nil
}

// CountCertificates counts certificates within scope, optionally filtered by
// status.
func (s *Store) CountCertificates(ctx context.Context, scope store.OwnerScope, status *cert.Status) (int64, error) {
	if scope.Empty() {
		return 0, nil
	}

	query := `SELECT COUNT(*) FROM certificates`
	var args []interface{}
	var clauses []string
	if !scope.All {
		clauses = append(clauses, `retailer_id IN (`+inPlaceholders(1, len(scope.IDs))+`)`)
		for _, id := range scope.IDs {
			args = append(args, id)
		}
	}
	if status != nil {
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(*status))
	}
	for i, clause := range clauses {
		if i == 0 {
			query += " WHERE " + clause
		} else {
			query += " AND " + clause
		}
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count certificates: %w", err)
	}
	return total, nil
}

// loadImages batch-loads image payloads for the given certificate ids.
func (s *Store) loadImages(ctx context.Context, ids ...string) (map[string]map[cert.ImageTag]string, error) {
	query := `
		SELECT certificate_id, tag, payload
		FROM certificate_images
		WHERE certificate_id IN (` + inPlaceholders(1, len(ids)) + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	defer rows.Close()

	images := map[string]map[cert.ImageTag]string{}
	for rows.Next() {
		var certID, tag, payload string
		if err := rows.Scan(&certID, &tag, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan image: %w", err)
		}
		if images[certID] == nil {
			images[certID] = map[cert.ImageTag]string{}
		}
		images[certID][cert.ImageTag(tag)] = payload
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate images: %w", err)
	}

	return images, nil
}

// scanner abstracts *sql.Row and *sql.Rows for certificate scanning.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCertificate(row scanner) (*cert.Certificate, error) {
	var c cert.Certificate
	var vehicleJSON, ownerJSON, fitmentJSON, status string
	err := row.Scan(
		&c.ID,
		&c.CertificateNo,
		&c.RetailerID,
		&c.DealerName,
		&c.DealerLicense,
		&vehicleJSON,
		&ownerJSON,
		&fitmentJSON,
		&c.FitmentDate,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(vehicleJSON), &c.VehicleDetails); err != nil {
		return nil, fmt.Errorf("corrupt vehicle details for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(ownerJSON), &c.OwnerDetails); err != nil {
		return nil, fmt.Errorf("corrupt owner details for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(fitmentJSON), &c.FitmentDetails); err != nil {
		return nil, fmt.Errorf("corrupt fitment details for %s: %w", c.ID, err)
	}
	c.Status = cert.Status(status)

	return &c, nil
}

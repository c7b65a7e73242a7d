package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/tapecert/tapecert/pkg/errs"
)

// AddEdge links a retailer to a distributor. The pair is unique; re-adding
// an existing edge fails with a conflict kind.
func (s *Store) AddEdge(ctx context.Context, distributorID, retailerID string) error {
	query := `
		INSERT INTO relationships (distributor_id, retailer_id, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := s.db.ExecContext(ctx, query, distributorID, retailerID, time.Now().UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Newf(errs.Conflict, "relationship already exists: %s -> %s", distributorID, retailerID)
		}
		return fmt.Errorf("failed to add relationship: %w", err)
	}

	return nil
}

// RetailerIDs returns the retailer ids linked to a distributor, oldest edge
// first. A distributor with no edges gets an empty slice, not an error.
func (s *Store) RetailerIDs(ctx context.Context, distributorID string) ([]string, error) {
	query := `
		SELECT retailer_id
		FROM relationships
		WHERE distributor_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query, distributorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retailers: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan retailer id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate retailers: %w", err)
	}

	return ids, nil
}

// EdgeExists reports whether the distributor→retailer link is present.
func (s *Store) EdgeExists(ctx context.Context, distributorID, retailerID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM relationships WHERE distributor_id = $1 AND retailer_id = $2)`
	err := s.db.QueryRowContext(ctx, query, distributorID, retailerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return exists, nil
}

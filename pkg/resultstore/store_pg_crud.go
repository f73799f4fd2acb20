package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SaveResult inserts or replaces a job result
func (s *PGStore) SaveResult(ctx context.Context, result *JobResult) error {
	membershipJSON, err := json.Marshal(result.Membership)
	if err != nil {
		return fmt.Errorf("failed to marshal membership: %w", err)
	}

	query := `
		INSERT INTO job_results (id, kind, status, quality, communities, levels, resolution, membership, error, created_at, completed_at, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE
		SET status = $3, quality = $4, communities = $5, levels = $6, resolution = $7,
		    membership = $8, error = $9, completed_at = $11, duration_ms = $12
	`

	_, err = s.pool.Exec(ctx, query,
		result.ID,
		result.Kind,
		result.Status,
		result.Quality,
		result.Communities,
		result.Levels,
		result.Resolution,
		membershipJSON,
		result.Error,
		result.CreatedAt,
		result.CompletedAt,
		result.DurationMS,
	)

	if err != nil {
		return fmt.Errorf("failed to save job result: %w", err)
	}

	return nil
}

// GetResult retrieves a result by job id
func (s *PGStore) GetResult(ctx context.Context, id string) (*JobResult, error) {
	query := `
		SELECT id, kind, status, quality, communities, levels, resolution, membership, error, created_at, completed_at, duration_ms
		FROM job_results
		WHERE id = $1
	`

	result := &JobResult{}
	var membershipJSON []byte

	err := s.pool.QueryRow(ctx, query, id).Scan(
		&result.ID,
		&result.Kind,
		&result.Status,
		&result.Quality,
		&result.Communities,
		&result.Levels,
		&result.Resolution,
		&membershipJSON,
		&result.Error,
		&result.CreatedAt,
		&result.CompletedAt,
		&result.DurationMS,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job result: %w", err)
	}

	if len(membershipJSON) > 0 {
		if err := json.Unmarshal(membershipJSON, &result.Membership); err != nil {
			return nil, fmt.Errorf("failed to unmarshal membership: %w", err)
		}
	}

	return result, nil
}

// ListResults returns up to limit results, newest first
func (s *PGStore) ListResults(ctx context.Context, limit int) ([]*JobResult, error) {
	query := `
		SELECT id, kind, status, quality, communities, levels, resolution, membership, error, created_at, completed_at, duration_ms
		FROM job_results
		ORDER BY created_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job results: %w", err)
	}
	defer rows.Close()

	var results []*JobResult
	for rows.Next() {
		result := &JobResult{}
		var membershipJSON []byte

		err := rows.Scan(
			&result.ID,
			&result.Kind,
			&result.Status,
			&result.Quality,
			&result.Communities,
			&result.Levels,
			&result.Resolution,
			&membershipJSON,
			&result.Error,
			&result.CreatedAt,
			&result.CompletedAt,
			&result.DurationMS,
		)

		if err != nil {
			return nil, fmt.Errorf("failed to scan job result: %w", err)
		}

		if len(membershipJSON) > 0 {
			json.Unmarshal(membershipJSON, &result.Membership)
		}

		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating job results: %w", err)
	}

	return results, nil
}

// DeleteResult removes a result by job id
func (s *PGStore) DeleteResult(ctx context.Context, id string) error {
	result, err := s.pool.Exec(ctx, `DELETE FROM job_results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job result: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

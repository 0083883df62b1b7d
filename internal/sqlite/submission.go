package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rpggio/capvault/internal/domain/submission"
	"github.com/rpggio/capvault/internal/repository"
)

// SubmissionRepository implements submission.Journal for SQLite
type SubmissionRepository struct {
	db *DB
}

// NewSubmissionRepository creates a new SubmissionRepository
func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert stores the latest state of a submission flow
func (r *SubmissionRepository) Upsert(ctx context.Context, rec *submission.Record) error {
	if rec == nil || rec.ID == "" {
		return repository.ErrInvalidInput
	}

	query := `
		INSERT INTO submissions (
			id, investor, company_id, company_name, state,
			amount, shares, tx_handle, failure, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			state = excluded.state,
			amount = excluded.amount,
			shares = excluded.shares,
			tx_handle = excluded.tx_handle,
			failure = excluded.failure,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.Investor,
		int64(rec.CompanyID),
		rec.CompanyName,
		rec.State,
		rec.Amount,
		rec.Shares,
		rec.TxHandle,
		rec.Failure,
		rec.CreatedAt,
		rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert submission: %w", err)
	}
	return nil
}

// Get returns a submission by id
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*submission.Record, error) {
	row := r.db.QueryRowContext(ctx, selectSubmissions+" WHERE id = ?", id)
	rec, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return rec, nil
}

// List returns submissions matching the given filters, most recently
// updated first
func (r *SubmissionRepository) List(ctx context.Context, opts submission.ListOptions) ([]submission.Record, error) {
	query := selectSubmissions
	args := []any{}
	conditions := []string{}

	if opts.Investor != "" {
		conditions = append(conditions, "investor = ?")
		args = append(args, opts.Investor)
	}
	if opts.CompanyID != nil {
		conditions = append(conditions, "company_id = ?")
		args = append(args, int64(*opts.CompanyID))
	}
	if len(opts.States) > 0 {
		placeholders := make([]string, len(opts.States))
		for i, state := range opts.States {
			placeholders[i] = "?"
			args = append(args, state)
		}
		conditions = append(conditions, "state IN ("+strings.Join(placeholders, ", ")+")")
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC, id"
	query, args = paginate(query, args, opts.Limit, opts.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	recs := []submission.Record{}
	for rows.Next() {
		rec, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission rows: %w", err)
	}
	return recs, nil
}

const selectSubmissions = `
	SELECT
		id, investor, company_id, company_name, state,
		amount, shares, tx_handle, failure, created_at, updated_at
	FROM submissions`

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(s scanner) (*submission.Record, error) {
	var rec submission.Record
	var companyID int64
	if err := s.Scan(
		&rec.ID,
		&rec.Investor,
		&companyID,
		&rec.CompanyName,
		&rec.State,
		&rec.Amount,
		&rec.Shares,
		&rec.TxHandle,
		&rec.Failure,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rec.CompanyID = uint64(companyID)
	return &rec, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateSubmission(ctx context.Context, in NewSubmission) (Submission, error) {
	const insert = `
		INSERT INTO contact_submissions (name, email, business, message, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, name, email, business, message, submitted_at
	`
	var business sql.NullString
	if in.Business != nil {
		business = sql.NullString{String: *in.Business, Valid: true}
	}
	row := s.db.QueryRowContext(ctx, insert, in.Name, in.Email, business, in.Message, in.SubmittedAt)
	sub, err := scanSubmission(row)
	if err != nil {
		return Submission{}, fmt.Errorf("insert submission: %w", err)
	}
	return sub, nil
}

func (s *PostgresStore) ListSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, business, message, submitted_at
		FROM contact_submissions
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	items := make([]Submission, 0)
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		items = append(items, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id int64) (Submission, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, business, message, submitted_at
		FROM contact_submissions
		WHERE id = $1
	`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Submission{}, ErrNotFound
	}
	if err != nil {
		return Submission{}, fmt.Errorf("get submission: %w", err)
	}
	return sub, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row scanner) (Submission, error) {
	var (
		sub      Submission
		business sql.NullString
	)
	if err := row.Scan(&sub.ID, &sub.Name, &sub.Email, &business, &sub.Message, &sub.SubmittedAt); err != nil {
		return Submission{}, err
	}
	if business.Valid {
		v := business.String
		sub.Business = &v
	}
	sub.SubmittedAt = sub.SubmittedAt.UTC()
	return sub, nil
}

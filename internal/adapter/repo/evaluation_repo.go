package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// EvaluationRepositoryPG implements domain.EvaluationRepository using PostgreSQL.
type EvaluationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewEvaluationRepository creates a new evaluation repo.
func NewEvaluationRepository(pool *pgxpool.Pool) *EvaluationRepositoryPG {
	return &EvaluationRepositoryPG{pool: pool}
}

// Create inserts an evaluation. The (donation_id, from_user) primary key
// makes a second submission fail with domain.ErrAlreadyEvaluated.
func (r *EvaluationRepositoryPG) Create(ctx context.Context, e *domain.Evaluation) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO evaluations (donation_id, from_user, to_user, stars, comment)
VALUES ($1, $2, $3, $4, $5);
`, e.DonationID, e.FromUser, e.ToUser, e.Stars, e.Comment)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyEvaluated
	}
	return err
}

// GetByDonationAndAuthor fetches an evaluation by its natural key.
func (r *EvaluationRepositoryPG) GetByDonationAndAuthor(ctx context.Context, donationID, fromUser string) (*domain.Evaluation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT donation_id, from_user, to_user, stars, comment, created_at
FROM evaluations
WHERE donation_id = $1 AND from_user = $2;
`, donationID, fromUser)
	return scanEvaluation(row)
}

// ListForUser returns the evaluations a user received, newest first.
func (r *EvaluationRepositoryPG) ListForUser(ctx context.Context, userID string) ([]domain.Evaluation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT donation_id, from_user, to_user, stars, comment, created_at
FROM evaluations
WHERE to_user = $1
ORDER BY created_at DESC;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanEvaluation(row pgx.Row) (*domain.Evaluation, error) {
	var e domain.Evaluation
	if err := row.Scan(&e.DonationID, &e.FromUser, &e.ToUser, &e.Stars, &e.Comment, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

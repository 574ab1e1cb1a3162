package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const userColumns = `id, email, name, avatar_url, locale, requests_left, donations_left, created_at, updated_at`

// UserRepositoryPG implements domain.UserRepository backed by PostgreSQL.
type UserRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepositoryPG.
func NewUserRepository(pool *pgxpool.Pool) *UserRepositoryPG {
	return &UserRepositoryPG{pool: pool}
}

// Upsert provisions the account on first sight and refreshes profile fields
// afterwards. Entitlement counters are seeded on insert only; the conflict
// branch never touches them.
func (r *UserRepositoryPG) Upsert(ctx context.Context, user *domain.User) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, name, avatar_url, locale, requests_left, donations_left)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE
SET email = EXCLUDED.email,
    name = EXCLUDED.name,
    avatar_url = EXCLUDED.avatar_url,
    locale = EXCLUDED.locale,
    updated_at = NOW()
RETURNING `+userColumns+`;
`, user.ID, user.Email, user.Name, user.AvatarURL, user.Locale, user.RequestsLeft, user.DonationsLeft)
	return scanUser(row)
}

// GetByID fetches a user by id.
func (r *UserRepositoryPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// ConsumeEntitlement debits one unit from the selected counter in a single
// conditional decrement. No row matches when the counter is already zero,
// which surfaces as domain.ErrQuotaExceeded without any mutation.
func (r *UserRepositoryPG) ConsumeEntitlement(ctx context.Context, userID string, kind domain.EntitlementKind) error {
	column, err := entitlementColumn(kind)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET `+column+` = `+column+` - 1, updated_at = NOW()
WHERE id = $1 AND `+column+` > 0;
`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// distinguish a missing user from an exhausted counter
		if _, getErr := r.GetByID(ctx, userID); getErr != nil {
			return getErr
		}
		return domain.ErrQuotaExceeded
	}
	return nil
}

// CreditEntitlement adds amount units to the selected counter.
func (r *UserRepositoryPG) CreditEntitlement(ctx context.Context, userID string, kind domain.EntitlementKind, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: credit amount must be positive", domain.ErrInvalidInput)
	}
	column, err := entitlementColumn(kind)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET `+column+` = `+column+` + $2, updated_at = NOW() WHERE id = $1;
`, userID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// HideDonation adds the donation to the user's hidden set. Re-reporting the
// same donation is a no-op.
func (r *UserRepositoryPG) HideDonation(ctx context.Context, userID, donationID string) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO user_hidden_donations (user_id, donation_id)
VALUES ($1, $2)
ON CONFLICT (user_id, donation_id) DO NOTHING;
`, userID, donationID)
	return err
}

// ListHiddenDonationIDs returns the donation ids the user has hidden.
func (r *UserRepositoryPG) ListHiddenDonationIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
SELECT donation_id FROM user_hidden_donations WHERE user_id = $1;
`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// DeleteAccount removes the user and everything they own inside one
// transaction. Chats the user participated in are closed rather than
// deleted, so the other party keeps the history.
func (r *UserRepositoryPG) DeleteAccount(ctx context.Context, userID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	statements := []string{
		`UPDATE chats SET closed = TRUE WHERE (participant_lo = $1 OR participant_hi = $1) AND NOT closed`,
		`DELETE FROM notifications WHERE from_user = $1 OR to_user = $1`,
		`DELETE FROM evaluations WHERE from_user = $1 OR to_user = $1`,
		`DELETE FROM user_hidden_donations WHERE user_id = $1`,
		// reservations held by the departing user go back to available
		`UPDATE donations
		   SET status = 'available', beneficiary_id = NULL, reserved_at = NULL,
		       expires_at = NULL, lock_version = lock_version + 1, updated_at = NOW()
		 WHERE beneficiary_id = $1 AND status = 'reserved'`,
		`UPDATE donations SET beneficiary_id = NULL WHERE beneficiary_id = $1`,
		`DELETE FROM donations WHERE owner_id = $1`,
		`DELETE FROM users WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt, userID); err != nil {
			return fmt.Errorf("delete account step failed: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func entitlementColumn(kind domain.EntitlementKind) (string, error) {
	switch kind {
	case domain.EntitlementRequests:
		return "requests_left", nil
	case domain.EntitlementDonations:
		return "donations_left", nil
	default:
		return "", fmt.Errorf("%w: unknown entitlement kind %q", domain.ErrInvalidInput, kind)
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.Locale, &u.RequestsLeft, &u.DonationsLeft, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

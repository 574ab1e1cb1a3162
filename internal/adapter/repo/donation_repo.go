package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

const donationColumns = `id, owner_id, title, description, type, other_type, location, latitude, longitude,
country, image_url, status, beneficiary_id, reserved_at, expires_at, concluded_at,
report_count, lock_version, created_at, updated_at`

// DonationRepositoryPG implements domain.DonationRepository using PostgreSQL.
type DonationRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewDonationRepository creates a new donation repo.
func NewDonationRepository(pool *pgxpool.Pool) *DonationRepositoryPG {
	return &DonationRepositoryPG{pool: pool}
}

// Create inserts a new donation record in the available state.
func (r *DonationRepositoryPG) Create(ctx context.Context, donation *domain.Donation) error {
	_, err := r.pool.Exec(ctx, `
INSERT INTO donations (id, owner_id, title, description, type, other_type, location, latitude, longitude, country, image_url, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 'available');
`, donation.ID, donation.OwnerID, donation.Title, donation.Description, donation.Type, donation.OtherType,
		donation.Location, donation.Latitude, donation.Longitude, donation.Country, donation.ImageURL)
	return err
}

// GetByID fetches a donation by id.
func (r *DonationRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+donationColumns+` FROM donations WHERE id = $1`, id)
	return scanDonation(row)
}

// ListAvailable returns available donations, newest first, excluding the ones
// the viewer has hidden.
func (r *DonationRepositoryPG) ListAvailable(ctx context.Context, viewerID string, limit int) ([]domain.Donation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+donationColumns+`
FROM donations d
WHERE d.status = 'available'
  AND NOT EXISTS (
    SELECT 1 FROM user_hidden_donations h
    WHERE h.user_id = $1 AND h.donation_id = d.id
  )
ORDER BY d.created_at DESC
LIMIT $2;
`, viewerID, limit)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// ListByOwner returns all donations created by the owner.
func (r *DonationRepositoryPG) ListByOwner(ctx context.Context, ownerID string) ([]domain.Donation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+donationColumns+` FROM donations WHERE owner_id = $1 ORDER BY created_at DESC;
`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// ListReserved returns every reserved donation. Expiry filtering happens in
// the sweeper's memory, so only the status needs an index.
func (r *DonationRepositoryPG) ListReserved(ctx context.Context) ([]domain.Donation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+donationColumns+` FROM donations WHERE status = 'reserved';
`)
	if err != nil {
		return nil, err
	}
	return collectDonations(rows)
}

// Reserve moves an available donation to reserved for the beneficiary. The
// write is conditional on the current status; losing the race surfaces as
// domain.ErrInvalidState.
func (r *DonationRepositoryPG) Reserve(ctx context.Context, id, beneficiaryID string, reservedAt, expiresAt time.Time) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE donations
SET status = 'reserved',
    beneficiary_id = $2,
    reserved_at = $3,
    expires_at = $4,
    lock_version = lock_version + 1,
    updated_at = NOW()
WHERE id = $1 AND status = 'available'
RETURNING `+donationColumns+`;
`, id, beneficiaryID, reservedAt, expiresAt)
	donation, err := scanDonation(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidState
	}
	return donation, err
}

// Conclude finishes a reserved donation. The lock version read by the caller
// guards against a concurrent revert: the stale writer matches no row and
// gets domain.ErrInvalidState. The reservation stamps are cleared since they
// only describe the reserved state; the beneficiary stays for evaluations.
func (r *DonationRepositoryPG) Conclude(ctx context.Context, id string, lockVersion int, concludedAt time.Time) (*domain.Donation, error) {
	row := r.pool.QueryRow(ctx, `
UPDATE donations
SET status = 'concluded',
    concluded_at = $3,
    reserved_at = NULL,
    expires_at = NULL,
    lock_version = lock_version + 1,
    updated_at = NOW()
WHERE id = $1 AND status = 'reserved' AND lock_version = $2
RETURNING `+donationColumns+`;
`, id, lockVersion, concludedAt)
	donation, err := scanDonation(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidState
	}
	return donation, err
}

// Release puts a reservation back to available regardless of expiry. The lock
// version keeps it from undoing a reservation someone else has since touched.
func (r *DonationRepositoryPG) Release(ctx context.Context, id string, lockVersion int) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE donations
SET status = 'available',
    beneficiary_id = NULL,
    reserved_at = NULL,
    expires_at = NULL,
    lock_version = lock_version + 1,
    updated_at = NOW()
WHERE id = $1 AND status = 'reserved' AND lock_version = $2;
`, id, lockVersion)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Revert returns an expired reservation to the available state, clearing the
// beneficiary and the reservation timestamps together. The condition keeps
// the operation idempotent and refuses donations concluded in the meantime.
func (r *DonationRepositoryPG) Revert(ctx context.Context, id string, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE donations
SET status = 'available',
    beneficiary_id = NULL,
    reserved_at = NULL,
    expires_at = NULL,
    lock_version = lock_version + 1,
    updated_at = NOW()
WHERE id = $1 AND status = 'reserved' AND expires_at < $2;
`, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementReportCount bumps the report counter atomically.
func (r *DonationRepositoryPG) IncrementReportCount(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
UPDATE donations SET report_count = report_count + 1, updated_at = NOW() WHERE id = $1;
`, id)
	return err
}

func scanDonation(row pgx.Row) (*domain.Donation, error) {
	var d domain.Donation
	if err := row.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.Type, &d.OtherType, &d.Location,
		&d.Latitude, &d.Longitude, &d.Country, &d.ImageURL, &d.Status, &d.BeneficiaryID,
		&d.ReservedAt, &d.ExpiresAt, &d.ConcludedAt, &d.ReportCount, &d.LockVersion,
		&d.CreatedAt, &d.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

func collectDonations(rows pgx.Rows) ([]domain.Donation, error) {
	defer rows.Close()
	var items []domain.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

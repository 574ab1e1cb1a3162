package domain

import "time"

// DonationStatus enumerates donation lifecycle states.
type DonationStatus string

const (
	DonationStatusAvailable DonationStatus = "available"
	DonationStatusReserved  DonationStatus = "reserved"
	DonationStatusConcluded DonationStatus = "concluded"
)

// DonationType enumerates donation item categories.
type DonationType string

const (
	DonationTypeClothing    DonationType = "clothing"
	DonationTypeFurniture   DonationType = "furniture"
	DonationTypeElectronics DonationType = "electronics"
	DonationTypeFood        DonationType = "food"
	DonationTypeBooks       DonationType = "books"
	DonationTypeOther       DonationType = "other"
)

// ValidDonationType reports whether t is a known donation category.
func ValidDonationType(t DonationType) bool {
	switch t {
	case DonationTypeClothing, DonationTypeFurniture, DonationTypeElectronics,
		DonationTypeFood, DonationTypeBooks, DonationTypeOther:
		return true
	}
	return false
}

// Donation represents an offered item moving through
// available -> reserved -> concluded, with reserved -> available on expiry.
// BeneficiaryID, ReservedAt and ExpiresAt are set together while reserved
// and cleared together on revert. LockVersion is bumped on every lifecycle
// transition so that a stale writer loses a concurrent race.
type Donation struct {
	ID            string
	OwnerID       string
	Title         string
	Description   string
	Type          DonationType
	OtherType     string
	Location      string
	Latitude      *float64
	Longitude     *float64
	Country       string
	ImageURL      string
	Status        DonationStatus
	BeneficiaryID *string
	ReservedAt    *time.Time
	ExpiresAt     *time.Time
	ConcludedAt   *time.Time
	ReportCount   int
	LockVersion   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsParty reports whether userID is the owner or the current beneficiary.
func (d *Donation) IsParty(userID string) bool {
	if d.OwnerID == userID {
		return true
	}
	return d.BeneficiaryID != nil && *d.BeneficiaryID == userID
}

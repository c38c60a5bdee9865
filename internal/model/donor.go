package model

import (
	"fmt"
	"strings"
	"time"
)

// DonorProfile is the donor-owned record used for matching. Name and contact
// fields come from the owning user account.
type DonorProfile struct {
	ID                   int64      `json:"id" db:"id"`
	UserID               int64      `json:"user_id" db:"user_id"`
	FirstName            string     `json:"first_name" db:"first_name"`
	LastName             string     `json:"last_name" db:"last_name"`
	Email                string     `json:"email" db:"email"`
	Phone                string     `json:"phone" db:"phone"`
	BloodTypeID          int64      `json:"blood_type_id" db:"blood_type_id"`
	BloodType            string     `json:"blood_type" db:"blood_type"`
	LocationID           int64      `json:"location_id" db:"location_id"`
	Location             string     `json:"location" db:"location"`
	IsAvailable          bool       `json:"is_available" db:"is_available"`
	IsHealthyForDonation bool       `json:"is_healthy_for_donation" db:"is_healthy_for_donation"`
	IsIdentityHidden     bool       `json:"is_identity_hidden" db:"is_identity_hidden"`
	LastDonationDate     *time.Time `json:"last_donation_date,omitempty" db:"last_donation_date"`
	Timestamps
}

// Eligible reports whether the donor may be matched at all.
func (d *DonorProfile) Eligible() bool {
	return d.IsAvailable && d.IsHealthyForDonation
}

// Pseudonym is the stable name shown when identity is hidden.
func (d *DonorProfile) Pseudonym() string {
	return fmt.Sprintf("Donor #%d", d.ID)
}

// DisplayName never returns the real name of a hidden donor.
func (d *DonorProfile) DisplayName() string {
	if d.IsIdentityHidden {
		return d.Pseudonym()
	}
	name := strings.TrimSpace(d.FirstName + " " + d.LastName)
	if name == "" {
		return d.Pseudonym()
	}
	return name
}

// DonorContact is the donor view handed to administrators and requesters.
type DonorContact struct {
	DonorID          int64      `json:"donor_id"`
	Name             string     `json:"name"`
	Email            string     `json:"email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	BloodType        string     `json:"blood_type"`
	Location         string     `json:"location"`
	IsIdentityHidden bool       `json:"is_identity_hidden"`
	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
}

// ContactScope selects how much of a donor a caller may see.
type ContactScope int

const (
	// ScopeRequester hides contact channels of identity-hidden donors.
	ScopeRequester ContactScope = iota
	ScopeAdmin
)

// Contact renders the donor for the given scope.
func (d *DonorProfile) Contact(scope ContactScope) DonorContact {
	if scope == ScopeAdmin {
		return d.AdminContact()
	}
	return d.RequesterDisclosure()
}

// AdminContact keeps contact channels so coordinators can reach the donor,
// but replaces the name of hidden donors.
func (d *DonorProfile) AdminContact() DonorContact {
	return DonorContact{
		DonorID:          d.ID,
		Name:             d.DisplayName(),
		Email:            d.Email,
		Phone:            d.Phone,
		BloodType:        d.BloodType,
		Location:         d.Location,
		IsIdentityHidden: d.IsIdentityHidden,
		LastDonationDate: d.LastDonationDate,
	}
}

// RequesterDisclosure is what a requester may learn about a confirmed donor.
// Hidden donors disclose only the pseudonym and matching attributes.
func (d *DonorProfile) RequesterDisclosure() DonorContact {
	c := DonorContact{
		DonorID:          d.ID,
		Name:             d.DisplayName(),
		BloodType:        d.BloodType,
		Location:         d.Location,
		IsIdentityHidden: d.IsIdentityHidden,
	}
	if !d.IsIdentityHidden {
		c.Email = d.Email
		c.Phone = d.Phone
	}
	return c
}

// DonorFilter narrows directory queries.
type DonorFilter struct {
	BloodTypeID int64
	LocationID  int64
	Email       string
	// EligibleOnly requires IsAvailable and IsHealthyForDonation.
	EligibleOnly bool
}

// Matches applies the filter in memory with the same semantics as the SQL query.
func (f DonorFilter) Matches(d *DonorProfile) bool {
	if f.BloodTypeID != 0 && d.BloodTypeID != f.BloodTypeID {
		return false
	}
	if f.LocationID != 0 && d.LocationID != f.LocationID {
		return false
	}
	if f.Email != "" && !strings.EqualFold(d.Email, f.Email) {
		return false
	}
	if f.EligibleOnly && !d.Eligible() {
		return false
	}
	return true
}

package model

import (
	"time"
)

type ConfirmationStatus string

const (
	ConfirmationStatusPending   ConfirmationStatus = "Pending"
	ConfirmationStatusConfirmed ConfirmationStatus = "Confirmed"
	ConfirmationStatusDeclined  ConfirmationStatus = "Declined"
)

func (s ConfirmationStatus) Valid() bool {
	switch s {
	case ConfirmationStatusPending, ConfirmationStatusConfirmed, ConfirmationStatusDeclined:
		return true
	}
	return false
}

// ConfirmationSource records which path wrote the row last.
type ConfirmationSource string

const (
	SourceAdmin ConfirmationSource = "admin"
	SourceDonor ConfirmationSource = "donor"
	SourceEmail ConfirmationSource = "email"
)

// DonorConfirmation is unique per (RequestID, DonorID).
type DonorConfirmation struct {
	ID          int64              `json:"id" db:"id"`
	RequestID   int64              `json:"request_id" db:"request_id"`
	DonorID     int64              `json:"donor_id" db:"donor_id"`
	Status      ConfirmationStatus `json:"status" db:"status"`
	Message     *string            `json:"message,omitempty" db:"message"`
	AdminNotes  *string            `json:"admin_notes,omitempty" db:"admin_notes"`
	Source      ConfirmationSource `json:"source" db:"source"`
	ConfirmedAt time.Time          `json:"confirmed_at" db:"confirmed_at"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}

// ConfirmationInput is one status-affecting write to the ledger.
type ConfirmationInput struct {
	RequestID  int64
	DonorID    int64
	Status     ConfirmationStatus
	Message    *string
	AdminNotes *string
	Source     ConfirmationSource
}

// LedgerResult describes what a ledger write did.
type LedgerResult struct {
	Confirmation            *DonorConfirmation `json:"confirmation"`
	IsNewRecord             bool               `json:"is_new_record"`
	TransitionedToConfirmed bool               `json:"transitioned_to_confirmed"`
}

// RecordConfirmationRequest is the API body for admin and donor recording.
type RecordConfirmationRequest struct {
	DonorID    int64              `json:"donor_id" validate:"required,gt=0"`
	Status     ConfirmationStatus `json:"status" validate:"omitempty,oneof=Pending Confirmed Declined"`
	Message    *string            `json:"message" validate:"omitempty,max=2000"`
	AdminNotes *string            `json:"admin_notes" validate:"omitempty,max=2000"`
}

// DonorResponseRequest is the body of the donor self-service action.
type DonorResponseRequest struct {
	Status  ConfirmationStatus `json:"status" validate:"omitempty,oneof=Confirmed Declined"`
	Message *string            `json:"message" validate:"omitempty,max=2000"`
}

// ConfirmationView is a ledger row joined with the donor, identity hiding applied.
type ConfirmationView struct {
	ID          int64              `json:"id"`
	RequestID   int64              `json:"request_id"`
	DonorID     int64              `json:"donor_id"`
	DonorName   string             `json:"donor_name"`
	BloodType   string             `json:"blood_type"`
	Location    string             `json:"location"`
	Status      ConfirmationStatus `json:"status"`
	Message     *string            `json:"message,omitempty"`
	AdminNotes  *string            `json:"admin_notes,omitempty"`
	Source      ConfirmationSource `json:"source"`
	ConfirmedAt time.Time          `json:"confirmed_at"`
}

package model

import (
	"time"
)

type UrgencyLevel string

const (
	UrgencyCritical UrgencyLevel = "Critical"
	UrgencyHigh     UrgencyLevel = "High"
	UrgencyNormal   UrgencyLevel = "Normal"
	UrgencyLow      UrgencyLevel = "Low"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "Pending"
	RequestStatusApproved  RequestStatus = "Approved"
	RequestStatusCompleted RequestStatus = "Completed"
	RequestStatusCancelled RequestStatus = "Cancelled"
)

var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:  {RequestStatusApproved, RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusApproved: {RequestStatusCompleted, RequestStatusCancelled},
}

// CanTransition reports whether s may move to next. Completed and Cancelled
// are terminal.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusCompleted, RequestStatusCancelled:
		return true
	}
	return false
}

// DonorRequest is a hospital or admin initiated need for blood.
type DonorRequest struct {
	ID                int64         `json:"id" db:"id"`
	PatientName       string        `json:"patient_name" db:"patient_name"`
	BloodTypeID       int64         `json:"blood_type_id" db:"blood_type_id"`
	BloodType         string        `json:"blood_type" db:"blood_type"`
	LocationID        int64         `json:"location_id" db:"location_id"`
	Location          string        `json:"location" db:"location"`
	Urgency           UrgencyLevel  `json:"urgency" db:"urgency"`
	ContactNumber     string        `json:"contact_number" db:"contact_number"`
	HospitalName      string        `json:"hospital_name,omitempty" db:"hospital_name"`
	Notes             string        `json:"notes,omitempty" db:"notes"`
	RequesterEmail    string        `json:"requester_email" db:"requester_email"`
	Status            RequestStatus `json:"status" db:"status"`
	NotifiedCount     int           `json:"notified_count" db:"notified_count"`
	NotifyFailedCount int           `json:"notify_failed_count" db:"notify_failed_count"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
}

// CreateRequestInput is validated in full before anything is persisted.
type CreateRequestInput struct {
	PatientName    string       `json:"patient_name" validate:"required,max=200"`
	BloodTypeID    int64        `json:"blood_type_id" validate:"required,gt=0"`
	LocationID     int64        `json:"location_id" validate:"required,gt=0"`
	Urgency        UrgencyLevel `json:"urgency" validate:"required,oneof=Critical High Normal Low"`
	ContactNumber  string       `json:"contact_number" validate:"required,max=32"`
	HospitalName   string       `json:"hospital_name" validate:"max=200"`
	Notes          string       `json:"notes" validate:"max=2000"`
	RequesterEmail string       `json:"requester_email" validate:"required,email"`
}

type UpdateRequestStatusInput struct {
	Status RequestStatus `json:"status" validate:"required,oneof=Pending Approved Completed Cancelled"`
}

type RequestFilter struct {
	Status RequestStatus `form:"status"`
	Pagination
}

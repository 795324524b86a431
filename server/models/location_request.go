package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// How long the subject has to respond before the escalation sweep
// takes over
const LocationRequestTTL = 30 * time.Minute

// RequestAlreadyPendingError is returned when a subject already has an
// unresolved request; it carries the existing record so callers can surface
// its reference & expiry instead of a generic conflict.
type RequestAlreadyPendingError struct {
	Existing *LocationRequest
}

func (e *RequestAlreadyPendingError) Error() string {
	return "location request already pending"
}

// AlreadyResolvedError is returned on any transition attempt against a
// request that has reached a terminal status.
type AlreadyResolvedError struct {
	Status string
}

func (e *AlreadyResolvedError) Error() string {
	return fmt.Sprintf("request already %v", strings.ToLower(e.Status))
}

type LocationRequest struct {
	BaseModel
	Reference       string         `json:"reference" gorm:"not null;unique"`
	UserEmail       string         `json:"user_email" gorm:"not null;index:idx_subject_status"`
	ReceiverEmail   string         `json:"receiver_email" gorm:"not null"`
	RequestStatusID uint           `json:"-" gorm:"index:idx_subject_status;index:idx_status_expiry"`
	RequestStatus   *RequestStatus `json:"status,omitempty"`
	ExpiresAt       time.Time      `json:"expires_at" gorm:"not null;index:idx_status_expiry"`
	RespondedAt     *time.Time     `json:"responded_at,omitempty"`
	Latitude        *float64       `json:"latitude,omitempty"`
	Longitude       *float64       `json:"longitude,omitempty"`
	Accuracy        *float64       `json:"accuracy,omitempty"`
	LocationAt      *time.Time     `json:"location_at,omitempty"`
}

// StatusName returns the name of the request's loaded status
func (request *LocationRequest) StatusName() string {
	if request.RequestStatus == nil {
		return ""
	}
	return request.RequestStatus.Name
}

// CreateLocationRequest records a new PENDING request for userEmail expiring
// LocationRequestTTL from now. At most one PENDING request may exist per
// subject; a conflicting create fails with RequestAlreadyPendingError.
func CreateLocationRequest(userEmail, receiverEmail string) (*LocationRequest, error) {
	existing, err := PendingLocationRequest(userEmail)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, &RequestAlreadyPendingError{Existing: existing}
	}

	pendingStatus, err := FindRequestStatus(PENDING_REQUEST)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request := &LocationRequest{
		BaseModel:       BaseModel{CreatedAt: now, UpdatedAt: now},
		Reference:       uuid.NewString(),
		UserEmail:       strings.ToLower(strings.TrimSpace(userEmail)),
		ReceiverEmail:   strings.ToLower(strings.TrimSpace(receiverEmail)),
		RequestStatusID: pendingStatus.ID,
		ExpiresAt:       now.Add(LocationRequestTTL),
	}

	err = db.Create(request).Error
	if err != nil {
		return nil, err
	}

	request.RequestStatus = pendingStatus
	return request, nil
}

func FindLocationRequest(reference string) (*LocationRequest, error) {
	request := LocationRequest{}
	err := db.Preload("RequestStatus").First(&request, "reference = ?", reference).Error
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// PendingLocationRequest returns the subject's unresolved request, if any
func PendingLocationRequest(userEmail string) (*LocationRequest, error) {
	request := LocationRequest{}

	err := db.Preload("RequestStatus").Joins(
		"INNER JOIN request_statuses ON request_statuses.id = location_requests.request_status_id AND request_statuses.name = ?",
		PENDING_REQUEST).
		Where("user_email = ?", strings.ToLower(strings.TrimSpace(userEmail))).
		First(&request).Error
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// ExpiredPendingRequests returns every PENDING request whose expiry is
// strictly in the past, oldest first.
func ExpiredPendingRequests() ([]LocationRequest, error) {
	requests := []LocationRequest{}

	err := db.Preload("RequestStatus").Joins(
		"INNER JOIN request_statuses ON request_statuses.id = location_requests.request_status_id AND request_statuses.name = ?",
		PENDING_REQUEST).
		Where("expires_at < ?", time.Now()).
		Order("location_requests.id asc").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}

	return requests, nil
}

// Accept transitions the request to ACCEPTED and records the shared location
func (request *LocationRequest) Accept(latitude, longitude float64, accuracy *float64) error {
	now := time.Now()
	return request.transitionTo(ACCEPTED_REQUEST, map[string]interface{}{
		"responded_at": now,
		"latitude":     latitude,
		"longitude":    longitude,
		"accuracy":     accuracy,
		"location_at":  now,
	})
}

// Deny transitions the request to DENIED
func (request *LocationRequest) Deny() error {
	return request.transitionTo(DENIED_REQUEST, map[string]interface{}{
		"responded_at": time.Now(),
	})
}

// TimeOut transitions the request to TIMEOUT; only the escalation sweep
// calls this.
func (request *LocationRequest) TimeOut() error {
	return request.transitionTo(TIMEOUT_REQUEST, map[string]interface{}{
		"responded_at": time.Now(),
	})
}

func (request *LocationRequest) Update(data map[string]interface{}) error {
	return db.Model(request).Updates(data).Error
}

// transitionTo commits a terminal transition with a guarded update - the row
// is only touched while still PENDING, so whichever of accept/deny/timeout
// gets there first wins and the losers observe AlreadyResolvedError.
func (request *LocationRequest) transitionTo(statusName string, update map[string]interface{}) error {
	pendingStatus, err := FindRequestStatus(PENDING_REQUEST)
	if err != nil {
		return err
	}

	targetStatus, err := FindRequestStatus(statusName)
	if err != nil {
		return err
	}

	update["request_status_id"] = targetStatus.ID

	result := db.Model(&LocationRequest{}).
		Where("id = ? AND request_status_id = ?", request.ID, pendingStatus.ID).
		Updates(update)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		current, err := FindLocationRequest(request.Reference)
		if err != nil {
			return err
		}
		return &AlreadyResolvedError{Status: current.StatusName()}
	}

	refreshed, err := FindLocationRequest(request.Reference)
	if err != nil {
		return err
	}
	*request = *refreshed

	return nil
}

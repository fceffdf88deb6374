package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// EnrollRequest asks to replace an absence with an occurrence of another group.
type EnrollRequest struct {
	StudentID    string    `json:"student_id" validate:"required"`
	AttendanceID uuid.UUID `json:"attendance_id" validate:"required"`
	OccurrenceID uuid.UUID `json:"occurrence_id" validate:"required"`
}

// EnrollmentStatus is the successful outcome of an enrollment.
type EnrollmentStatus string

const (
	StatusEnrolled  EnrollmentStatus = "Enrolled"
	StatusRequested EnrollmentStatus = "Requested"
)

// EnrollmentResult reports the record created by an enrollment.
type EnrollmentResult struct {
	Status                EnrollmentStatus   `json:"status"`
	AttendanceID          uuid.UUID          `json:"attendance_id"`
	OccurrenceID          uuid.UUID          `json:"occurrence_id"`
	MakeupID              *uuid.UUID         `json:"makeup_id,omitempty"`
	CompensationRequestID *uuid.UUID         `json:"compensation_request_id,omitempty"`
	CompensationStatus    CompensationStatus `json:"compensation_status,omitempty"`
}

// OriginalSession describes the missed occurrence in an eligibility report.
type OriginalSession struct {
	AttendanceID uuid.UUID   `json:"attendance_id"`
	OccurrenceID uuid.UUID   `json:"occurrence_id"`
	SessionID    uuid.UUID   `json:"session_id"`
	ModuleID     uuid.UUID   `json:"module_id"`
	ModuleName   string      `json:"module_name"`
	SessionType  SessionType `json:"session_type"`
	Date         string      `json:"date"`
	Day          string      `json:"day"`
	StartTime    string      `json:"start_time"`
	EndTime      string      `json:"end_time"`
}

// NewOriginalSession renders an absence for the report.
func NewOriginalSession(a Absence) OriginalSession {
	return OriginalSession{
		AttendanceID: a.AttendanceID,
		OccurrenceID: a.OccurrenceID,
		SessionID:    a.SessionID,
		ModuleID:     a.ModuleID,
		ModuleName:   a.ModuleName,
		SessionType:  a.SessionType,
		Date:         CivilDate(a.Date).Format(DateLayout),
		Day:          a.Day,
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
	}
}

// EligibilityReport answers a request for replacement sessions.
// When the absence is already resolved only Resolution is set.
type EligibilityReport struct {
	OriginalSession  OriginalSession   `json:"original_session"`
	EligibleSessions []EligibleSession `json:"eligible_sessions"`
	ProgressSummary  SessionProgress   `json:"progress_summary"`
	WindowUntil      string            `json:"window_until,omitempty"`
	Resolution       *Resolution       `json:"resolution,omitempty"`
}

// IdempotencyKey stores the response of a request made with an Idempotency-Key header.
type IdempotencyKey struct {
	Key          string    `json:"key" gorm:"primaryKey"`
	StudentID    string    `json:"student_id" gorm:"not null"`
	RequestHash  string    `json:"request_hash" gorm:"not null"`
	ResponseData string    `json:"response_data" gorm:"type:text"`
	StatusCode   int       `json:"status_code"`
	ProcessedAt  time.Time `json:"processed_at"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"index"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (IdempotencyKey) TableName() string { return "idempotency_keys" }

func (k *IdempotencyKey) IsExpired() bool {
	return time.Now().After(k.ExpiresAt)
}

package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// SessionType is the kind of a timetable slot.
type SessionType string

const (
	SessionTypeLecture  SessionType = "cours"
	SessionTypePractice SessionType = "pw"
	SessionTypeDirected SessionType = "dw"
)

// Valid reports whether t is one of the known session types.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeLecture, SessionTypePractice, SessionTypeDirected:
		return true
	}
	return false
}

// IsMakeupType reports whether absences of this type can be made up.
func (t SessionType) IsMakeupType() bool {
	return t == SessionTypePractice || t == SessionTypeDirected
}

// Student represents a student in the system
type Student struct {
	Matricule    string    `json:"matricule" gorm:"primaryKey"`
	FirstName    string    `json:"firstname" gorm:"column:firstname;not null"`
	LastName     string    `json:"lastname" gorm:"column:lastname;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	GroupID      uuid.UUID `json:"group_id" gorm:"type:uuid;not null"`
	SectionID    uuid.UUID `json:"section_id" gorm:"->;-:migration"`
	PromotionID  uuid.UUID `json:"promotion_id" gorm:"type:uuid;not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Professor represents a teaching staff member
type Professor struct {
	Matricule    string    `json:"matricule" gorm:"primaryKey"`
	FirstName    string    `json:"firstname" gorm:"column:firstname;not null"`
	LastName     string    `json:"lastname" gorm:"column:lastname;not null"`
	Email        string    `json:"email" gorm:"unique;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Group is a cohort of students sharing pw/dw sessions.
type Group struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `json:"name" gorm:"not null"`
	SectionID uuid.UUID `json:"section_id" gorm:"type:uuid;not null"`
}

// Section is a set of groups sharing lectures.
type Section struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null"`
	PromotionID uuid.UUID `json:"promotion_id" gorm:"type:uuid;not null"`
}

// Semester represents an academic semester
type Semester struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Code      string    `json:"code" gorm:"unique;not null"`
	StartDate time.Time `json:"start_date" gorm:"type:date;not null"`
	EndDate   time.Time `json:"end_date" gorm:"type:date;not null"`
}

// Module is a taught subject of a promotion.
type Module struct {
	ID                     uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name                   string    `json:"name" gorm:"not null"`
	PromotionID            uuid.UUID `json:"promotion_id" gorm:"type:uuid;not null"`
	SemesterID             uuid.UUID `json:"semester_id" gorm:"type:uuid;not null"`
	ResponsibleProfessorID string    `json:"responsible_professor_id"`
}

// Room is a physical location with a seat capacity.
type Room struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name     string    `json:"name" gorm:"not null"`
	Type     string    `json:"type"`
	Capacity int       `json:"capacity" gorm:"not null;check:capacity >= 0"`
}

// DayTime is a weekly slot; times are stored as HH:MM text.
type DayTime struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Day       string    `json:"day" gorm:"not null"`
	StartTime string    `json:"start_time" gorm:"not null"`
	EndTime   string    `json:"end_time" gorm:"not null"`
}

// Session is a recurring timetable slot scoped to a group (pw/dw) or a section (cours).
type Session struct {
	ID          uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ModuleID    uuid.UUID   `json:"module_id" gorm:"type:uuid;not null"`
	Type        SessionType `json:"type" gorm:"type:text;not null"`
	RoomID      uuid.UUID   `json:"room_id" gorm:"type:uuid;not null"`
	ProfessorID string      `json:"professor_id" gorm:"not null"`
	TimeID      uuid.UUID   `json:"time_id" gorm:"type:uuid;not null"`
	GroupID     *uuid.UUID  `json:"group_id,omitempty" gorm:"type:uuid"`
	SectionID   *uuid.UUID  `json:"section_id,omitempty" gorm:"type:uuid"`
}

// SessionOccurrence is one dated instance of a Session.
type SessionOccurrence struct {
	ID                 uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID          uuid.UUID  `json:"session_id" gorm:"type:uuid;not null"`
	Date               time.Time  `json:"date" gorm:"type:date;not null"`
	ProfAbsence        bool       `json:"prof_absence" gorm:"not null;default:false"`
	IsCompensation     bool       `json:"is_compensation" gorm:"not null;default:false"`
	CompensationTimeID *uuid.UUID `json:"compensation_time_id,omitempty" gorm:"type:uuid"`
	CompensationRoomID *uuid.UUID `json:"compensation_room_id,omitempty" gorm:"type:uuid"`
}

// Cancelled reports whether the occurrence will not take place at all.
func (o *SessionOccurrence) Cancelled() bool {
	return o.ProfAbsence && !o.IsCompensation
}

// Attendance records presence of a student at an occurrence.
type Attendance struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StudentID    string    `json:"student_id" gorm:"not null"`
	OccurrenceID uuid.UUID `json:"occurrence_id" gorm:"type:uuid;not null"`
	Present      bool      `json:"present" gorm:"not null"`
	IsMakeup     bool      `json:"is_makeup" gorm:"not null;default:false"`
}

// MakeupEnrollment links a student to an occurrence joined to compensate an absence.
type MakeupEnrollment struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StudentID    string    `json:"student_id" gorm:"not null"`
	OccurrenceID uuid.UUID `json:"occurrence_id" gorm:"type:uuid;not null"`
	AttendanceID uuid.UUID `json:"attendance_id" gorm:"type:uuid;not null;unique"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// DebtSession marks a student as attending a session to clear a carried-over module.
type DebtSession struct {
	StudentID string    `json:"student_id" gorm:"primaryKey"`
	SessionID uuid.UUID `json:"session_id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// DebtModule marks a module carried over from a prior term.
type DebtModule struct {
	StudentID string    `json:"student_id" gorm:"primaryKey"`
	ModuleID  uuid.UUID `json:"module_id" gorm:"type:uuid;primaryKey"`
}

// CompensationStatus is the approval state of a compensation request.
type CompensationStatus string

const (
	CompensationAwaiting CompensationStatus = "Awaiting response"
	CompensationApproved CompensationStatus = "Approved"
	CompensationRejected CompensationStatus = "Rejected"
)

// CompensationRequest asks to attend a pw occurrence in place of a missed one.
type CompensationRequest struct {
	ID           uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	AttendanceID uuid.UUID          `json:"attendance_id" gorm:"type:uuid;not null"`
	OccurrenceID uuid.UUID          `json:"occurrence_id" gorm:"type:uuid;not null"`
	Status       CompensationStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt    time.Time          `json:"created_at" gorm:"autoCreateTime"`
	DecidedAt    *time.Time         `json:"decided_at,omitempty"`
}

// ModuleTitle is a node in the syllabus forest of a (module, type).
type ModuleTitle struct {
	ID        uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ModuleID  uuid.UUID   `json:"module_id" gorm:"type:uuid;not null"`
	Type      SessionType `json:"type" gorm:"type:text;not null"`
	Name      string      `json:"title_name" gorm:"column:title_name;not null"`
	ParentID  *uuid.UUID  `json:"parent_id,omitempty" gorm:"type:uuid"`
	Order     int         `json:"order" gorm:"column:sort_order;not null"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime"`
}

// TitleProgress is the completion flag of a title for one session.
type TitleProgress struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TitleID     uuid.UUID `json:"title_id" gorm:"type:uuid;not null"`
	SessionID   uuid.UUID `json:"session_id" gorm:"type:uuid;not null"`
	IsCompleted bool      `json:"is_completed" gorm:"not null"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Absence is an absent attendance row joined with its occurrence, session and resolution.
type Absence struct {
	AttendanceID uuid.UUID   `json:"attendance_id" db:"attendance_id"`
	StudentID    string      `json:"student_id" db:"student_id"`
	OccurrenceID uuid.UUID   `json:"occurrence_id" db:"occurrence_id"`
	SessionID    uuid.UUID   `json:"session_id" db:"session_id"`
	ModuleID     uuid.UUID   `json:"module_id" db:"module_id"`
	ModuleName   string      `json:"module_name" db:"module_name"`
	SessionType  SessionType `json:"session_type" db:"session_type"`
	GroupID      *uuid.UUID  `json:"group_id,omitempty" db:"group_id"`
	SectionID    *uuid.UUID  `json:"section_id,omitempty" db:"section_id"`
	Date         time.Time   `json:"date" db:"date"`
	Day          string      `json:"day" db:"day"`
	StartTime    string      `json:"start_time" db:"start_time"`
	EndTime      string      `json:"end_time" db:"end_time"`
	Resolution   *Resolution `json:"resolution,omitempty" db:"-"`

	// Progress of the missed session, filled for listings.
	Progress *SessionProgress `json:"progress,omitempty" db:"-"`
}

func (Student) TableName() string             { return "students" }
func (Professor) TableName() string           { return "professors" }
func (Group) TableName() string               { return "student_groups" }
func (Section) TableName() string             { return "sections" }
func (Semester) TableName() string            { return "semesters" }
func (Module) TableName() string              { return "modules" }
func (Room) TableName() string                { return "rooms" }
func (DayTime) TableName() string             { return "day_times" }
func (Session) TableName() string             { return "sessions" }
func (SessionOccurrence) TableName() string   { return "session_occurrences" }
func (Attendance) TableName() string          { return "attendances" }
func (MakeupEnrollment) TableName() string    { return "makeup_enrollments" }
func (DebtSession) TableName() string         { return "debt_sessions" }
func (DebtModule) TableName() string          { return "debt_modules" }
func (CompensationRequest) TableName() string { return "compensation_requests" }
func (ModuleTitle) TableName() string         { return "module_titles" }
func (TitleProgress) TableName() string       { return "title_progress" }

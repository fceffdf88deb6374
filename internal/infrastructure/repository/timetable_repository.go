package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"gorm.io/gorm"
)

// studentScope joins the student and the section of its group; sessions in scope are
// the group's pw/dw sessions and the section's lectures.
const studentScope = `
JOIN students st ON st.matricule = :student_id
JOIN student_groups sg ON sg.id = st.group_id`

const inStudentScope = `(s.group_id = st.group_id OR (s.group_id IS NULL AND s.section_id = sg.section_id))`

const busySlotsQuery = `
WITH window_occurrences AS (
	SELECT
		o.id AS occurrence_id,
		s.id AS session_id,
		s.group_id,
		s.section_id,
		m.name AS module_name,
		s.type AS session_type,
		o.date,
		o.prof_absence,
		o.is_compensation,
		dt.day AS regular_day,
		dt.start_time AS regular_start,
		dt.end_time AS regular_end,` + occurrenceSlot + `
	FROM session_occurrences o
	JOIN sessions s ON s.id = o.session_id
	JOIN modules m ON m.id = s.module_id
	JOIN day_times dt ON dt.id = s.time_id
	LEFT JOIN day_times ct ON o.is_compensation AND ct.id = o.compensation_time_id
	WHERE o.date >= CAST(:from AS date)
	  AND (CAST(:until AS date) IS NULL OR o.date <= CAST(:until AS date))
),
scoped AS (
	SELECT w.*
	FROM window_occurrences w
	JOIN sessions s ON s.id = w.session_id` + studentScope + `
	WHERE ` + inStudentScope + `
)
SELECT 'timetable' AS source, occurrence_id, session_id, module_name, session_type, date,
       regular_day AS day, regular_start AS start_time, regular_end AS end_time
  FROM scoped
 WHERE NOT prof_absence
UNION ALL
SELECT 'compensation', occurrence_id, session_id, module_name, session_type, date, day, start_time, end_time
  FROM scoped
 WHERE prof_absence AND is_compensation
UNION ALL
SELECT 'makeup', w.occurrence_id, w.session_id, w.module_name, w.session_type, w.date, w.day, w.start_time, w.end_time
  FROM window_occurrences w
  JOIN makeup_enrollments me ON me.occurrence_id = w.occurrence_id
 WHERE me.student_id = :student_id
   AND NOT (w.prof_absence AND NOT w.is_compensation)
UNION ALL
SELECT 'makeup', w.occurrence_id, w.session_id, w.module_name, w.session_type, w.date, w.day, w.start_time, w.end_time
  FROM window_occurrences w
  JOIN compensation_requests cr ON cr.occurrence_id = w.occurrence_id
  JOIN attendances a ON a.id = cr.attendance_id
 WHERE a.student_id = :student_id
   AND cr.status <> 'Rejected'
   AND NOT (w.prof_absence AND NOT w.is_compensation)
UNION ALL
SELECT 'debt', w.occurrence_id, w.session_id, w.module_name, w.session_type, w.date, w.day, w.start_time, w.end_time
  FROM window_occurrences w
  JOIN debt_sessions ds ON ds.session_id = w.session_id
 WHERE ds.student_id = :student_id
   AND NOT (w.prof_absence AND NOT w.is_compensation)`

const candidatesQuery = `
SELECT
	o.id AS occurrence_id,
	s.id AS session_id,
	s.module_id,
	m.name AS module_name,
	s.type AS session_type,
	s.group_id,
	COALESCE(g.name, '') AS group_name,
	s.section_id,
	o.date,` + occurrenceSlot + `,
	COALESCE(cr.name, r.name) AS room_name,
	p.firstname || ' ' || p.lastname AS professor_name,
	o.is_compensation
FROM session_occurrences o
JOIN sessions s ON s.id = o.session_id
JOIN modules m ON m.id = s.module_id
JOIN day_times dt ON dt.id = s.time_id
JOIN rooms r ON r.id = s.room_id
JOIN professors p ON p.matricule = s.professor_id
LEFT JOIN student_groups g ON g.id = s.group_id
LEFT JOIN day_times ct ON o.is_compensation AND ct.id = o.compensation_time_id
LEFT JOIN rooms cr ON o.is_compensation AND cr.id = o.compensation_room_id
WHERE s.module_id = :module_id
  AND s.type = :session_type
  AND s.type IN ('pw', 'dw')
  AND s.id <> :session_id
  AND (s.group_id IS NULL OR CAST(:group_id AS uuid) IS NULL OR s.group_id <> CAST(:group_id AS uuid))
  AND NOT (o.prof_absence AND NOT o.is_compensation)
  AND o.date >= CAST(:from AS date)
  AND (CAST(:until AS date) IS NULL OR o.date <= CAST(:until AS date))
ORDER BY o.date, start_time`

// TimetableRepository reads sessions, occurrences and seat counts.
type TimetableRepository struct {
	db     *gorm.DB
	reader *sqlx.DB
}

func NewTimetableRepository(db *gorm.DB, reader *sqlx.DB) interfaces.TimetableRepository {
	return &TimetableRepository{db: db, reader: reader}
}

func (r *TimetableRepository) GetSession(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	var session domain.Session
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *TimetableRepository) selectNamed(ctx context.Context, dest interface{}, query string, arg map[string]interface{}) error {
	q, args, err := sqlx.Named(query, arg)
	if err != nil {
		return err
	}
	return r.reader.SelectContext(ctx, dest, r.reader.Rebind(q), args...)
}

func (r *TimetableRepository) ListBusySlots(ctx context.Context, studentID string, window domain.DateWindow) ([]domain.BusySlot, error) {
	slots := []domain.BusySlot{}
	err := r.selectNamed(ctx, &slots, busySlotsQuery, map[string]interface{}{
		"student_id": studentID,
		"from":       domain.CivilDate(window.From),
		"until":      window.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list busy slots of %s: %w", studentID, err)
	}
	return slots, nil
}

func (r *TimetableRepository) ListCandidates(ctx context.Context, absence *domain.Absence, window domain.DateWindow) ([]domain.CandidateOccurrence, error) {
	candidates := []domain.CandidateOccurrence{}
	err := r.selectNamed(ctx, &candidates, candidatesQuery, map[string]interface{}{
		"module_id":    absence.ModuleID,
		"session_type": string(absence.SessionType),
		"session_id":   absence.SessionID,
		"group_id":     absence.GroupID,
		"from":         domain.CivilDate(window.From),
		"until":        window.Until,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for %s: %w", absence.AttendanceID, err)
	}
	return candidates, nil
}

func (r *TimetableRepository) NextModuleOccurrence(ctx context.Context, studentID string, moduleID uuid.UUID, after time.Time) (*time.Time, error) {
	q, args, err := sqlx.Named(`
SELECT MIN(o.date)
FROM session_occurrences o
JOIN sessions s ON s.id = o.session_id`+studentScope+`
WHERE s.module_id = :module_id
  AND o.date > CAST(:after AS date)
  AND `+inStudentScope,
		map[string]interface{}{"student_id": studentID, "module_id": moduleID, "after": domain.CivilDate(after)})
	if err != nil {
		return nil, err
	}

	var next sql.NullTime
	if err := r.reader.GetContext(ctx, &next, r.reader.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to find next occurrence of module %s: %w", moduleID, err)
	}
	if !next.Valid {
		return nil, nil
	}
	d := domain.CivilDate(next.Time)
	return &d, nil
}

func (r *TimetableRepository) GetCapacities(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Capacity, error) {
	capacities := make(map[uuid.UUID]domain.Capacity, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return capacities, nil
	}

	q, args, err := sqlx.In(capacityQuery, sessionIDs)
	if err != nil {
		return nil, err
	}

	var rows []domain.Capacity
	if err := r.reader.SelectContext(ctx, &rows, r.reader.Rebind(q), args...); err != nil {
		return nil, fmt.Errorf("failed to compute capacities: %w", err)
	}
	for _, c := range rows {
		capacities[c.SessionID] = c
	}
	return capacities, nil
}

func (r *TimetableRepository) ListWeeklyCommitments(ctx context.Context, studentID string) ([]domain.WeeklyCommitment, error) {
	commitments := []domain.WeeklyCommitment{}
	err := r.selectNamed(ctx, &commitments, `
SELECT s.id AS session_id, 'timetable' AS source, dt.day, dt.start_time, dt.end_time
FROM sessions s
JOIN day_times dt ON dt.id = s.time_id`+studentScope+`
WHERE `+inStudentScope+`
UNION ALL
SELECT s.id, 'debt', dt.day, dt.start_time, dt.end_time
FROM debt_sessions ds
JOIN sessions s ON s.id = ds.session_id
JOIN day_times dt ON dt.id = s.time_id
WHERE ds.student_id = :student_id`, map[string]interface{}{"student_id": studentID})
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly commitments of %s: %w", studentID, err)
	}
	return commitments, nil
}

func (r *TimetableRepository) ListProfessorSessions(ctx context.Context, professorID string) ([]domain.ProfessorSession, error) {
	sessions := []domain.ProfessorSession{}
	err := r.selectNamed(ctx, &sessions, `
SELECT
	s.id AS session_id,
	s.module_id,
	m.name AS module_name,
	s.type AS session_type,
	COALESCE(g.name, sec.name, '') AS group_name,
	dt.day,
	dt.start_time,
	dt.end_time
FROM sessions s
JOIN modules m ON m.id = s.module_id
JOIN day_times dt ON dt.id = s.time_id
LEFT JOIN student_groups g ON g.id = s.group_id
LEFT JOIN sections sec ON sec.id = s.section_id
WHERE s.professor_id = :professor_id
ORDER BY m.name, s.type, group_name`, map[string]interface{}{"professor_id": professorID})
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions of professor %s: %w", professorID, err)
	}
	return sessions, nil
}

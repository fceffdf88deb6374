package repository

import (
	domain "academic-scheduler/internal/domain/scheduling"

	"github.com/google/uuid"
)

// Queries shared by the sqlx readers and the gorm transaction use ? placeholders;
// sqlx callers rebind them to $n.

// occurrenceSlot resolves the day, times and room actually used by an occurrence:
// the compensation slot when one was scheduled, the regular one otherwise.
const occurrenceSlot = `
	COALESCE(ct.day, dt.day) AS day,
	COALESCE(ct.start_time, dt.start_time) AS start_time,
	COALESCE(ct.end_time, dt.end_time) AS end_time`

const capacityQuery = `
SELECT
	s.id AS session_id,
	r.capacity AS room_capacity,
	(SELECT COUNT(DISTINCT st.matricule)
	   FROM students st
	   JOIN student_groups g ON g.id = st.group_id
	  WHERE (s.group_id IS NOT NULL AND st.group_id = s.group_id)
	     OR (s.group_id IS NULL AND g.section_id = s.section_id)) AS roster,
	(SELECT COUNT(DISTINCT me.student_id)
	   FROM makeup_enrollments me
	   JOIN session_occurrences mo ON mo.id = me.occurrence_id
	  WHERE mo.session_id = s.id) AS makeups,
	(SELECT COUNT(DISTINCT ds.student_id)
	   FROM debt_sessions ds
	  WHERE ds.session_id = s.id) AS debts
FROM sessions s
JOIN rooms r ON r.id = s.room_id
WHERE s.id IN (?)`

// resolutionQuery takes the attendance id three times and returns at most one row,
// preferring a makeup link over a live compensation request over the bare flag.
const resolutionQuery = `
SELECT kind, reference_id, occurrence_id, status FROM (
	SELECT 'makeup_enrolled' AS kind, me.id AS reference_id, me.occurrence_id, '' AS status, 1 AS rank
	  FROM makeup_enrollments me
	 WHERE me.attendance_id = ?
	UNION ALL
	SELECT 'compensation_requested', cr.id, cr.occurrence_id, cr.status, 2
	  FROM compensation_requests cr
	 WHERE cr.attendance_id = ? AND cr.status <> 'Rejected'
	UNION ALL
	SELECT 'marked_made_up', a.id, a.occurrence_id, '', 3
	  FROM attendances a
	 WHERE a.id = ? AND a.is_makeup
) resolutions
ORDER BY rank
LIMIT 1`

// hasDebtSessionQuery takes student, module and type.
const hasDebtSessionQuery = `
SELECT EXISTS (
	SELECT 1
	  FROM debt_sessions ds
	  JOIN sessions s ON s.id = ds.session_id
	 WHERE ds.student_id = ? AND s.module_id = ? AND s.type = ?
)`

// isAttendingQuery takes the student id and the occurrence id, three times in turn.
const isAttendingQuery = `
SELECT EXISTS (
	SELECT 1
	  FROM session_occurrences o
	  JOIN sessions s ON s.id = o.session_id
	  JOIN students st ON st.matricule = ?
	  JOIN student_groups g ON g.id = st.group_id
	 WHERE o.id = ?
	   AND (s.group_id = st.group_id OR (s.group_id IS NULL AND s.section_id = g.section_id))
	UNION ALL
	SELECT 1
	  FROM makeup_enrollments me
	 WHERE me.student_id = ? AND me.occurrence_id = ?
	UNION ALL
	SELECT 1
	  FROM debt_sessions ds
	  JOIN session_occurrences o ON o.session_id = ds.session_id
	 WHERE ds.student_id = ? AND o.id = ?
)`

type resolutionRow struct {
	Kind         string    `db:"kind"`
	ReferenceID  uuid.UUID `db:"reference_id"`
	OccurrenceID uuid.UUID `db:"occurrence_id"`
	Status       string    `db:"status"`
}

func (r resolutionRow) toDomain() *domain.Resolution {
	return &domain.Resolution{
		Kind:         domain.ResolutionKind(r.Kind),
		ReferenceID:  r.ReferenceID,
		OccurrenceID: r.OccurrenceID,
		Status:       domain.CompensationStatus(r.Status),
	}
}

type progressRow struct {
	SessionID uuid.UUID `db:"session_id"`
	Total     int       `db:"total"`
	Completed int       `db:"completed"`
}

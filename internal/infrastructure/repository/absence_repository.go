package repository

import (
	"context"
	"database/sql"
	"fmt"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const absenceColumns = `
	a.id AS attendance_id,
	a.student_id,
	o.id AS occurrence_id,
	s.id AS session_id,
	m.id AS module_id,
	m.name AS module_name,
	s.type AS session_type,
	s.group_id,
	s.section_id,
	o.date,` + occurrenceSlot

const absenceFrom = `
FROM attendances a
JOIN session_occurrences o ON o.id = a.occurrence_id
JOIN sessions s ON s.id = o.session_id
JOIN modules m ON m.id = s.module_id
JOIN day_times dt ON dt.id = s.time_id
LEFT JOIN day_times ct ON o.is_compensation AND ct.id = o.compensation_time_id`

// AbsenceRepository reads absent attendance rows with plain SQL.
type AbsenceRepository struct {
	db *sqlx.DB
}

func NewAbsenceRepository(db *sqlx.DB) interfaces.AbsenceRepository {
	return &AbsenceRepository{db: db}
}

func (r *AbsenceRepository) GetAbsence(ctx context.Context, studentID string, attendanceID uuid.UUID) (*domain.Absence, error) {
	query := r.db.Rebind(`SELECT` + absenceColumns + absenceFrom + `
WHERE a.id = ? AND a.student_id = ? AND NOT a.present`)

	var absence domain.Absence
	if err := r.db.GetContext(ctx, &absence, query, attendanceID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load absence %s: %w", attendanceID, err)
	}
	return &absence, nil
}

func (r *AbsenceRepository) ListAbsences(ctx context.Context, studentID string) ([]domain.Absence, error) {
	query := r.db.Rebind(`SELECT` + absenceColumns + absenceFrom + `
WHERE a.student_id = ? AND NOT a.present
ORDER BY o.date DESC, start_time`)

	absences := []domain.Absence{}
	if err := r.db.SelectContext(ctx, &absences, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list absences of %s: %w", studentID, err)
	}
	return absences, nil
}

func (r *AbsenceRepository) GetResolution(ctx context.Context, attendanceID uuid.UUID) (*domain.Resolution, error) {
	var row resolutionRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(resolutionQuery), attendanceID, attendanceID, attendanceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load resolution of %s: %w", attendanceID, err)
	}
	return row.toDomain(), nil
}

func (r *AbsenceRepository) CountAttendance(ctx context.Context, studentID string, semesterID *uuid.UUID) (int, int, error) {
	query, args, err := sqlx.Named(`
SELECT
	COUNT(*) AS total,
	COUNT(*) FILTER (WHERE NOT a.present) AS absent
FROM attendances a
JOIN session_occurrences o ON o.id = a.occurrence_id
JOIN sessions s ON s.id = o.session_id
JOIN modules m ON m.id = s.module_id
WHERE a.student_id = :student_id
  AND (CAST(:semester_id AS uuid) IS NULL OR m.semester_id = CAST(:semester_id AS uuid))`,
		map[string]interface{}{"student_id": studentID, "semester_id": semesterID})
	if err != nil {
		return 0, 0, err
	}

	var counts struct {
		Total  int `db:"total"`
		Absent int `db:"absent"`
	}
	if err := r.db.GetContext(ctx, &counts, r.db.Rebind(query), args...); err != nil {
		return 0, 0, fmt.Errorf("failed to count attendance of %s: %w", studentID, err)
	}
	return counts.Total, counts.Absent, nil
}

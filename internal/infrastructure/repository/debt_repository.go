package repository

import (
	"context"
	"fmt"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DebtRepository struct {
	db *sqlx.DB
}

func NewDebtRepository(db *sqlx.DB) interfaces.DebtRepository {
	return &DebtRepository{db: db}
}

func (r *DebtRepository) ListDebtModules(ctx context.Context, studentID string) ([]domain.DebtModuleView, error) {
	query := r.db.Rebind(`
SELECT m.id AS module_id, m.name AS module_name, sem.code AS semester_code
FROM debt_modules dm
JOIN modules m ON m.id = dm.module_id
JOIN semesters sem ON sem.id = m.semester_id
WHERE dm.student_id = ?
ORDER BY sem.start_date, m.name`)

	modules := []domain.DebtModuleView{}
	if err := r.db.SelectContext(ctx, &modules, query, studentID); err != nil {
		return nil, fmt.Errorf("failed to list debt modules of %s: %w", studentID, err)
	}
	return modules, nil
}

func (r *DebtRepository) HasDebtSession(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, r.db.Rebind(hasDebtSessionQuery), studentID, moduleID, string(sessionType))
	if err != nil {
		return false, fmt.Errorf("failed to check debt sessions of %s: %w", studentID, err)
	}
	return exists, nil
}

// ListDebtCandidates returns the sessions of a module and type outside the student's own
// group and section. Clash and capacity filtering is left to the caller.
func (r *DebtRepository) ListDebtCandidates(ctx context.Context, studentID string, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.DebtCandidate, error) {
	query, args, err := sqlx.Named(`
SELECT
	s.id AS session_id,
	s.type AS session_type,
	m.name AS module_name,
	dt.day,
	dt.start_time,
	dt.end_time,
	r.name AS room_name,
	p.firstname || ' ' || p.lastname AS professor_name
FROM sessions s
JOIN modules m ON m.id = s.module_id
JOIN day_times dt ON dt.id = s.time_id
JOIN rooms r ON r.id = s.room_id
JOIN professors p ON p.matricule = s.professor_id`+studentScope+`
WHERE s.module_id = :module_id
  AND s.type = :session_type
  AND NOT `+inStudentScope,
		map[string]interface{}{
			"student_id":   studentID,
			"module_id":    moduleID,
			"session_type": string(sessionType),
		})
	if err != nil {
		return nil, err
	}

	candidates := []domain.DebtCandidate{}
	if err := r.db.SelectContext(ctx, &candidates, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list debt candidates for module %s: %w", moduleID, err)
	}
	return candidates, nil
}

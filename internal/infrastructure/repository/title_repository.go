package repository

import (
	"context"
	"fmt"
	"time"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TitleRepository struct {
	db *gorm.DB
}

func NewTitleRepository(db *gorm.DB) interfaces.TitleRepository {
	return &TitleRepository{
		db: db,
	}
}

func (r *TitleRepository) ListTitles(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]domain.ModuleTitle, error) {
	var titles []domain.ModuleTitle
	err := r.db.WithContext(ctx).
		Where("module_id = ? AND type = ?", moduleID, sessionType).
		Order("sort_order, title_name").
		Find(&titles).Error
	return titles, err
}

func (r *TitleRepository) GetTitle(ctx context.Context, id uuid.UUID) (*domain.ModuleTitle, error) {
	var title domain.ModuleTitle
	err := r.db.WithContext(ctx).First(&title, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &title, nil
}

func (r *TitleRepository) CreateTitle(ctx context.Context, title *domain.ModuleTitle) error {
	if title.ID == uuid.Nil {
		title.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(title).Error
}

func (r *TitleRepository) UpdateTitle(ctx context.Context, title *domain.ModuleTitle) error {
	return r.db.WithContext(ctx).
		Model(title).
		Select("title_name", "parent_id", "sort_order").
		Updates(title).Error
}

func (r *TitleRepository) DeleteTitles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("title_id IN ?", ids).Delete(&domain.TitleProgress{}).Error; err != nil {
			return fmt.Errorf("failed to delete title progress: %w", err)
		}
		if err := tx.Where("id IN ?", ids).Delete(&domain.ModuleTitle{}).Error; err != nil {
			return fmt.Errorf("failed to delete titles: %w", err)
		}
		return nil
	})
}

func (r *TitleRepository) CompletedTitles(ctx context.Context, sessionID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.TitleProgress{}).
		Where("session_id = ? AND is_completed", sessionID).
		Pluck("title_id", &ids).Error
	if err != nil {
		return nil, err
	}

	completed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		completed[id] = true
	}
	return completed, nil
}

// SetProgress upserts one progress row per title for the session.
func (r *TitleRepository) SetProgress(ctx context.Context, sessionID uuid.UUID, titleIDs []uuid.UUID, completed bool) error {
	if len(titleIDs) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]domain.TitleProgress, 0, len(titleIDs))
	for _, id := range titleIDs {
		rows = append(rows, domain.TitleProgress{
			ID:          uuid.New(),
			TitleID:     id,
			SessionID:   sessionID,
			IsCompleted: completed,
			UpdatedAt:   now,
		})
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "title_id"}, {Name: "session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_completed", "updated_at"}),
	}).Create(&rows).Error
}

func (r *TitleRepository) GetProgress(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Progress, error) {
	progress := make(map[uuid.UUID]domain.Progress, len(sessionIDs))
	if len(sessionIDs) == 0 {
		return progress, nil
	}

	var rows []progressRow
	err := r.db.WithContext(ctx).Raw(`
SELECT
	s.id AS session_id,
	COUNT(t.id) AS total,
	COUNT(tp.id) FILTER (WHERE tp.is_completed) AS completed
FROM sessions s
LEFT JOIN module_titles t ON t.module_id = s.module_id AND t.type = s.type
LEFT JOIN title_progress tp ON tp.title_id = t.id AND tp.session_id = s.id
WHERE s.id IN ?
GROUP BY s.id`, sessionIDs).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	for _, row := range rows {
		progress[row.SessionID] = domain.Progress{Completed: row.Completed, Total: row.Total}
	}
	return progress, nil
}

func (r *TitleRepository) ListSessionIDs(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&domain.Session{}).
		Where("module_id = ? AND type = ?", moduleID, sessionType).
		Pluck("id", &ids).Error
	return ids, err
}

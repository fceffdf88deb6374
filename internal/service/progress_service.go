package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/pkg/logger"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const DefaultProgressTTL = 5 * time.Minute

var _ serviceInterfaces.ProgressService = (*ProgressService)(nil)

// ProgressService owns the syllabus forest and the per-session completion rollups.
type ProgressService struct {
	titleRepo     interfaces.TitleRepository
	timetableRepo interfaces.TimetableRepository
	cacheService  interfaces.CacheService
	ttl           time.Duration
}

func NewProgressService(
	titleRepo interfaces.TitleRepository,
	timetableRepo interfaces.TimetableRepository,
	cacheService interfaces.CacheService,
	ttl time.Duration,
) *ProgressService {
	if ttl <= 0 {
		ttl = DefaultProgressTTL
	}
	return &ProgressService{
		titleRepo:     titleRepo,
		timetableRepo: timetableRepo,
		cacheService:  cacheService,
		ttl:           ttl,
	}
}

// SessionProgress returns the rollup of each session, reading through the cache.
// Cache failures are logged and fall back to the database.
func (s *ProgressService) SessionProgress(ctx context.Context, sessionIDs []uuid.UUID) (map[uuid.UUID]domain.Progress, error) {
	progress := make(map[uuid.UUID]domain.Progress, len(sessionIDs))
	missing := make([]uuid.UUID, 0, len(sessionIDs))
	seen := make(map[uuid.UUID]bool, len(sessionIDs))

	for _, id := range sessionIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		cached, err := s.cacheService.GetProgress(ctx, id)
		if err != nil {
			logger.Warn("Failed to read progress of session %s from cache: %v", id, err)
		}
		if cached != nil {
			progress[id] = *cached
			continue
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return progress, nil
	}

	loaded, err := s.titleRepo.GetProgress(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	for _, id := range missing {
		p := loaded[id]
		progress[id] = p
		if err := s.cacheService.SetProgress(ctx, id, p, s.ttl); err != nil {
			logger.Warn("Failed to cache progress of session %s: %v", id, err)
		}
	}
	return progress, nil
}

func (s *ProgressService) ListTitles(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) ([]*domain.TitleNode, error) {
	if !sessionType.Valid() {
		return nil, domain.ErrInvalidSessionType
	}
	titles, err := s.titleRepo.ListTitles(ctx, moduleID, sessionType)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	return domain.BuildTitleForest(titles, nil), nil
}

func (s *ProgressService) CreateTitle(ctx context.Context, req *domain.CreateTitleRequest) (*domain.ModuleTitle, error) {
	if !req.Type.Valid() {
		return nil, domain.ErrInvalidSessionType
	}

	titles, err := s.titleRepo.ListTitles(ctx, req.ModuleID, req.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	if req.ParentID != nil && !containsTitle(titles, *req.ParentID) {
		return nil, fmt.Errorf("parent title %s: %w", *req.ParentID, domain.ErrNotFound)
	}

	title := &domain.ModuleTitle{
		ID:       uuid.New(),
		ModuleID: req.ModuleID,
		Type:     req.Type,
		Name:     strings.TrimSpace(req.Name),
		ParentID: req.ParentID,
		Order:    domain.NextSiblingOrder(titles, req.ParentID),
	}
	if err := s.titleRepo.CreateTitle(ctx, title); err != nil {
		return nil, fmt.Errorf("failed to create title: %w", err)
	}

	logger.Info("Created title %s for module %s (%s)", title.ID, title.ModuleID, title.Type)
	s.invalidateModule(ctx, title.ModuleID, title.Type)
	return title, nil
}

// UpdateTitle renames or moves a title. Moving a title under itself or one of its
// descendants fails with ErrTitleCycle.
func (s *ProgressService) UpdateTitle(ctx context.Context, id uuid.UUID, req *domain.UpdateTitleRequest) (*domain.ModuleTitle, error) {
	title, err := s.titleRepo.GetTitle(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load title: %w", err)
	}
	if title == nil {
		return nil, fmt.Errorf("title %s: %w", id, domain.ErrNotFound)
	}

	titles, err := s.titleRepo.ListTitles(ctx, title.ModuleID, title.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}

	if req.Name != nil {
		title.Name = strings.TrimSpace(*req.Name)
	}

	moved := false
	switch {
	case req.MoveToRoot:
		moved = title.ParentID != nil
		title.ParentID = nil
	case req.ParentID != nil:
		if !containsTitle(titles, *req.ParentID) {
			return nil, fmt.Errorf("parent title %s: %w", *req.ParentID, domain.ErrNotFound)
		}
		if domain.CreatesCycle(titles, id, req.ParentID) {
			return nil, domain.ErrTitleCycle
		}
		moved = title.ParentID == nil || *title.ParentID != *req.ParentID
		parent := *req.ParentID
		title.ParentID = &parent
	}

	switch {
	case req.Order != nil:
		title.Order = *req.Order
	case moved:
		title.Order = domain.NextSiblingOrder(withoutTitle(titles, id), title.ParentID)
	}

	if err := s.titleRepo.UpdateTitle(ctx, title); err != nil {
		return nil, fmt.Errorf("failed to update title: %w", err)
	}
	return title, nil
}

// DeleteTitle removes a title, its whole subtree and their progress. It returns the
// number of titles removed.
func (s *ProgressService) DeleteTitle(ctx context.Context, id uuid.UUID) (int, error) {
	title, err := s.titleRepo.GetTitle(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to load title: %w", err)
	}
	if title == nil {
		return 0, fmt.Errorf("title %s: %w", id, domain.ErrNotFound)
	}

	titles, err := s.titleRepo.ListTitles(ctx, title.ModuleID, title.Type)
	if err != nil {
		return 0, fmt.Errorf("failed to list titles: %w", err)
	}

	ids := domain.Subtree(titles, id)
	if err := s.titleRepo.DeleteTitles(ctx, ids); err != nil {
		return 0, fmt.Errorf("failed to delete titles: %w", err)
	}

	logger.Info("Deleted %d titles under %s", len(ids), id)
	s.invalidateModule(ctx, title.ModuleID, title.Type)
	return len(ids), nil
}

func (s *ProgressService) SessionTitles(ctx context.Context, sessionID uuid.UUID) (*domain.SessionTitles, error) {
	session, err := s.timetableRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}

	titles, err := s.titleRepo.ListTitles(ctx, session.ModuleID, session.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	completed, err := s.titleRepo.CompletedTitles(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed titles: %w", err)
	}

	return &domain.SessionTitles{
		Session:  *session,
		Titles:   domain.BuildTitleForest(titles, completed),
		Progress: domain.NewSessionProgress(sessionID, domain.ComputeProgress(titles, completed)),
	}, nil
}

func (s *ProgressService) SetProgress(ctx context.Context, professorID string, req *domain.ProgressRequest) (*domain.SessionProgress, error) {
	return s.setProgress(ctx, professorID, req.SessionID, []uuid.UUID{req.TitleID}, req.IsCompleted)
}

func (s *ProgressService) BulkSetProgress(ctx context.Context, professorID string, req *domain.BulkProgressRequest) (*domain.SessionProgress, error) {
	return s.setProgress(ctx, professorID, req.SessionID, req.TitleIDs, req.IsCompleted)
}

// setProgress is restricted to the professor of the session and to titles of its module and type.
func (s *ProgressService) setProgress(ctx context.Context, professorID string, sessionID uuid.UUID, titleIDs []uuid.UUID, completed bool) (*domain.SessionProgress, error) {
	session, err := s.timetableRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if session.ProfessorID != professorID {
		return nil, domain.ErrForbidden
	}

	titles, err := s.titleRepo.ListTitles(ctx, session.ModuleID, session.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to list titles: %w", err)
	}
	for _, id := range titleIDs {
		if !containsTitle(titles, id) {
			return nil, fmt.Errorf("title %s: %w", id, domain.ErrNotFound)
		}
	}

	if err := s.titleRepo.SetProgress(ctx, sessionID, titleIDs, completed); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	if err := s.cacheService.InvalidateProgress(ctx, sessionID); err != nil {
		logger.Warn("Failed to invalidate progress of session %s: %v", sessionID, err)
	}

	done, err := s.titleRepo.CompletedTitles(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed titles: %w", err)
	}
	progress := domain.NewSessionProgress(sessionID, domain.ComputeProgress(titles, done))
	return &progress, nil
}

func (s *ProgressService) ProfessorSessions(ctx context.Context, professorID string) ([]domain.ProfessorSession, error) {
	sessions, err := s.timetableRepo.ListProfessorSessions(ctx, professorID)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		ids = append(ids, session.SessionID)
	}
	progress, err := s.SessionProgress(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		sessions[i].Progress = domain.NewSessionProgress(sessions[i].SessionID, progress[sessions[i].SessionID])
	}
	return sessions, nil
}

// invalidateModule drops the cached rollups of every session teaching the module and type,
// since their title totals changed.
func (s *ProgressService) invalidateModule(ctx context.Context, moduleID uuid.UUID, sessionType domain.SessionType) {
	ids, err := s.titleRepo.ListSessionIDs(ctx, moduleID, sessionType)
	if err != nil {
		logger.Warn("Failed to list sessions of module %s: %v", moduleID, err)
		return
	}
	if err := s.cacheService.InvalidateProgress(ctx, ids...); err != nil {
		logger.Warn("Failed to invalidate progress of module %s: %v", moduleID, err)
	}
}

func containsTitle(titles []domain.ModuleTitle, id uuid.UUID) bool {
	for _, t := range titles {
		if t.ID == id {
			return true
		}
	}
	return false
}

func withoutTitle(titles []domain.ModuleTitle, id uuid.UUID) []domain.ModuleTitle {
	out := make([]domain.ModuleTitle, 0, len(titles))
	for _, t := range titles {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

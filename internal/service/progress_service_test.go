package service

import (
	"context"
	"errors"
	"testing"

	domain "academic-scheduler/internal/domain/scheduling"

	"github.com/google/uuid"
)

func TestCreateTitle(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	root, err := s.progress.CreateTitle(ctx, &domain.CreateTitleRequest{
		ModuleID: s.module.ID,
		Type:     domain.SessionTypeDirected,
		Name:     "  Routing  ",
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if root.Name != "Routing" {
		t.Errorf("Expected trimmed name, got %q", root.Name)
	}
	if root.Order != 5 {
		t.Errorf("Expected order 5 after five roots, got %d", root.Order)
	}

	parent := s.titles[0].ID
	child, err := s.progress.CreateTitle(ctx, &domain.CreateTitleRequest{
		ModuleID: s.module.ID,
		Type:     domain.SessionTypeDirected,
		Name:     "Section 1",
		ParentID: &parent,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if child.Order != 0 {
		t.Errorf("Expected first child order 0, got %d", child.Order)
	}

	forest, err := s.progress.ListTitles(ctx, s.module.ID, domain.SessionTypeDirected)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(forest) != 6 {
		t.Fatalf("Expected 6 roots, got %d", len(forest))
	}
	if len(forest[0].Children) != 1 || forest[0].Children[0].ID != child.ID {
		t.Errorf("Expected the child under the first root, got %+v", forest[0].Children)
	}

	missing := uuid.New()
	_, err = s.progress.CreateTitle(ctx, &domain.CreateTitleRequest{
		ModuleID: s.module.ID,
		Type:     domain.SessionTypeDirected,
		Name:     "Orphan",
		ParentID: &missing,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a missing parent, got %v", err)
	}
}

func TestUpdateTitle(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	parent := s.titles[0].ID
	child, err := s.progress.CreateTitle(ctx, &domain.CreateTitleRequest{
		ModuleID: s.module.ID,
		Type:     domain.SessionTypeDirected,
		Name:     "Section 1",
		ParentID: &parent,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	_, err = s.progress.UpdateTitle(ctx, parent, &domain.UpdateTitleRequest{ParentID: &child.ID})
	if !errors.Is(err, domain.ErrTitleCycle) {
		t.Errorf("Expected ErrTitleCycle, got %v", err)
	}
	_, err = s.progress.UpdateTitle(ctx, parent, &domain.UpdateTitleRequest{ParentID: &parent})
	if !errors.Is(err, domain.ErrTitleCycle) {
		t.Errorf("Expected ErrTitleCycle when moving under itself, got %v", err)
	}

	name := "Basics"
	renamed, err := s.progress.UpdateTitle(ctx, parent, &domain.UpdateTitleRequest{Name: &name})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if renamed.Name != "Basics" || renamed.Order != 0 {
		t.Errorf("Expected rename in place, got %+v", renamed)
	}

	moved, err := s.progress.UpdateTitle(ctx, child.ID, &domain.UpdateTitleRequest{MoveToRoot: true})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if moved.ParentID != nil {
		t.Error("Expected the title to be a root")
	}
	if moved.Order != 5 {
		t.Errorf("Expected order 5 after moving to root, got %d", moved.Order)
	}

	target := s.titles[1].ID
	moved, err = s.progress.UpdateTitle(ctx, child.ID, &domain.UpdateTitleRequest{ParentID: &target})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if moved.ParentID == nil || *moved.ParentID != target || moved.Order != 0 {
		t.Errorf("Expected first child of %s, got %+v", target, moved)
	}

	_, err = s.progress.UpdateTitle(ctx, uuid.New(), &domain.UpdateTitleRequest{Name: &name})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTitleRemovesSubtree(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	before, err := s.progress.SessionProgress(ctx, []uuid.UUID{s.sessions["G1"].ID})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := before[s.sessions["G1"].ID]; got.Completed != 3 || got.Total != 5 {
		t.Fatalf("Expected 3/5, got %d/%d", got.Completed, got.Total)
	}

	parent := s.titles[0].ID
	if _, err := s.progress.CreateTitle(ctx, &domain.CreateTitleRequest{
		ModuleID: s.module.ID,
		Type:     domain.SessionTypeDirected,
		Name:     "Section 1",
		ParentID: &parent,
	}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	removed, err := s.progress.DeleteTitle(ctx, parent)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 titles removed, got %d", removed)
	}

	after, err := s.progress.SessionProgress(ctx, []uuid.UUID{s.sessions["G1"].ID})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got := after[s.sessions["G1"].ID]; got.Completed != 2 || got.Total != 4 {
		t.Errorf("Expected 2/4 after deletion, got %d/%d", got.Completed, got.Total)
	}
}

func TestSessionProgressIsCached(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()
	g1 := s.sessions["G1"].ID

	if _, err := s.progress.SessionProgress(ctx, []uuid.UUID{g1, g1}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Written behind the service's back, so the cached value still wins.
	if err := s.store.SetProgress(ctx, g1, []uuid.UUID{s.titles[3].ID}, true); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	cached, err := s.progress.SessionProgress(ctx, []uuid.UUID{g1})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cached[g1].Completed != 3 {
		t.Errorf("Expected cached 3 completed, got %d", cached[g1].Completed)
	}

	updated, err := s.progress.SetProgress(ctx, "P001", &domain.ProgressRequest{
		SessionID:   g1,
		TitleID:     s.titles[4].ID,
		IsCompleted: true,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if updated.CompletedTitles != 5 || updated.Percentage != 100 {
		t.Errorf("Expected 5 titles and 100%%, got %d and %d", updated.CompletedTitles, updated.Percentage)
	}

	fresh, err := s.progress.SessionProgress(ctx, []uuid.UUID{g1})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if fresh[g1].Completed != 5 {
		t.Errorf("Expected the cache to be refreshed, got %d", fresh[g1].Completed)
	}
}

func TestSetProgressChecksOwnership(t *testing.T) {
	s := newScenario(t)
	ctx := context.Background()

	_, err := s.progress.SetProgress(ctx, "P002", &domain.ProgressRequest{
		SessionID:   s.sessions["G1"].ID,
		TitleID:     s.titles[4].ID,
		IsCompleted: true,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("Expected ErrForbidden, got %v", err)
	}

	_, err = s.progress.BulkSetProgress(ctx, "P001", &domain.BulkProgressRequest{
		SessionID:   s.sessions["G1"].ID,
		TitleIDs:    []uuid.UUID{s.titles[4].ID, uuid.New()},
		IsCompleted: true,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for a title of another module, got %v", err)
	}

	progress, err := s.progress.BulkSetProgress(ctx, "P001", &domain.BulkProgressRequest{
		SessionID:   s.sessions["G1"].ID,
		TitleIDs:    []uuid.UUID{s.titles[0].ID, s.titles[1].ID},
		IsCompleted: false,
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if progress.CompletedTitles != 1 || progress.Percentage != 20 {
		t.Errorf("Expected 1 title and 20%%, got %d and %d", progress.CompletedTitles, progress.Percentage)
	}
}

func TestSessionTitles(t *testing.T) {
	s := newScenario(t)

	titles, err := s.progress.SessionTitles(context.Background(), s.sessions["G2"].ID)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(titles.Titles) != 5 {
		t.Fatalf("Expected 5 titles, got %d", len(titles.Titles))
	}
	if !titles.Titles[3].Completed || titles.Titles[4].Completed {
		t.Error("Expected the first four titles completed in G2")
	}
	if titles.Progress.Percentage != 80 {
		t.Errorf("Expected 80%%, got %d", titles.Progress.Percentage)
	}

	_, err = s.progress.SessionTitles(context.Background(), uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestProfessorSessions(t *testing.T) {
	s := newScenario(t)

	sessions, err := s.progress.ProfessorSessions(context.Background(), "P002")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("Expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].GroupName != "G2" || sessions[1].GroupName != "G3" {
		t.Errorf("Expected G2 then G3, got %s then %s", sessions[0].GroupName, sessions[1].GroupName)
	}
	if sessions[0].Progress.Percentage != 80 || sessions[1].Progress.Percentage != 20 {
		t.Errorf("Expected 80%% and 20%%, got %d%% and %d%%", sessions[0].Progress.Percentage, sessions[1].Progress.Percentage)
	}
}

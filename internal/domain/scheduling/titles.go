package scheduling

import (
	"sort"

	"github.com/google/uuid"
)

// TitleNode is a ModuleTitle with its ordered children.
type TitleNode struct {
	ModuleTitle
	Completed bool         `json:"is_completed"`
	Children  []*TitleNode `json:"children"`
}

// BuildTitleForest arranges flat titles into a forest ordered by sibling order.
// Titles whose parent is missing from the input are treated as roots.
// completed may be nil when no session progress applies.
func BuildTitleForest(titles []ModuleTitle, completed map[uuid.UUID]bool) []*TitleNode {
	nodes := make(map[uuid.UUID]*TitleNode, len(titles))
	for _, t := range titles {
		nodes[t.ID] = &TitleNode{ModuleTitle: t, Completed: completed[t.ID], Children: []*TitleNode{}}
	}

	roots := make([]*TitleNode, 0)
	for _, t := range titles {
		node := nodes[t.ID]
		if t.ParentID != nil {
			if parent, ok := nodes[*t.ParentID]; ok && parent != node {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sortNodes(roots)
	stack := append([]*TitleNode(nil), roots...)
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sortNodes(n.Children)
		stack = append(stack, n.Children...)
	}
	return roots
}

func sortNodes(nodes []*TitleNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Order != nodes[j].Order {
			return nodes[i].Order < nodes[j].Order
		}
		return nodes[i].Name < nodes[j].Name
	})
}

// Subtree returns root and all its descendants, parents before children.
func Subtree(titles []ModuleTitle, root uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID)
	for _, t := range titles {
		if t.ParentID != nil {
			children[*t.ParentID] = append(children[*t.ParentID], t.ID)
		}
	}

	ids := []uuid.UUID{root}
	seen := map[uuid.UUID]bool{root: true}
	for i := 0; i < len(ids); i++ {
		for _, child := range children[ids[i]] {
			if seen[child] {
				continue
			}
			seen[child] = true
			ids = append(ids, child)
		}
	}
	return ids
}

// CreatesCycle reports whether moving id under newParent would make the title its own ancestor.
func CreatesCycle(titles []ModuleTitle, id uuid.UUID, newParent *uuid.UUID) bool {
	if newParent == nil {
		return false
	}
	for _, descendant := range Subtree(titles, id) {
		if descendant == *newParent {
			return true
		}
	}
	return false
}

// NextSiblingOrder returns one past the highest order among the children of parent, or 0.
func NextSiblingOrder(titles []ModuleTitle, parent *uuid.UUID) int {
	next := 0
	for _, t := range titles {
		if !sameParent(t.ParentID, parent) {
			continue
		}
		if t.Order+1 > next {
			next = t.Order + 1
		}
	}
	return next
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// Progress is the syllabus coverage of one session.
type Progress struct {
	Completed int `json:"completed_titles" db:"completed"`
	Total     int `json:"total_titles" db:"total"`
}

// Percentage rounds completed/total half up to an integer; zero titles yield 0.
func (p Progress) Percentage() int {
	if p.Total <= 0 {
		return 0
	}
	return (p.Completed*200 + p.Total) / (2 * p.Total)
}

// ComputeProgress counts completed titles of the forest for one session.
func ComputeProgress(titles []ModuleTitle, completed map[uuid.UUID]bool) Progress {
	p := Progress{Total: len(titles)}
	for _, t := range titles {
		if completed[t.ID] {
			p.Completed++
		}
	}
	return p
}

// ProfessorSession is a session taught by a professor.
type ProfessorSession struct {
	SessionID   uuid.UUID       `json:"session_id" db:"session_id"`
	ModuleID    uuid.UUID       `json:"module_id" db:"module_id"`
	ModuleName  string          `json:"module_name" db:"module_name"`
	SessionType SessionType     `json:"session_type" db:"session_type"`
	GroupName   string          `json:"group_name" db:"group_name"`
	Day         string          `json:"day" db:"day"`
	StartTime   string          `json:"start_time" db:"start_time"`
	EndTime     string          `json:"end_time" db:"end_time"`
	Progress    SessionProgress `json:"progress" db:"-"`
}

// SessionTitles is the syllabus of a session with its completion flags.
type SessionTitles struct {
	Session  Session         `json:"session"`
	Titles   []*TitleNode    `json:"titles"`
	Progress SessionProgress `json:"progress"`
}

// CreateTitleRequest adds a title under an optional parent.
type CreateTitleRequest struct {
	ModuleID uuid.UUID   `json:"module_id" validate:"required"`
	Type     SessionType `json:"type" validate:"required,known"`
	Name     string      `json:"title_name" validate:"required,min=1,max=255"`
	ParentID *uuid.UUID  `json:"parent_id"`
}

// UpdateTitleRequest renames or moves a title; a nil field is left unchanged.
type UpdateTitleRequest struct {
	Name       *string    `json:"title_name" validate:"omitempty,min=1,max=255"`
	ParentID   *uuid.UUID `json:"parent_id"`
	MoveToRoot bool       `json:"move_to_root"`
	Order      *int       `json:"order" validate:"omitempty,min=0"`
}

// ProgressRequest sets the completion of one title for a session.
type ProgressRequest struct {
	SessionID   uuid.UUID `json:"session_id" validate:"required"`
	TitleID     uuid.UUID `json:"title_id" validate:"required"`
	IsCompleted bool      `json:"is_completed"`
}

// BulkProgressRequest sets the completion of several titles for a session.
type BulkProgressRequest struct {
	SessionID   uuid.UUID   `json:"session_id" validate:"required"`
	TitleIDs    []uuid.UUID `json:"title_ids" validate:"required,min=1,max=200,unique"`
	IsCompleted bool        `json:"is_completed"`
}

package repository

import (
	"context"

	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"

	"gorm.io/gorm"
)

type StudentRepository struct {
	db *gorm.DB
}

func NewStudentRepository(db *gorm.DB) interfaces.StudentRepository {
	return &StudentRepository{
		db: db,
	}
}

// GetByMatricule loads a student together with the section of its group.
func (r *StudentRepository) GetByMatricule(ctx context.Context, matricule string) (*domain.Student, error) {
	return findStudent(r.db.WithContext(ctx), matricule)
}

func findStudent(db *gorm.DB, matricule string) (*domain.Student, error) {
	var student domain.Student
	err := db.Table("students AS s").
		Select("s.*, g.section_id").
		Joins("JOIN student_groups g ON g.id = s.group_id").
		Where("s.matricule = ?", matricule).
		Take(&student).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &student, nil
}

type ProfessorRepository struct {
	db *gorm.DB
}

func NewProfessorRepository(db *gorm.DB) interfaces.ProfessorRepository {
	return &ProfessorRepository{
		db: db,
	}
}

func (r *ProfessorRepository) GetByMatricule(ctx context.Context, matricule string) (*domain.Professor, error) {
	var professor domain.Professor
	err := r.db.WithContext(ctx).First(&professor, "matricule = ?", matricule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &professor, nil
}

func (r *ProfessorRepository) GetByEmail(ctx context.Context, email string) (*domain.Professor, error) {
	var professor domain.Professor
	err := r.db.WithContext(ctx).First(&professor, "LOWER(email) = LOWER(?)", email).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &professor, nil
}

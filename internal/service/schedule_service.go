package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"context"
	"fmt"
	"time"
)

var _ serviceInterfaces.ScheduleService = (*ScheduleService)(nil)

type ScheduleService struct {
	studentRepo interfaces.StudentRepository
	busyTime    *BusyTimeAggregator
	now         func() time.Time
}

func NewScheduleService(studentRepo interfaces.StudentRepository, busyTime *BusyTimeAggregator) *ScheduleService {
	return &ScheduleService{
		studentRepo: studentRepo,
		busyTime:    busyTime,
		now:         time.Now,
	}
}

// WeeklySchedule returns the Saturday to Thursday week weekOffset weeks away from the current one.
func (s *ScheduleService) WeeklySchedule(ctx context.Context, studentID string, weekOffset int) (*domain.WeeklySchedule, error) {
	student, err := s.studentRepo.GetByMatricule(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", studentID, domain.ErrNotFound)
	}

	from, until := domain.WeekRange(s.now(), weekOffset)
	slots, err := s.busyTime.Slots(ctx, studentID, domain.DateWindow{From: from, Until: &until})
	if err != nil {
		return nil, err
	}

	week := domain.BuildWeeklySchedule(from, until, slots)
	return &week, nil
}

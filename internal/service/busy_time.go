package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	"academic-scheduler/pkg/logger"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// BusyTimeAggregator collects the commitments of a student over a date window: their own
// timetable, compensated occurrences, makeups and pending requests, and debt sessions.
type BusyTimeAggregator struct {
	timetableRepo interfaces.TimetableRepository
}

func NewBusyTimeAggregator(timetableRepo interfaces.TimetableRepository) *BusyTimeAggregator {
	return &BusyTimeAggregator{timetableRepo: timetableRepo}
}

// Slots returns the raw commitments inside window.
func (a *BusyTimeAggregator) Slots(ctx context.Context, studentID string, window domain.DateWindow) ([]domain.BusySlot, error) {
	slots, err := a.timetableRepo.ListBusySlots(ctx, studentID, window)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy time: %w", err)
	}
	return slots, nil
}

// Schedule returns the parsed commitments inside window. Commitments with unreadable
// times block their whole date and are logged.
func (a *BusyTimeAggregator) Schedule(ctx context.Context, studentID string, window domain.DateWindow) (domain.BusySchedule, error) {
	slots, err := a.Slots(ctx, studentID, window)
	if err != nil {
		return domain.BusySchedule{}, err
	}

	schedule, malformed := domain.BuildBusySchedule(slots)
	for _, slot := range malformed {
		logger.WithFields(logrus.Fields{
			"student_id":    studentID,
			"source":        slot.Source,
			"occurrence_id": slot.OccurrenceID,
			"start_time":    slot.StartTime,
			"end_time":      slot.EndTime,
		}).Warn("Malformed commitment time, blocking its date")
	}
	return schedule, nil
}

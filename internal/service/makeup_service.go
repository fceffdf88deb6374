package service

import (
	domain "academic-scheduler/internal/domain/scheduling"
	interfaces "academic-scheduler/internal/interfaces/infrastructure"
	serviceInterfaces "academic-scheduler/internal/interfaces/service"
	"academic-scheduler/pkg/logger"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

var _ serviceInterfaces.MakeupService = (*MakeupService)(nil)

// MakeupService finds replacement occurrences for an absence and books them.
type MakeupService struct {
	studentRepo     interfaces.StudentRepository
	absenceRepo     interfaces.AbsenceRepository
	timetableRepo   interfaces.TimetableRepository
	store           interfaces.SchedulingStore
	busyTime        *BusyTimeAggregator
	progressService *ProgressService
	policy          domain.Policy
}

func NewMakeupService(
	studentRepo interfaces.StudentRepository,
	absenceRepo interfaces.AbsenceRepository,
	timetableRepo interfaces.TimetableRepository,
	store interfaces.SchedulingStore,
	busyTime *BusyTimeAggregator,
	progressService *ProgressService,
	policy domain.Policy,
) *MakeupService {
	return &MakeupService{
		studentRepo:     studentRepo,
		absenceRepo:     absenceRepo,
		timetableRepo:   timetableRepo,
		store:           store,
		busyTime:        busyTime,
		progressService: progressService,
		policy:          policy,
	}
}

// ResolveEligibleSessions lists the occurrences that may replace an absence. An absence that
// already has a replacement yields *domain.AlreadyResolvedError.
func (s *MakeupService) ResolveEligibleSessions(ctx context.Context, studentID string, attendanceID uuid.UUID) (*domain.EligibilityReport, error) {
	log := logger.WithFields(logrus.Fields{
		"student_id":    studentID,
		"attendance_id": attendanceID,
	})

	absence, err := s.absenceRepo.GetAbsence(ctx, studentID, attendanceID)
	if err != nil {
		return nil, err
	}
	if absence == nil {
		return nil, fmt.Errorf("absence %s: %w", attendanceID, domain.ErrNotFound)
	}

	resolution, err := s.absenceRepo.GetResolution(ctx, attendanceID)
	if err != nil {
		return nil, err
	}
	if resolution != nil {
		return nil, &domain.AlreadyResolvedError{AttendanceID: attendanceID, Resolution: *resolution}
	}

	student, err := s.studentRepo.GetByMatricule(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load student: %w", err)
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", studentID, domain.ErrNotFound)
	}

	var next *time.Time
	if s.policy.BoundToNextSession {
		next, err = s.timetableRepo.NextModuleOccurrence(ctx, studentID, absence.ModuleID, absence.Date)
		if err != nil {
			return nil, err
		}
	}
	window := domain.MakeupWindow(absence.Date, next, s.policy)

	report := &domain.EligibilityReport{
		OriginalSession:  domain.NewOriginalSession(*absence),
		EligibleSessions: []domain.EligibleSession{},
	}
	if window.Until != nil {
		report.WindowUntil = window.Until.Format(domain.DateLayout)
	}

	if !absence.SessionType.IsMakeupType() {
		progress, err := s.progressService.SessionProgress(ctx, []uuid.UUID{absence.SessionID})
		if err != nil {
			return nil, err
		}
		report.ProgressSummary = domain.NewSessionProgress(absence.SessionID, progress[absence.SessionID])
		log.Info("Lecture absences have no replacement sessions")
		return report, nil
	}

	candidates, err := s.timetableRepo.ListCandidates(ctx, absence, window)
	if err != nil {
		return nil, err
	}

	sessionIDs := []uuid.UUID{absence.SessionID}
	seen := map[uuid.UUID]bool{absence.SessionID: true}
	for _, c := range candidates {
		if !seen[c.SessionID] {
			seen[c.SessionID] = true
			sessionIDs = append(sessionIDs, c.SessionID)
		}
	}

	var (
		busy       domain.BusySchedule
		capacities map[uuid.UUID]domain.Capacity
		progress   map[uuid.UUID]domain.Progress
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		busy, err = s.busyTime.Schedule(gctx, studentID, window)
		return err
	})
	g.Go(func() error {
		var err error
		capacities, err = s.timetableRepo.GetCapacities(gctx, sessionIDs[1:])
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = s.progressService.SessionProgress(gctx, sessionIDs)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := domain.FilterEligible(domain.EligibilityInput{
		Absence:          *absence,
		Student:          domain.StudentScope{GroupID: student.GroupID, SectionID: student.SectionID},
		OriginalProgress: progress[absence.SessionID],
		Window:           window,
		Candidates:       candidates,
		Busy:             busy,
		Capacities:       capacities,
		Progress:         progress,
		Policy:           s.policy,
	})

	for _, r := range result.Rejected {
		if r.Reason == domain.RejectMalformedTime {
			log.WithField("occurrence_id", r.OccurrenceID).Warn("Skipping candidate with malformed time")
		}
	}
	log.WithFields(logrus.Fields{
		"candidates": len(candidates),
		"eligible":   len(result.Eligible),
	}).Debug("Resolved eligible sessions")

	report.EligibleSessions = result.Eligible
	report.ProgressSummary = domain.NewSessionProgress(absence.SessionID, progress[absence.SessionID])
	return report, nil
}

// Enroll books the occurrence for the absence inside one serializable transaction.
// dw absences get a makeup link; pw absences get a compensation request awaiting review.
// Rejections are returned as *domain.ConflictError.
func (s *MakeupService) Enroll(ctx context.Context, req *domain.EnrollRequest) (*domain.EnrollmentResult, error) {
	log := logger.WithFields(logrus.Fields{
		"student_id":    req.StudentID,
		"attendance_id": req.AttendanceID,
		"occurrence_id": req.OccurrenceID,
	})

	var result *domain.EnrollmentResult
	err := s.store.RunInTx(ctx, func(tx interfaces.SchedulingTx) error {
		var err error
		result, err = s.enroll(ctx, tx, req)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflictingWrite) {
			err = s.explainConflictingWrite(ctx, req)
		}
		if isBookingRejection(err) {
			conflict := domain.NewConflict(err)
			log.WithField("reason", conflict.Reason).Info("Enrollment rejected")
			return nil, conflict
		}
		log.WithError(err).Error("Enrollment failed")
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	log.WithField("status", result.Status).Info("Enrollment completed")
	return result, nil
}

func (s *MakeupService) enroll(ctx context.Context, tx interfaces.SchedulingTx, req *domain.EnrollRequest) (*domain.EnrollmentResult, error) {
	occurrence, err := tx.GetOccurrence(ctx, req.OccurrenceID)
	if err != nil {
		return nil, err
	}
	if occurrence == nil {
		return nil, fmt.Errorf("occurrence %s: %w", req.OccurrenceID, domain.ErrNotFound)
	}

	target, err := tx.LockSession(ctx, occurrence.SessionID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("session %s: %w", occurrence.SessionID, domain.ErrNotFound)
	}
	if occurrence.Cancelled() {
		return nil, fmt.Errorf("occurrence %s is cancelled: %w", occurrence.ID, domain.ErrIneligibleTarget)
	}

	attendance, err := tx.LockAttendance(ctx, req.AttendanceID, req.StudentID)
	if err != nil {
		return nil, err
	}
	if attendance == nil || attendance.Present {
		return nil, fmt.Errorf("absence %s: %w", req.AttendanceID, domain.ErrNotFound)
	}

	resolution, err := tx.Resolution(ctx, attendance.ID)
	if err != nil {
		return nil, err
	}
	if resolution != nil {
		return nil, &domain.AlreadyResolvedError{AttendanceID: attendance.ID, Resolution: *resolution}
	}

	missed, err := tx.GetOccurrence(ctx, attendance.OccurrenceID)
	if err != nil {
		return nil, err
	}
	if missed == nil {
		return nil, fmt.Errorf("occurrence %s: %w", attendance.OccurrenceID, domain.ErrNotFound)
	}
	original, err := tx.GetSession(ctx, missed.SessionID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("session %s: %w", missed.SessionID, domain.ErrNotFound)
	}
	if !original.Type.IsMakeupType() {
		return nil, domain.ErrInvalidSessionType
	}

	student, err := tx.GetStudent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, fmt.Errorf("student %s: %w", req.StudentID, domain.ErrNotFound)
	}

	if err := checkTarget(original, target, missed, occurrence, student); err != nil {
		return nil, err
	}

	attending, err := tx.IsAttending(ctx, req.StudentID, occurrence.ID)
	if err != nil {
		return nil, err
	}
	if attending {
		return nil, domain.ErrAlreadyEnrolled
	}

	if !s.policy.CapacityExempt[target.Type] {
		capacity, err := tx.Capacity(ctx, target.ID)
		if err != nil {
			return nil, err
		}
		if !s.policy.HasSeat(target.Type, capacity) {
			return nil, domain.ErrCapacityConflict
		}
	}

	result := &domain.EnrollmentResult{
		AttendanceID: attendance.ID,
		OccurrenceID: occurrence.ID,
	}

	switch original.Type {
	case domain.SessionTypeDirected:
		makeup := &domain.MakeupEnrollment{
			ID:           uuid.New(),
			StudentID:    req.StudentID,
			OccurrenceID: occurrence.ID,
			AttendanceID: attendance.ID,
		}
		if err := tx.CreateMakeup(ctx, makeup); err != nil {
			return nil, err
		}
		if err := tx.MarkMadeUp(ctx, attendance.ID); err != nil {
			return nil, err
		}
		result.Status = domain.StatusEnrolled
		result.MakeupID = &makeup.ID

	case domain.SessionTypePractice:
		request := &domain.CompensationRequest{
			ID:           uuid.New(),
			AttendanceID: attendance.ID,
			OccurrenceID: occurrence.ID,
			Status:       domain.CompensationAwaiting,
		}
		if err := tx.CreateCompensationRequest(ctx, request); err != nil {
			return nil, err
		}
		result.Status = domain.StatusRequested
		result.CompensationRequestID = &request.ID
		result.CompensationStatus = request.Status
	}

	return result, nil
}

// checkTarget verifies the target occurrence teaches the same module and type as the missed
// one, belongs to another group and does not take place before the absence.
func checkTarget(original, target *domain.Session, missed, occurrence *domain.SessionOccurrence, student *domain.Student) error {
	if target.ID == original.ID {
		return fmt.Errorf("target is the missed session: %w", domain.ErrIneligibleTarget)
	}
	if target.ModuleID != original.ModuleID || target.Type != original.Type {
		return fmt.Errorf("target teaches another module or type: %w", domain.ErrIneligibleTarget)
	}
	if target.GroupID != nil && *target.GroupID == student.GroupID {
		return fmt.Errorf("target belongs to the student's group: %w", domain.ErrIneligibleTarget)
	}
	if domain.CivilDate(occurrence.Date).Before(domain.CivilDate(missed.Date)) {
		return fmt.Errorf("target takes place before the absence: %w", domain.ErrIneligibleTarget)
	}
	return nil
}

// explainConflictingWrite turns a unique violation raised at commit into the rejection it
// stands for: another request resolved the absence first, or the student already has a
// seat in the occurrence.
func (s *MakeupService) explainConflictingWrite(ctx context.Context, req *domain.EnrollRequest) error {
	resolution, err := s.absenceRepo.GetResolution(ctx, req.AttendanceID)
	if err != nil {
		return fmt.Errorf("failed to reload resolution: %w", err)
	}
	if resolution != nil {
		return &domain.AlreadyResolvedError{AttendanceID: req.AttendanceID, Resolution: *resolution}
	}
	return domain.ErrAlreadyEnrolled
}

func isBookingRejection(err error) bool {
	var resolved *domain.AlreadyResolvedError
	return errors.As(err, &resolved) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrCapacityConflict) ||
		errors.Is(err, domain.ErrAlreadyEnrolled) ||
		errors.Is(err, domain.ErrIneligibleTarget) ||
		errors.Is(err, domain.ErrInvalidSessionType)
}

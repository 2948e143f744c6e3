package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"campusattend/internal/domain"
	"campusattend/internal/geo"
	"campusattend/internal/metrics"
)

type attendanceService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	userRepo       domain.UserRepository
	emailService   domain.EmailService
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewAttendanceService creates an AttendanceService with the given
// repositories. emailService may be nil to disable confirmation emails.
func NewAttendanceService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	userRepo domain.UserRepository,
	emailService domain.EmailService,
	logger *slog.Logger,
	timeout time.Duration,
) domain.AttendanceService {
	return &attendanceService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		emailService:   emailService,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// MarkAttendance runs one check-then-write attempt. The checks are ordered so
// the first failure determines the rejection reason: event existence, event
// state, geofence, duplicate, capacity. Exactly one record is inserted on
// acceptance; nothing is written on rejection. The duplicate check races with
// concurrent submissions, so the unique (event_id, user_id) constraint is the
// authority: a constraint violation on insert degrades to AlreadyMarked.
// Capacity enforcement stays best-effort under the same race; a slight
// overshoot on simultaneous submissions is accepted.
func (s *attendanceService) MarkAttendance(ctx context.Context, in domain.MarkAttendanceInput) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, in.EventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, s.reject(&domain.AttendanceRejectedError{
				Reason:  domain.RejectEventNotFound,
				Message: "Event not found",
			})
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	switch event.Status {
	case domain.EventStatusCancelled:
		return nil, s.reject(&domain.AttendanceRejectedError{
			Reason:  domain.RejectEventCancelled,
			Message: "This event has been cancelled",
		})
	case domain.EventStatusCompleted:
		return nil, s.reject(&domain.AttendanceRejectedError{
			Reason:  domain.RejectEventCompleted,
			Message: "This event has already been completed",
		})
	}

	distance := geo.DistanceMeters(in.Location, event.Center())
	metrics.GeofenceDistance.Observe(distance)
	if distance > float64(event.RadiusM) {
		return nil, s.reject(domain.RejectOutOfRangeError(event.RadiusM))
	}

	if existing, err := s.attendanceRepo.GetByEventAndUser(ctx, in.EventID, in.UserID); err == nil {
		return nil, s.rejectAlreadyMarked(existing)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("get attendance: %w", err)
	}

	if event.Capacity != nil {
		count, err := s.attendanceRepo.CountByEventID(ctx, in.EventID)
		if err != nil {
			return nil, fmt.Errorf("count attendance: %w", err)
		}
		if count >= *event.Capacity {
			return nil, s.reject(&domain.AttendanceRejectedError{
				Reason:  domain.RejectCapacityReached,
				Message: "Event has reached maximum capacity",
			})
		}
	}

	now := time.Now()
	att := &domain.Attendance{
		EventID:        in.EventID,
		UserID:         in.UserID,
		Latitude:       in.Location.Latitude,
		Longitude:      in.Location.Longitude,
		ReportingTime:  now,
		LecturesMissed: s.clampLecturesMissed(ctx, in),
		Device:         truncate(in.Device, 255),
		IPAddress:      in.IPAddress,
		CreatedAt:      now,
	}
	if err := s.attendanceRepo.Create(ctx, att); err != nil {
		if errors.Is(err, domain.ErrDuplicateAttendance) {
			// Lost the insert race to a concurrent submission from the same
			// user; surface it as a normal already-marked rejection.
			if existing, getErr := s.attendanceRepo.GetByEventAndUser(ctx, in.EventID, in.UserID); getErr == nil {
				return nil, s.rejectAlreadyMarked(existing)
			}
			return nil, s.reject(&domain.AttendanceRejectedError{
				Reason:  domain.RejectAlreadyMarked,
				Message: "Attendance already marked for this event",
			})
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}

	metrics.AttendanceMarked.Inc()
	s.sendConfirmation(ctx, event, att)
	return att, nil
}

func (s *attendanceService) reject(rej *domain.AttendanceRejectedError) error {
	metrics.AttendanceRejected.WithLabelValues(string(rej.Reason)).Inc()
	return rej
}

func (s *attendanceService) rejectAlreadyMarked(existing *domain.Attendance) error {
	markedAt := existing.ReportingTime
	return s.reject(&domain.AttendanceRejectedError{
		Reason:   domain.RejectAlreadyMarked,
		Message:  "Attendance already marked for this event",
		MarkedAt: &markedAt,
	})
}

// clampLecturesMissed applies the legacy defaulting rule: absent or
// out-of-range values become 0 without failing the submission. The clamp path
// is logged and counted so data-quality issues stay visible.
func (s *attendanceService) clampLecturesMissed(ctx context.Context, in domain.MarkAttendanceInput) int {
	if in.LecturesMissed == nil {
		return 0
	}
	v := *in.LecturesMissed
	if v < 0 || v > domain.MaxLecturesMissed {
		metrics.LecturesMissedClamped.Inc()
		s.logger.WarnContext(ctx, "lectures_missed out of range, defaulting to 0",
			"event_id", in.EventID, "user_id", in.UserID, "submitted", v)
		return 0
	}
	return v
}

func (s *attendanceService) sendConfirmation(ctx context.Context, event *domain.Event, att *domain.Attendance) {
	if s.emailService == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, att.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "skipping confirmation email, user lookup failed", "user_id", att.UserID, "err", err)
		return
	}
	data := &domain.AttendanceConfirmationEmailData{
		Email:         user.Email,
		UserName:      user.Name,
		EventName:     event.Name,
		ReportingTime: att.ReportingTime.Format(time.RFC1123),
	}
	if err := s.emailService.SendAttendanceConfirmation(ctx, data); err != nil {
		s.logger.WarnContext(ctx, "confirmation email failed", "user_id", att.UserID, "err", err)
	}
}

func (s *attendanceService) CheckAttendance(ctx context.Context, eventID, userID string) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	att, err := s.attendanceRepo.GetByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance: %w", err)
	}
	return att, nil
}

func (s *attendanceService) ListAttendance(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.AttendanceWithUser, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get event: %w", err)
	}
	list, total, err := s.attendanceRepo.ListByEventID(ctx, eventID, search, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list attendance: %w", err)
	}
	if list == nil {
		list = []*domain.AttendanceWithUser{}
	}
	return list, total, nil
}

func (s *attendanceService) UpdateLecturesMissed(ctx context.Context, attendanceID string, lecturesMissed int) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	// The admin correction path is strict, unlike the clamping mark path.
	if lecturesMissed < 0 || lecturesMissed > domain.MaxLecturesMissed {
		return nil, domain.ErrInvalidInput
	}
	att, err := s.attendanceRepo.UpdateLecturesMissed(ctx, attendanceID, lecturesMissed)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update lectures missed: %w", err)
	}
	return att, nil
}

func (s *attendanceService) UpdateReportingTime(ctx context.Context, attendanceID string, reportingTime time.Time) (*domain.Attendance, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if reportingTime.IsZero() {
		return nil, domain.ErrInvalidInput
	}
	att, err := s.attendanceRepo.UpdateReportingTime(ctx, attendanceID, reportingTime)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update reporting time: %w", err)
	}
	return att, nil
}

func (s *attendanceService) DeleteAttendance(ctx context.Context, attendanceID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.attendanceRepo.Delete(ctx, attendanceID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete attendance: %w", err)
	}
	return nil
}

// truncate shortens s to at most max bytes without splitting a multi-byte
// rune, so the stored value stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

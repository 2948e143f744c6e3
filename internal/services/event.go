package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusattend/internal/domain"
)

type eventService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	userRepo       domain.UserRepository
	qrGen          domain.QRGenerator
	contextTimeout time.Duration
}

// NewEventService creates an EventService with the given repositories and QR
// generator.
func NewEventService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	userRepo domain.UserRepository,
	qrGen domain.QRGenerator,
	timeout time.Duration,
) domain.EventService {
	return &eventService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		qrGen:          qrGen,
		contextTimeout: timeout,
	}
}

func (s *eventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event.Name = strings.TrimSpace(event.Name)
	if event.Name == "" {
		return fmt.Errorf("%w: event name is required", domain.ErrInvalidInput)
	}
	if event.CreatedBy == "" {
		return fmt.Errorf("%w: event creator is required", domain.ErrInvalidInput)
	}
	if event.Date.IsZero() {
		return fmt.Errorf("%w: event date is required", domain.ErrInvalidInput)
	}
	if err := event.Center().Validate(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if event.RadiusM <= 0 {
		return fmt.Errorf("%w: radius must be positive", domain.ErrInvalidInput)
	}
	if event.Capacity != nil && *event.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", domain.ErrInvalidInput)
	}
	if event.Status == "" {
		event.Status = domain.EventStatusUpcoming
	}
	if !domain.ValidEventStatus(event.Status) {
		return fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, event.Status)
	}

	now := time.Now()
	event.CreatedAt = now
	event.UpdatedAt = now
	return s.eventRepo.Create(ctx, event)
}

func (s *eventService) GetEvent(ctx context.Context, eventID string) (*domain.EventWithCount, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	count, err := s.attendanceRepo.CountByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	return &domain.EventWithCount{Event: event, AttendanceCount: count}, nil
}

func (s *eventService) ListEvents(ctx context.Context, status domain.EventStatus, params domain.PaginationParams) ([]*domain.EventWithCount, int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if status != "" && !domain.ValidEventStatus(status) {
		return nil, 0, fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, status)
	}
	events, total, err := s.eventRepo.List(ctx, status, params)
	if err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}
	if events == nil {
		events = []*domain.EventWithCount{}
	}
	return events, total, nil
}

func (s *eventService) UpdateEvent(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	// Validate the resulting coordinate when either axis moves.
	lat, lng := event.Latitude, event.Longitude
	if upd.Latitude != nil {
		lat = *upd.Latitude
	}
	if upd.Longitude != nil {
		lng = *upd.Longitude
	}
	if err := (domain.Coordinate{Latitude: lat, Longitude: lng}).Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return nil, fmt.Errorf("%w: event name cannot be empty", domain.ErrInvalidInput)
	}
	if upd.RadiusM != nil && *upd.RadiusM <= 0 {
		return nil, fmt.Errorf("%w: radius must be positive", domain.ErrInvalidInput)
	}
	if upd.Capacity != nil && *upd.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", domain.ErrInvalidInput)
	}
	if upd.Status != nil && !domain.ValidEventStatus(*upd.Status) {
		return nil, fmt.Errorf("%w: unknown event status %q", domain.ErrInvalidInput, *upd.Status)
	}

	updated, err := s.eventRepo.Update(ctx, eventID, upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update event: %w", err)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	if err := s.eventRepo.Delete(ctx, eventID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// qrPayload is the JSON encoded into the check-in QR code.
type qrPayload struct {
	EventID string `json:"event_id"`
	Token   string `json:"token"`
	TS      int64  `json:"ts"`
}

func (s *eventService) GenerateQR(ctx context.Context, eventID string) (*domain.EventQR, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}

	token := uuid.NewString()
	payload, err := json.Marshal(qrPayload{EventID: event.ID, Token: token, TS: time.Now().Unix()})
	if err != nil {
		return nil, fmt.Errorf("marshal qr payload: %w", err)
	}
	dataURL, err := s.qrGen.DataURL(string(payload))
	if err != nil {
		return nil, fmt.Errorf("generate qr: %w", err)
	}
	if err := s.eventRepo.SetQRToken(ctx, event.ID, token); err != nil {
		return nil, fmt.Errorf("store qr token: %w", err)
	}

	return &domain.EventQR{
		EventID:   event.ID,
		EventName: event.Name,
		EventDate: event.Date,
		DataURL:   dataURL,
	}, nil
}

func (s *eventService) GetEventStats(ctx context.Context, eventID string) (*domain.EventStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	total, err := s.attendanceRepo.CountByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	breakdown, err := s.attendanceRepo.DepartmentCounts(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("department counts: %w", err)
	}
	if breakdown == nil {
		breakdown = map[string]int{}
	}

	stats := &domain.EventStats{
		EventName:           event.Name,
		EventDate:           event.Date,
		Status:              event.Status,
		TotalAttendees:      total,
		Capacity:            event.Capacity,
		DepartmentBreakdown: breakdown,
	}
	if event.Capacity != nil && *event.Capacity > 0 {
		rate := float64(total) / float64(*event.Capacity) * 100
		stats.AttendanceRate = &rate
	}
	return stats, nil
}

func (s *eventService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	totalEvents, err := s.eventRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	totalAttendance, err := s.attendanceRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count attendance: %w", err)
	}
	totalUsers, err := s.userRepo.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	upcoming, err := s.eventRepo.CountUpcomingAfter(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("count upcoming events: %w", err)
	}
	active, err := s.eventRepo.CountByStatus(ctx, domain.EventStatusActive)
	if err != nil {
		return nil, fmt.Errorf("count active events: %w", err)
	}
	recent, err := s.eventRepo.ListRecent(ctx, 5)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	if recent == nil {
		recent = []*domain.EventWithCount{}
	}

	return &domain.DashboardStats{
		TotalEvents:     totalEvents,
		TotalAttendance: totalAttendance,
		TotalUsers:      totalUsers,
		UpcomingEvents:  upcoming,
		ActiveEvents:    active,
		RecentEvents:    recent,
	}, nil
}

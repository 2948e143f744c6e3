package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "UPCOMING"
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// ValidEventStatus reports whether s is one of the known statuses.
func ValidEventStatus(s EventStatus) bool {
	switch s {
	case EventStatusUpcoming, EventStatusActive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event represents a campus event with a geofenced check-in area.
// The attendance workflow never mutates an event; only admin edits do.
// swagger:model Event
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Venue       string      `json:"venue,omitempty"`
	Date        time.Time   `json:"date"`
	EndDate     *time.Time  `json:"end_date,omitempty"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	RadiusM     int         `json:"radius_m"`
	Capacity    *int        `json:"capacity,omitempty"`
	Status      EventStatus `json:"status"`
	QRToken     string      `json:"-"`
	CreatedBy   string      `json:"created_by"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Center returns the event's registered coordinate.
func (e *Event) Center() Coordinate {
	return Coordinate{Latitude: e.Latitude, Longitude: e.Longitude}
}

// EventWithCount bundles an event with its derived attendance count.
type EventWithCount struct {
	*Event
	AttendanceCount int `json:"attendance_count"`
}

// EventUpdate holds the optional fields of an admin event edit.
// Nil pointers leave the corresponding column unchanged.
type EventUpdate struct {
	Name        *string
	Description *string
	Venue       *string
	Date        *time.Time
	EndDate     *time.Time
	Latitude    *float64
	Longitude   *float64
	RadiusM     *int
	Capacity    *int
	Status      *EventStatus
}

// EventStats holds aggregate attendance statistics for one event.
type EventStats struct {
	EventName           string         `json:"event_name"`
	EventDate           time.Time      `json:"event_date"`
	Status              EventStatus    `json:"status"`
	TotalAttendees      int            `json:"total_attendees"`
	Capacity            *int           `json:"capacity,omitempty"`
	AttendanceRate      *float64       `json:"attendance_rate,omitempty"`
	DepartmentBreakdown map[string]int `json:"department_breakdown"`
}

// DashboardStats holds site-wide aggregates for the admin dashboard.
type DashboardStats struct {
	TotalEvents     int               `json:"total_events"`
	TotalAttendance int               `json:"total_attendance"`
	TotalUsers      int               `json:"total_users"`
	UpcomingEvents  int               `json:"upcoming_events"`
	ActiveEvents    int               `json:"active_events"`
	RecentEvents    []*EventWithCount `json:"recent_events"`
}

// EventQR is the result of generating a check-in QR code for an event.
type EventQR struct {
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	EventDate time.Time `json:"event_date"`
	DataURL   string    `json:"qr_code"`
}

// EventRepository defines the interface for event storage.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context, status EventStatus, params PaginationParams) ([]*EventWithCount, int, error)
	ListRecent(ctx context.Context, limit int) ([]*EventWithCount, error)
	Update(ctx context.Context, id string, upd EventUpdate) (*Event, error)
	Delete(ctx context.Context, id string) error
	SetQRToken(ctx context.Context, id, token string) error
	CountAll(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status EventStatus) (int, error)
	CountUpcomingAfter(ctx context.Context, t time.Time) (int, error)
}

// QRGenerator renders a payload as a PNG QR code data URL.
type QRGenerator interface {
	DataURL(payload string) (string, error)
}

// EventService defines admin-facing event operations.
type EventService interface {
	CreateEvent(ctx context.Context, event *Event) error
	GetEvent(ctx context.Context, eventID string) (*EventWithCount, error)
	ListEvents(ctx context.Context, status EventStatus, params PaginationParams) ([]*EventWithCount, int, error)
	UpdateEvent(ctx context.Context, eventID string, upd EventUpdate) (*Event, error)
	DeleteEvent(ctx context.Context, eventID string) error
	GenerateQR(ctx context.Context, eventID string) (*EventQR, error)
	GetEventStats(ctx context.Context, eventID string) (*EventStats, error)
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
}

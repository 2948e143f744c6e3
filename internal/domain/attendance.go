package domain

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrDuplicateAttendance is returned by the repository when the
// (event_id, user_id) uniqueness constraint rejects an insert. The service
// converts it into an AlreadyMarked rejection.
var ErrDuplicateAttendance = errors.New("attendance already marked")

// LecturesMissed bounds. Values outside [0, MaxLecturesMissed] submitted on
// the mark path are silently replaced with 0 (preserved legacy behavior).
const MaxLecturesMissed = 5

// Attendance is one accepted check-in for an event.
// Immutable after creation except for admin corrections of LecturesMissed
// and ReportingTime; deleted only by explicit admin action.
// swagger:model Attendance
type Attendance struct {
	ID             string    `json:"id"`
	EventID        string    `json:"event_id"`
	UserID         string    `json:"user_id"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	ReportingTime  time.Time `json:"reporting_time"`
	LecturesMissed int       `json:"lectures_missed"`
	Device         string    `json:"device,omitempty"`
	IPAddress      string    `json:"ip_address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// AttendanceWithUser bundles an attendance record with attendee details for
// listings and exports.
type AttendanceWithUser struct {
	*Attendance
	UserName       string `json:"user_name"`
	UserEmail      string `json:"user_email"`
	UserRollNo     string `json:"user_roll_no,omitempty"`
	UserDepartment string `json:"user_department,omitempty"`
	UserPhone      string `json:"user_phone,omitempty"`
}

// RejectReason identifies why a mark-attendance attempt was refused.
// Every reason is an expected, user-facing outcome, not a server fault.
type RejectReason string

const (
	RejectEventNotFound   RejectReason = "event_not_found"
	RejectEventCancelled  RejectReason = "event_cancelled"
	RejectEventCompleted  RejectReason = "event_completed"
	RejectOutOfRange      RejectReason = "out_of_range"
	RejectAlreadyMarked   RejectReason = "already_marked"
	RejectCapacityReached RejectReason = "capacity_reached"
)

// AttendanceRejectedError is the structured rejection returned by the mark
// workflow. RadiusM is set for out-of-range rejections; MarkedAt carries the
// prior reporting time for already-marked rejections.
type AttendanceRejectedError struct {
	Reason   RejectReason
	Message  string
	RadiusM  int
	MarkedAt *time.Time
}

func (e *AttendanceRejectedError) Error() string { return e.Message }

// RejectOutOfRangeError builds the out-of-range rejection with the configured
// radius included in the message, as the client displays it verbatim.
func RejectOutOfRangeError(radiusM int) *AttendanceRejectedError {
	return &AttendanceRejectedError{
		Reason:  RejectOutOfRange,
		Message: fmt.Sprintf("You are not within the allowed radius (%dm) of the event location", radiusM),
		RadiusM: radiusM,
	}
}

// MarkAttendanceInput is the validated input for one mark-attendance attempt.
// UserID comes from the verified token, never from the request body.
type MarkAttendanceInput struct {
	UserID         string
	EventID        string
	Location       Coordinate
	LecturesMissed *int
	Device         string
	IPAddress      string
}

// AttendanceRepository defines storage operations for attendance records.
// Create must map a unique-constraint violation on (event_id, user_id) to
// ErrDuplicateAttendance so concurrent duplicate submissions degrade to a
// normal AlreadyMarked rejection.
type AttendanceRepository interface {
	Create(ctx context.Context, att *Attendance) error
	GetByID(ctx context.Context, id string) (*Attendance, error)
	GetByEventAndUser(ctx context.Context, eventID, userID string) (*Attendance, error)
	CountByEventID(ctx context.Context, eventID string) (int, error)
	ListByEventID(ctx context.Context, eventID, search string, params PaginationParams) ([]*AttendanceWithUser, int, error)
	ListForExport(ctx context.Context, eventID string) ([]*AttendanceWithUser, error)
	DepartmentCounts(ctx context.Context, eventID string) (map[string]int, error)
	UpdateLecturesMissed(ctx context.Context, id string, lecturesMissed int) (*Attendance, error)
	UpdateReportingTime(ctx context.Context, id string, reportingTime time.Time) (*Attendance, error)
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int, error)
}

// AttendanceService defines the attendance workflow and its admin operations.
type AttendanceService interface {
	// MarkAttendance runs the full check-then-write workflow. On rejection the
	// returned error is an *AttendanceRejectedError; any other error is a
	// storage failure with no partial write.
	MarkAttendance(ctx context.Context, in MarkAttendanceInput) (*Attendance, error)
	CheckAttendance(ctx context.Context, eventID, userID string) (*Attendance, error)
	ListAttendance(ctx context.Context, eventID, search string, params PaginationParams) ([]*AttendanceWithUser, int, error)
	UpdateLecturesMissed(ctx context.Context, attendanceID string, lecturesMissed int) (*Attendance, error)
	UpdateReportingTime(ctx context.Context, attendanceID string, reportingTime time.Time) (*Attendance, error)
	DeleteAttendance(ctx context.Context, attendanceID string) error
}

// AttendanceSheetWriter renders an event's attendance rows as a spreadsheet.
type AttendanceSheetWriter interface {
	Write(event *Event, rows []*AttendanceWithUser) ([]byte, error)
}

// ReportService renders attendance data for download.
type ReportService interface {
	// ExportAttendance returns the xlsx bytes and a suggested filename.
	ExportAttendance(ctx context.Context, eventID string) ([]byte, string, error)
}

package controllers

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"campusattend/internal/delivery/http/helpers"
	"campusattend/internal/delivery/http/middleware"
	"campusattend/internal/domain"
)

// MarkAttendanceRequest is the request body for POST /attendance/mark.
// Latitude and longitude are pointers so an absent coordinate is
// distinguishable from 0,0.
type MarkAttendanceRequest struct {
	EventID        string   `json:"event_id"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	LecturesMissed *int     `json:"lectures_missed"`
}

// Validate implements Validator.
func (m MarkAttendanceRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(m.EventID) == "" {
		errs = append(errs, "event_id is required")
	}
	if m.Latitude == nil || m.Longitude == nil {
		errs = append(errs, "location is required")
	} else if (domain.Coordinate{Latitude: *m.Latitude, Longitude: *m.Longitude}).Validate() != nil {
		errs = append(errs, "invalid coordinates")
	}
	return errs
}

// UpdateLecturesMissedRequest is the request body for PATCH /attendance/{attendanceID}/lectures-missed.
type UpdateLecturesMissedRequest struct {
	LecturesMissed *int `json:"lectures_missed"`
}

// Validate implements Validator.
func (u UpdateLecturesMissedRequest) Validate() []string {
	if u.LecturesMissed == nil {
		return []string{"lectures_missed is required"}
	}
	return nil
}

// UpdateReportingTimeRequest is the request body for PATCH /attendance/{attendanceID}/reporting-time.
type UpdateReportingTimeRequest struct {
	ReportingTime string `json:"reporting_time"`
}

// Validate implements Validator.
func (u UpdateReportingTimeRequest) Validate() []string {
	if u.ReportingTime == "" {
		return []string{"reporting_time is required"}
	}
	if _, err := time.Parse(time.RFC3339, u.ReportingTime); err != nil {
		return []string{"reporting_time must be RFC3339"}
	}
	return nil
}

// AttendanceRejection is the data payload returned with a rejected
// mark-attendance attempt.
type AttendanceRejection struct {
	Reason   domain.RejectReason `json:"reason"`
	RadiusM  int                 `json:"radius_m,omitempty"`
	MarkedAt *time.Time          `json:"marked_at,omitempty"`
}

// AttendanceListResponse is the paginated response body for GET /attendance/list/{eventID}
type AttendanceListResponse struct {
	Attendance []*domain.AttendanceWithUser `json:"attendance"`
	Pagination helpers.PaginationMeta       `json:"pagination"`
}

// AttendanceController handles attendance marking, queries, and admin corrections.
type AttendanceController struct {
	Logger  *slog.Logger
	Service domain.AttendanceService
}

// NewAttendanceController creates an AttendanceController with the given logger and service.
func NewAttendanceController(logger *slog.Logger, svc domain.AttendanceService) *AttendanceController {
	return &AttendanceController{
		Logger:  logger,
		Service: svc,
	}
}

func userIDOr401(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}
	return userID, true
}

// clientIP extracts the caller's address, preferring X-Forwarded-For when a
// proxy sets it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Mark godoc
// @Summary Mark attendance
// @Description Marks the authenticated user present at an event. The submitted location must be within the event's geofence radius. Each user can mark at most once per event.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body MarkAttendanceRequest true "Event ID and current location"
// @Success 200 {object} helpers.APIResponse "data contains the attendance record"
// @Failure 400 {object} helpers.APIResponse "rejection with reason in data"
// @Failure 401 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "event not found"
// @Router /attendance/mark [post]
func (c *AttendanceController) Mark(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}
	var req MarkAttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	att, err := c.Service.MarkAttendance(r.Context(), domain.MarkAttendanceInput{
		UserID:         userID,
		EventID:        req.EventID,
		Location:       domain.Coordinate{Latitude: *req.Latitude, Longitude: *req.Longitude},
		LecturesMissed: req.LecturesMissed,
		Device:         r.UserAgent(),
		IPAddress:      clientIP(r),
	})
	if err != nil {
		var rej *domain.AttendanceRejectedError
		if errors.As(err, &rej) {
			// Only a missing event is a 404; every other rejection, including
			// already-marked, is a 400.
			status := http.StatusBadRequest
			if rej.Reason == domain.RejectEventNotFound {
				status = http.StatusNotFound
			}
			helpers.WriteJSONErrorData(w, status, rej.Message, AttendanceRejection{
				Reason:   rej.Reason,
				RadiusM:  rej.RadiusM,
				MarkedAt: rej.MarkedAt,
			})
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Attendance marked successfully", att)
}

// Check godoc
// @Summary Check own attendance
// @Description Returns the authenticated user's attendance record for an event, if any.
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the attendance record"
// @Failure 401 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse "not marked for this event"
// @Router /attendance/check/{eventID} [get]
func (c *AttendanceController) Check(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}
	att, err := c.Service.CheckAttendance(r.Context(), r.PathValue("eventID"), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Attendance not marked for this event")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Attendance found", att)
}

// List godoc
// @Summary List event attendance
// @Description Returns the attendees of an event with user details, ordered by reporting time. Supports search over name, email, and roll number. Requires an admin Bearer token.
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param search query string false "Filter by name, email, or roll number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains attendance and pagination"
// @Failure 404 {object} helpers.APIResponse
// @Router /attendance/list/{eventID} [get]
func (c *AttendanceController) List(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	list, total, err := c.Service.ListAttendance(r.Context(), r.PathValue("eventID"), r.URL.Query().Get("search"), params)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Attendance fetched", AttendanceListResponse{
		Attendance: list,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// UpdateLecturesMissed godoc
// @Summary Correct lectures missed
// @Description Admin correction of an attendance record's lectures_missed value. Unlike marking, out-of-range values are rejected.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attendanceID path string true "Attendance ID"
// @Param body body UpdateLecturesMissedRequest true "New value (0-5)"
// @Success 200 {object} helpers.APIResponse "data contains the updated record"
// @Failure 400 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse
// @Router /attendance/{attendanceID}/lectures-missed [patch]
func (c *AttendanceController) UpdateLecturesMissed(w http.ResponseWriter, r *http.Request) {
	var req UpdateLecturesMissedRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	att, err := c.Service.UpdateLecturesMissed(r.Context(), r.PathValue("attendanceID"), *req.LecturesMissed)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, "lectures_missed must be between 0 and 5")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Attendance record not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Lectures missed updated", att)
}

// UpdateReportingTime godoc
// @Summary Correct reporting time
// @Description Admin correction of an attendance record's reporting time.
// @Tags attendance
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param attendanceID path string true "Attendance ID"
// @Param body body UpdateReportingTimeRequest true "New reporting time (RFC3339)"
// @Success 200 {object} helpers.APIResponse "data contains the updated record"
// @Failure 400 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse
// @Router /attendance/{attendanceID}/reporting-time [patch]
func (c *AttendanceController) UpdateReportingTime(w http.ResponseWriter, r *http.Request) {
	var req UpdateReportingTimeRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reportingTime, _ := time.Parse(time.RFC3339, req.ReportingTime)
	att, err := c.Service.UpdateReportingTime(r.Context(), r.PathValue("attendanceID"), reportingTime)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, "invalid reporting time")
			return
		}
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Attendance record not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Reporting time updated", att)
}

// Delete godoc
// @Summary Delete an attendance record
// @Description Admin deletion of an attendance record.
// @Tags attendance
// @Produce json
// @Security BearerAuth
// @Param attendanceID path string true "Attendance ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse
// @Router /attendance/{attendanceID} [delete]
func (c *AttendanceController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteAttendance(r.Context(), r.PathValue("attendanceID")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Attendance record not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Attendance record deleted", nil)
}

package controllers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"campusattend/internal/delivery/http/helpers"
	"campusattend/internal/domain"
)

// CreateEventRequest is the request body for POST /events
type CreateEventRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Venue       string   `json:"venue"`
	Date        string   `json:"date"`
	EndDate     string   `json:"end_date"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	RadiusM     int      `json:"radius_m"`
	Capacity    *int     `json:"capacity"`
	Status      string   `json:"status"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.Date == "" {
		errs = append(errs, "date is required")
	} else if _, err := time.Parse(time.RFC3339, c.Date); err != nil {
		errs = append(errs, "date must be RFC3339")
	}
	if c.EndDate != "" {
		if _, err := time.Parse(time.RFC3339, c.EndDate); err != nil {
			errs = append(errs, "end_date must be RFC3339")
		}
	}
	if c.Latitude == nil || c.Longitude == nil {
		errs = append(errs, "latitude and longitude are required")
	}
	if c.RadiusM <= 0 {
		errs = append(errs, "radius_m must be positive")
	}
	return errs
}

// UpdateEventRequest is the request body for PUT /events/{eventID}. All fields are optional.
type UpdateEventRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Venue       *string  `json:"venue"`
	Date        *string  `json:"date"`
	EndDate     *string  `json:"end_date"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	RadiusM     *int     `json:"radius_m"`
	Capacity    *int     `json:"capacity"`
	Status      *string  `json:"status"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Date != nil {
		if _, err := time.Parse(time.RFC3339, *u.Date); err != nil {
			errs = append(errs, "date must be RFC3339")
		}
	}
	if u.EndDate != nil {
		if _, err := time.Parse(time.RFC3339, *u.EndDate); err != nil {
			errs = append(errs, "end_date must be RFC3339")
		}
	}
	return errs
}

// EventListResponse is the paginated response body for GET /events
type EventListResponse struct {
	Events     []*domain.EventWithCount `json:"events"`
	Pagination helpers.PaginationMeta   `json:"pagination"`
}

// EventController handles event CRUD, QR, and stats endpoints.
type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

// NewEventController creates an EventController with the given logger and service.
func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

func (c *EventController) internalError(w http.ResponseWriter, r *http.Request, err error) {
	c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
	helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
}

// Create godoc
// @Summary Create an event
// @Description Create a geofenced event. Requires an admin Bearer token. Status defaults to UPCOMING.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} helpers.APIResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse
// @Failure 401 {object} helpers.APIResponse
// @Failure 403 {object} helpers.APIResponse
// @Router /events [post]
func (c *EventController) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDOr401(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	date, _ := time.Parse(time.RFC3339, req.Date)
	event := &domain.Event{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Venue:       strings.TrimSpace(req.Venue),
		Date:        date,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		RadiusM:     req.RadiusM,
		Capacity:    req.Capacity,
		Status:      domain.EventStatus(strings.ToUpper(req.Status)),
		CreatedBy:   userID,
	}
	if req.EndDate != "" {
		endDate, _ := time.Parse(time.RFC3339, req.EndDate)
		event.EndDate = &endDate
	}

	if err := c.Service.CreateEvent(r.Context(), event); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, "Event created", event)
}

// Get godoc
// @Summary Get an event
// @Description Returns one event with its attendance count.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the event"
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID} [get]
func (c *EventController) Get(w http.ResponseWriter, r *http.Request) {
	event, err := c.Service.GetEvent(r.Context(), r.PathValue("eventID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Event fetched", event)
}

// List godoc
// @Summary List events
// @Description Returns events with attendance counts, newest first. Optional status filter and page/page_size pagination.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (UPCOMING, ACTIVE, COMPLETED, CANCELLED)"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size (max 100)"
// @Success 200 {object} helpers.APIResponse "data contains events and pagination"
// @Failure 400 {object} helpers.APIResponse
// @Router /events [get]
func (c *EventController) List(w http.ResponseWriter, r *http.Request) {
	params := helpers.ParsePagination(r)
	status := domain.EventStatus(strings.ToUpper(r.URL.Query().Get("status")))

	events, total, err := c.Service.ListEvents(r.Context(), status, params)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Events fetched", EventListResponse{
		Events:     events,
		Pagination: helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// Update godoc
// @Summary Update an event
// @Description Partially update an event. Requires an admin Bearer token.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} helpers.APIResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID} [put]
func (c *EventController) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}

	upd := domain.EventUpdate{
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		RadiusM:     req.RadiusM,
		Capacity:    req.Capacity,
	}
	if req.Date != nil {
		date, _ := time.Parse(time.RFC3339, *req.Date)
		upd.Date = &date
	}
	if req.EndDate != nil {
		endDate, _ := time.Parse(time.RFC3339, *req.EndDate)
		upd.EndDate = &endDate
	}
	if req.Status != nil {
		status := domain.EventStatus(strings.ToUpper(*req.Status))
		upd.Status = &status
	}

	event, err := c.Service.UpdateEvent(r.Context(), r.PathValue("eventID"), upd)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		if errors.Is(err, domain.ErrInvalidInput) {
			helpers.WriteJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Event updated", event)
}

// Delete godoc
// @Summary Delete an event
// @Description Delete an event and its attendance records. Requires an admin Bearer token.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID} [delete]
func (c *EventController) Delete(w http.ResponseWriter, r *http.Request) {
	if err := c.Service.DeleteEvent(r.Context(), r.PathValue("eventID")); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Event deleted", nil)
}

// GenerateQR godoc
// @Summary Generate a check-in QR code
// @Description Generates a fresh QR code for the event and returns it as a PNG data URL. Requires an admin Bearer token.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the QR data URL"
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID}/qr [get]
func (c *EventController) GenerateQR(w http.ResponseWriter, r *http.Request) {
	qr, err := c.Service.GenerateQR(r.Context(), r.PathValue("eventID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "QR code generated", qr)
}

// Stats godoc
// @Summary Event statistics
// @Description Returns total attendees, attendance rate, and a per-department breakdown. Requires an admin Bearer token.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {object} helpers.APIResponse "data contains the stats"
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID}/stats [get]
func (c *EventController) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.GetEventStats(r.Context(), r.PathValue("eventID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Stats fetched", stats)
}

// DashboardStats godoc
// @Summary Dashboard statistics
// @Description Returns site-wide totals and recent events. Requires an admin Bearer token.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data contains the dashboard stats"
// @Router /dashboard/stats [get]
func (c *EventController) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.GetDashboardStats(r.Context())
	if err != nil {
		c.internalError(w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, "Dashboard stats fetched", stats)
}

// ReportController handles attendance export downloads.
type ReportController struct {
	Logger  *slog.Logger
	Service domain.ReportService
}

// NewReportController creates a ReportController with the given logger and service.
func NewReportController(logger *slog.Logger, svc domain.ReportService) *ReportController {
	return &ReportController{
		Logger:  logger,
		Service: svc,
	}
}

// Export godoc
// @Summary Export attendance as a spreadsheet
// @Description Downloads the event's attendance as an xlsx workbook. Requires an admin Bearer token.
// @Tags events
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param eventID path string true "Event ID"
// @Success 200 {file} binary
// @Failure 404 {object} helpers.APIResponse
// @Router /events/{eventID}/export [get]
func (c *ReportController) Export(w http.ResponseWriter, r *http.Request) {
	data, filename, err := c.Service.ExportAttendance(r.Context(), r.PathValue("eventID"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			helpers.WriteJSONError(w, http.StatusNotFound, "Event not found")
			return
		}
		c.Logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

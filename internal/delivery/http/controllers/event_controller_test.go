package controllers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusattend/internal/delivery/http/middleware"
	"campusattend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEventService implements domain.EventService for handler tests.
type fakeEventService struct {
	createErr      error
	lastCreated    *domain.Event
	getResult      *domain.EventWithCount
	getErr         error
	listResult     []*domain.EventWithCount
	listTotal      int
	listErr        error
	updateResult   *domain.Event
	updateErr      error
	lastUpdate     domain.EventUpdate
	deleteErr      error
	qrResult       *domain.EventQR
	qrErr          error
	statsResult    *domain.EventStats
	statsErr       error
	dashboard      *domain.DashboardStats
	dashboardErr   error
}

func (f *fakeEventService) CreateEvent(ctx context.Context, event *domain.Event) error {
	f.lastCreated = event
	return f.createErr
}

func (f *fakeEventService) GetEvent(ctx context.Context, eventID string) (*domain.EventWithCount, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getResult, nil
}

func (f *fakeEventService) ListEvents(ctx context.Context, status domain.EventStatus, params domain.PaginationParams) ([]*domain.EventWithCount, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listResult, f.listTotal, nil
}

func (f *fakeEventService) UpdateEvent(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	f.lastUpdate = upd
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateResult, nil
}

func (f *fakeEventService) DeleteEvent(ctx context.Context, eventID string) error {
	return f.deleteErr
}

func (f *fakeEventService) GenerateQR(ctx context.Context, eventID string) (*domain.EventQR, error) {
	if f.qrErr != nil {
		return nil, f.qrErr
	}
	return f.qrResult, nil
}

func (f *fakeEventService) GetEventStats(ctx context.Context, eventID string) (*domain.EventStats, error) {
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return f.statsResult, nil
}

func (f *fakeEventService) GetDashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	if f.dashboardErr != nil {
		return nil, f.dashboardErr
	}
	return f.dashboard, nil
}

func adminContext(req *http.Request) *http.Request {
	return req.WithContext(middleware.SetIdentity(req.Context(), "admin-1", domain.RoleAdmin))
}

func TestEventController_Create(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		createErr  error
		wantStatus int
	}{
		{
			name:       "success",
			body:       `{"name":"Tech Talk","date":"2026-09-01T10:00:00Z","latitude":12.9716,"longitude":77.5946,"radius_m":100,"capacity":200}`,
			wantStatus: http.StatusCreated,
		},
		{
			name:       "missing coordinates",
			body:       `{"name":"Tech Talk","date":"2026-09-01T10:00:00Z","radius_m":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad date",
			body:       `{"name":"Tech Talk","date":"tomorrow","latitude":12.9716,"longitude":77.5946,"radius_m":100}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "zero radius",
			body:       `{"name":"Tech Talk","date":"2026-09-01T10:00:00Z","latitude":12.9716,"longitude":77.5946,"radius_m":0}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "service validation error",
			body:       `{"name":"Tech Talk","date":"2026-09-01T10:00:00Z","latitude":12.9716,"longitude":77.5946,"radius_m":100}`,
			createErr:  domain.ErrInvalidInput,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{createErr: tt.createErr}
			ctrl := NewEventController(discardLogger(), fake)

			req := adminContext(httptest.NewRequest(http.MethodPost, "http://test/events", bytes.NewBufferString(tt.body)))
			rec := httptest.NewRecorder()
			ctrl.Create(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusCreated {
				require.NotNil(t, fake.lastCreated)
				assert.Equal(t, "admin-1", fake.lastCreated.CreatedBy)
				assert.Equal(t, 100, fake.lastCreated.RadiusM)
				require.NotNil(t, fake.lastCreated.Capacity)
				assert.Equal(t, 200, *fake.lastCreated.Capacity)
			}
		})
	}
}

func TestEventController_Get(t *testing.T) {
	event := &domain.Event{ID: "e1", Name: "Tech Talk", Status: domain.EventStatusActive}

	tests := []struct {
		name       string
		getErr     error
		wantStatus int
	}{
		{name: "found", wantStatus: http.StatusOK},
		{name: "not found", getErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{
				getResult: &domain.EventWithCount{Event: event, AttendanceCount: 7},
				getErr:    tt.getErr,
			}
			ctrl := NewEventController(discardLogger(), fake)

			req := httptest.NewRequest(http.MethodGet, "http://test/events/e1", nil)
			req.SetPathValue("eventID", "e1")
			rec := httptest.NewRecorder()
			ctrl.Get(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				envelope := decodeEnvelope(t, rec)
				data := envelope["data"].(map[string]any)
				assert.EqualValues(t, 7, data["attendance_count"])
			}
		})
	}
}

func TestEventController_List(t *testing.T) {
	fake := &fakeEventService{
		listResult: []*domain.EventWithCount{
			{Event: &domain.Event{ID: "e1", Name: "Tech Talk"}, AttendanceCount: 3},
		},
		listTotal: 25,
	}
	ctrl := NewEventController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/events?status=active&page=2&page_size=10", nil)
	rec := httptest.NewRecorder()
	ctrl.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	pagination := data["pagination"].(map[string]any)
	assert.EqualValues(t, 2, pagination["page"])
	assert.EqualValues(t, 25, pagination["total"])
	assert.EqualValues(t, 3, pagination["total_pages"])
}

func TestEventController_List_BadStatus(t *testing.T) {
	fake := &fakeEventService{listErr: domain.ErrInvalidInput}
	ctrl := NewEventController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/events?status=paused", nil)
	rec := httptest.NewRecorder()
	ctrl.List(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEventController_Update(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		updateErr  error
		wantStatus int
		checkUpd   func(t *testing.T, upd domain.EventUpdate)
	}{
		{
			name:       "partial update",
			body:       `{"status":"completed","radius_m":150}`,
			wantStatus: http.StatusOK,
			checkUpd: func(t *testing.T, upd domain.EventUpdate) {
				require.NotNil(t, upd.Status)
				assert.Equal(t, domain.EventStatusCompleted, *upd.Status)
				require.NotNil(t, upd.RadiusM)
				assert.Equal(t, 150, *upd.RadiusM)
				assert.Nil(t, upd.Name)
			},
		},
		{
			name:       "bad date format",
			body:       `{"date":"next week"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "not found",
			body:       `{"name":"X"}`,
			updateErr:  domain.ErrNotFound,
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeEventService{
				updateResult: &domain.Event{ID: "e1", Name: "Tech Talk"},
				updateErr:    tt.updateErr,
			}
			ctrl := NewEventController(discardLogger(), fake)

			req := adminContext(httptest.NewRequest(http.MethodPut, "http://test/events/e1", bytes.NewBufferString(tt.body)))
			req.SetPathValue("eventID", "e1")
			rec := httptest.NewRecorder()
			ctrl.Update(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.checkUpd != nil {
				tt.checkUpd(t, fake.lastUpdate)
			}
		})
	}
}

func TestEventController_GenerateQR(t *testing.T) {
	fake := &fakeEventService{
		qrResult: &domain.EventQR{
			EventID:   "e1",
			EventName: "Tech Talk",
			EventDate: time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
			DataURL:   "data:image/png;base64,abc",
		},
	}
	ctrl := NewEventController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/events/e1/qr", nil)
	req.SetPathValue("eventID", "e1")
	rec := httptest.NewRecorder()
	ctrl.GenerateQR(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,abc", data["qr_code"])
}

func TestEventController_Stats(t *testing.T) {
	rate := 25.0
	fake := &fakeEventService{
		statsResult: &domain.EventStats{
			EventName:           "Tech Talk",
			TotalAttendees:      50,
			AttendanceRate:      &rate,
			DepartmentBreakdown: map[string]int{"CSE": 30},
		},
	}
	ctrl := NewEventController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/events/e1/stats", nil)
	req.SetPathValue("eventID", "e1")
	rec := httptest.NewRecorder()
	ctrl.Stats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 50, data["total_attendees"])
}

func TestEventController_DashboardStats(t *testing.T) {
	fake := &fakeEventService{
		dashboard: &domain.DashboardStats{
			TotalEvents:     10,
			TotalAttendance: 120,
			TotalUsers:      80,
			RecentEvents:    []*domain.EventWithCount{},
		},
	}
	ctrl := NewEventController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/dashboard/stats", nil)
	rec := httptest.NewRecorder()
	ctrl.DashboardStats(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 10, data["total_events"])
	assert.EqualValues(t, 120, data["total_attendance"])
}

// fakeReportService implements domain.ReportService for handler tests.
type fakeReportService struct {
	data     []byte
	filename string
	err      error
}

func (f *fakeReportService) ExportAttendance(ctx context.Context, eventID string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.filename, nil
}

func TestReportController_Export(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fake := &fakeReportService{data: []byte("xlsx"), filename: "attendance_Tech_Talk_20260901_100000.xlsx"}
		ctrl := NewReportController(discardLogger(), fake)

		req := httptest.NewRequest(http.MethodGet, "http://test/events/e1/export", nil)
		req.SetPathValue("eventID", "e1")
		rec := httptest.NewRecorder()
		ctrl.Export(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attendance_Tech_Talk_20260901_100000.xlsx")
		assert.Equal(t, "xlsx", rec.Body.String())
	})

	t.Run("event not found", func(t *testing.T) {
		ctrl := NewReportController(discardLogger(), &fakeReportService{err: domain.ErrNotFound})

		req := httptest.NewRequest(http.MethodGet, "http://test/events/missing/export", nil)
		req.SetPathValue("eventID", "missing")
		rec := httptest.NewRecorder()
		ctrl.Export(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

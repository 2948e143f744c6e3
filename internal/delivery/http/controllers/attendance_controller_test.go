package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusattend/internal/delivery/http/middleware"
	"campusattend/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeAttendanceService implements domain.AttendanceService for handler tests.
type fakeAttendanceService struct {
	markResult   *domain.Attendance
	markErr      error
	lastMarkIn   domain.MarkAttendanceInput
	checkResult  *domain.Attendance
	checkErr     error
	listResult   []*domain.AttendanceWithUser
	listTotal    int
	listErr      error
	updateResult *domain.Attendance
	updateErr    error
	deleteErr    error
}

func (f *fakeAttendanceService) MarkAttendance(ctx context.Context, in domain.MarkAttendanceInput) (*domain.Attendance, error) {
	f.lastMarkIn = in
	if f.markErr != nil {
		return nil, f.markErr
	}
	return f.markResult, nil
}

func (f *fakeAttendanceService) CheckAttendance(ctx context.Context, eventID, userID string) (*domain.Attendance, error) {
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	return f.checkResult, nil
}

func (f *fakeAttendanceService) ListAttendance(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.AttendanceWithUser, int, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.listResult, f.listTotal, nil
}

func (f *fakeAttendanceService) UpdateLecturesMissed(ctx context.Context, attendanceID string, lecturesMissed int) (*domain.Attendance, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateResult, nil
}

func (f *fakeAttendanceService) UpdateReportingTime(ctx context.Context, attendanceID string, reportingTime time.Time) (*domain.Attendance, error) {
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.updateResult, nil
}

func (f *fakeAttendanceService) DeleteAttendance(ctx context.Context, attendanceID string) error {
	return f.deleteErr
}

func markRequest(t *testing.T, body string, userID string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://test/attendance/mark", bytes.NewBufferString(body))
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "10.1.2.3:54321"
	if userID != "" {
		req = req.WithContext(middleware.SetIdentity(req.Context(), userID, domain.RoleStudent))
	}
	return req
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestAttendanceController_Mark_Success(t *testing.T) {
	marked := &domain.Attendance{ID: "att-1", EventID: "e1", UserID: "u1", ReportingTime: time.Now()}
	fake := &fakeAttendanceService{markResult: marked}
	ctrl := NewAttendanceController(discardLogger(), fake)

	body := `{"event_id":"e1","latitude":12.9716,"longitude":77.5946,"lectures_missed":2}`
	rec := httptest.NewRecorder()
	ctrl.Mark(rec, markRequest(t, body, "u1"))

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "Attendance marked successfully", envelope["message"])

	assert.Equal(t, "u1", fake.lastMarkIn.UserID)
	assert.Equal(t, "e1", fake.lastMarkIn.EventID)
	assert.Equal(t, 12.9716, fake.lastMarkIn.Location.Latitude)
	require.NotNil(t, fake.lastMarkIn.LecturesMissed)
	assert.Equal(t, 2, *fake.lastMarkIn.LecturesMissed)
	assert.Equal(t, "test-agent", fake.lastMarkIn.Device)
	assert.Equal(t, "10.1.2.3", fake.lastMarkIn.IPAddress)
}

func TestAttendanceController_Mark_MissingLocation(t *testing.T) {
	fake := &fakeAttendanceService{}
	ctrl := NewAttendanceController(discardLogger(), fake)

	rec := httptest.NewRecorder()
	ctrl.Mark(rec, markRequest(t, `{"event_id":"e1"}`, "u1"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope["success"])
	assert.Contains(t, envelope["message"], "location is required")
	assert.Empty(t, fake.lastMarkIn.EventID, "service must not be called")
}

func TestAttendanceController_Mark_Unauthenticated(t *testing.T) {
	ctrl := NewAttendanceController(discardLogger(), &fakeAttendanceService{})

	rec := httptest.NewRecorder()
	ctrl.Mark(rec, markRequest(t, `{"event_id":"e1","latitude":1,"longitude":1}`, ""))

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAttendanceController_Mark_Rejections(t *testing.T) {
	markedAt := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		rejection  *domain.AttendanceRejectedError
		wantStatus int
		wantReason string
	}{
		{
			name:       "event not found",
			rejection:  &domain.AttendanceRejectedError{Reason: domain.RejectEventNotFound, Message: "Event not found"},
			wantStatus: http.StatusNotFound,
			wantReason: "event_not_found",
		},
		{
			name:       "event cancelled",
			rejection:  &domain.AttendanceRejectedError{Reason: domain.RejectEventCancelled, Message: "This event has been cancelled"},
			wantStatus: http.StatusBadRequest,
			wantReason: "event_cancelled",
		},
		{
			name:       "out of range carries radius",
			rejection:  domain.RejectOutOfRangeError(100),
			wantStatus: http.StatusBadRequest,
			wantReason: "out_of_range",
		},
		{
			name: "already marked carries prior time",
			rejection: &domain.AttendanceRejectedError{
				Reason:   domain.RejectAlreadyMarked,
				Message:  "Attendance already marked for this event",
				MarkedAt: &markedAt,
			},
			wantStatus: http.StatusBadRequest,
			wantReason: "already_marked",
		},
		{
			name:       "capacity reached",
			rejection:  &domain.AttendanceRejectedError{Reason: domain.RejectCapacityReached, Message: "Event has reached maximum capacity"},
			wantStatus: http.StatusBadRequest,
			wantReason: "capacity_reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{markErr: tt.rejection}
			ctrl := NewAttendanceController(discardLogger(), fake)

			body := `{"event_id":"e1","latitude":12.9716,"longitude":77.5946}`
			rec := httptest.NewRecorder()
			ctrl.Mark(rec, markRequest(t, body, "u1"))

			require.Equal(t, tt.wantStatus, rec.Code)
			envelope := decodeEnvelope(t, rec)
			assert.Equal(t, false, envelope["success"])
			assert.Equal(t, tt.rejection.Message, envelope["message"])
			data, ok := envelope["data"].(map[string]any)
			require.True(t, ok, "rejection must carry data")
			assert.Equal(t, tt.wantReason, data["reason"])
			if tt.rejection.RadiusM > 0 {
				assert.EqualValues(t, tt.rejection.RadiusM, data["radius_m"])
			}
			if tt.rejection.MarkedAt != nil {
				assert.NotEmpty(t, data["marked_at"])
			}
		})
	}
}

func TestAttendanceController_Mark_ServiceError(t *testing.T) {
	fake := &fakeAttendanceService{markErr: assert.AnError}
	ctrl := NewAttendanceController(discardLogger(), fake)

	body := `{"event_id":"e1","latitude":12.9716,"longitude":77.5946}`
	rec := httptest.NewRecorder()
	ctrl.Mark(rec, markRequest(t, body, "u1"))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAttendanceController_Check(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantStatus int
	}{
		{name: "found", wantStatus: http.StatusOK},
		{name: "not marked", checkErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
		{name: "service error", checkErr: assert.AnError, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{
				checkResult: &domain.Attendance{ID: "att-1", EventID: "e1", UserID: "u1"},
				checkErr:    tt.checkErr,
			}
			ctrl := NewAttendanceController(discardLogger(), fake)

			req := httptest.NewRequest(http.MethodGet, "http://test/attendance/check/e1", nil)
			req.SetPathValue("eventID", "e1")
			req = req.WithContext(middleware.SetIdentity(req.Context(), "u1", domain.RoleStudent))
			rec := httptest.NewRecorder()
			ctrl.Check(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAttendanceController_List(t *testing.T) {
	fake := &fakeAttendanceService{
		listResult: []*domain.AttendanceWithUser{
			{Attendance: &domain.Attendance{ID: "att-1"}, UserName: "Asha"},
		},
		listTotal: 1,
	}
	ctrl := NewAttendanceController(discardLogger(), fake)

	req := httptest.NewRequest(http.MethodGet, "http://test/attendance/list/e1?search=asha", nil)
	req.SetPathValue("eventID", "e1")
	rec := httptest.NewRecorder()
	ctrl.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Len(t, data["attendance"], 1)
	pagination := data["pagination"].(map[string]any)
	assert.EqualValues(t, 1, pagination["total"])
}

func TestAttendanceController_UpdateLecturesMissed(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		updateErr  error
		wantStatus int
	}{
		{name: "success", body: `{"lectures_missed":3}`, wantStatus: http.StatusOK},
		{name: "missing value", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "out of range", body: `{"lectures_missed":7}`, updateErr: domain.ErrInvalidInput, wantStatus: http.StatusBadRequest},
		{name: "not found", body: `{"lectures_missed":3}`, updateErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{
				updateResult: &domain.Attendance{ID: "att-1", LecturesMissed: 3},
				updateErr:    tt.updateErr,
			}
			ctrl := NewAttendanceController(discardLogger(), fake)

			req := httptest.NewRequest(http.MethodPatch, "http://test/attendance/att-1/lectures-missed", bytes.NewBufferString(tt.body))
			req.SetPathValue("attendanceID", "att-1")
			rec := httptest.NewRecorder()
			ctrl.UpdateLecturesMissed(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAttendanceController_UpdateReportingTime(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "success", body: `{"reporting_time":"2026-03-10T09:30:00Z"}`, wantStatus: http.StatusOK},
		{name: "missing value", body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "bad format", body: `{"reporting_time":"yesterday"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeAttendanceService{updateResult: &domain.Attendance{ID: "att-1"}}
			ctrl := NewAttendanceController(discardLogger(), fake)

			req := httptest.NewRequest(http.MethodPatch, "http://test/attendance/att-1/reporting-time", bytes.NewBufferString(tt.body))
			req.SetPathValue("attendanceID", "att-1")
			rec := httptest.NewRecorder()
			ctrl.UpdateReportingTime(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAttendanceController_Delete(t *testing.T) {
	tests := []struct {
		name       string
		deleteErr  error
		wantStatus int
	}{
		{name: "success", wantStatus: http.StatusOK},
		{name: "not found", deleteErr: domain.ErrNotFound, wantStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := NewAttendanceController(discardLogger(), &fakeAttendanceService{deleteErr: tt.deleteErr})

			req := httptest.NewRequest(http.MethodDelete, "http://test/attendance/att-1", nil)
			req.SetPathValue("attendanceID", "att-1")
			rec := httptest.NewRecorder()
			ctrl.Delete(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"campusattend/internal/domain"
)

var filenameUnsafe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

type reportService struct {
	eventRepo      domain.EventRepository
	attendanceRepo domain.AttendanceRepository
	writer         domain.AttendanceSheetWriter
	contextTimeout time.Duration
}

// NewReportService creates a ReportService that renders attendance exports
// with the given sheet writer.
func NewReportService(
	eventRepo domain.EventRepository,
	attendanceRepo domain.AttendanceRepository,
	writer domain.AttendanceSheetWriter,
	timeout time.Duration,
) domain.ReportService {
	return &reportService{
		eventRepo:      eventRepo,
		attendanceRepo: attendanceRepo,
		writer:         writer,
		contextTimeout: timeout,
	}
}

func (s *reportService) ExportAttendance(ctx context.Context, eventID string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get event: %w", err)
	}
	rows, err := s.attendanceRepo.ListForExport(ctx, eventID)
	if err != nil {
		return nil, "", fmt.Errorf("list attendance: %w", err)
	}

	data, err := s.writer.Write(event, rows)
	if err != nil {
		return nil, "", fmt.Errorf("render sheet: %w", err)
	}

	name := filenameUnsafe.ReplaceAllString(strings.TrimSpace(event.Name), "_")
	filename := fmt.Sprintf("attendance_%s_%s.xlsx", name, time.Now().Format("20060102_150405"))
	return data, filename, nil
}

// Package report renders attendance exports with excelize.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"campusattend/internal/domain"
)

const sheetName = "Attendance"

var columns = []struct {
	header string
	width  float64
}{
	{"S.No", 8},
	{"Roll No", 12},
	{"Name", 25},
	{"Department", 20},
	{"Contact No", 15},
	{"Email", 30},
	{"Reporting Time", 20},
	{"Lectures Missed", 15},
	{"Latitude", 12},
	{"Longitude", 12},
}

type excelWriter struct{}

// NewExcelWriter returns an AttendanceSheetWriter producing an xlsx workbook
// with an event header block followed by one row per attendee.
func NewExcelWriter() domain.AttendanceSheetWriter {
	return &excelWriter{}
}

func (w *excelWriter) Write(event *domain.Event, rows []*domain.AttendanceWithUser) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	// Event info block on top, then a blank row, then the column headers.
	info := [][]interface{}{
		{"Event Name:", event.Name},
		{"Event Date:", event.Date.Format("2006-01-02 15:04")},
		{"Total Attendees:", len(rows)},
		{},
	}
	for i, row := range info {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write info row: %w", err)
		}
	}

	headerRow := len(info) + 1
	headers := make([]interface{}, len(columns))
	for i, c := range columns {
		headers[i] = c.header
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheetName, col, col, c.width); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
	}
	cell, _ := excelize.CoordinatesToCellName(1, headerRow)
	if err := f.SetSheetRow(sheetName, cell, &headers); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(columns), headerRow)
		_ = f.SetCellStyle(sheetName, cell, last, style)
	}

	for i, att := range rows {
		data := []interface{}{
			i + 1,
			orNA(att.UserRollNo),
			att.UserName,
			orNA(att.UserDepartment),
			orNA(att.UserPhone),
			att.UserEmail,
			att.ReportingTime.Format("2006-01-02 15:04:05"),
			att.LecturesMissed,
			fmt.Sprintf("%.6f", att.Latitude),
			fmt.Sprintf("%.6f", att.Longitude),
		}
		cell, _ := excelize.CoordinatesToCellName(1, headerRow+1+i)
		if err := f.SetSheetRow(sheetName, cell, &data); err != nil {
			return nil, fmt.Errorf("write attendance row: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

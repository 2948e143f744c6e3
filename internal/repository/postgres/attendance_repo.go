package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"campusattend/internal/domain"
)

type attendanceRepository struct {
	DB *sql.DB
}

func NewAttendanceRepository(db *sql.DB) domain.AttendanceRepository {
	return &attendanceRepository{DB: db}
}

const attendanceColumns = "id, event_id, user_id, latitude, longitude, reporting_time, lectures_missed, device, ip_address, created_at"

func scanAttendance(scan func(dest ...interface{}) error) (*domain.Attendance, error) {
	a := &domain.Attendance{}
	var device, ipAddress sql.NullString
	err := scan(
		&a.ID, &a.EventID, &a.UserID, &a.Latitude, &a.Longitude,
		&a.ReportingTime, &a.LecturesMissed, &device, &ipAddress, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Device = device.String
	a.IPAddress = ipAddress.String
	return a, nil
}

func (r *attendanceRepository) Create(ctx context.Context, a *domain.Attendance) error {
	query := `
		INSERT INTO attendance (event_id, user_id, latitude, longitude, reporting_time, lectures_missed, device, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query,
		a.EventID, a.UserID, a.Latitude, a.Longitude, a.ReportingTime,
		a.LecturesMissed, nullIfEmpty(a.Device), nullIfEmpty(a.IPAddress), a.CreatedAt,
	).Scan(&a.ID)
	if isUniqueViolation(err) {
		return domain.ErrDuplicateAttendance
	}
	return err
}

func (r *attendanceRepository) GetByID(ctx context.Context, id string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`
	return scanAttendance(r.DB.QueryRowContext(ctx, query, id).Scan)
}

func (r *attendanceRepository) GetByEventAndUser(ctx context.Context, eventID, userID string) (*domain.Attendance, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance WHERE event_id = $1 AND user_id = $2`
	return scanAttendance(r.DB.QueryRowContext(ctx, query, eventID, userID).Scan)
}

func (r *attendanceRepository) CountByEventID(ctx context.Context, eventID string) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance WHERE event_id = $1`, eventID).Scan(&count)
	return count, err
}

const attendanceWithUserSelect = `
	SELECT a.id, a.event_id, a.user_id, a.latitude, a.longitude, a.reporting_time,
	       a.lectures_missed, a.device, a.ip_address, a.created_at,
	       u.name, u.email, u.roll_no, u.department, u.phone
	FROM attendance a
	JOIN users u ON u.id = a.user_id
	WHERE a.event_id = $1
`

func scanAttendanceWithUser(rows *sql.Rows) (*domain.AttendanceWithUser, error) {
	a := &domain.Attendance{}
	var device, ipAddress, rollNo, department, phone sql.NullString
	row := &domain.AttendanceWithUser{Attendance: a}
	err := rows.Scan(
		&a.ID, &a.EventID, &a.UserID, &a.Latitude, &a.Longitude, &a.ReportingTime,
		&a.LecturesMissed, &device, &ipAddress, &a.CreatedAt,
		&row.UserName, &row.UserEmail, &rollNo, &department, &phone,
	)
	if err != nil {
		return nil, err
	}
	a.Device = device.String
	a.IPAddress = ipAddress.String
	row.UserRollNo = rollNo.String
	row.UserDepartment = department.String
	row.UserPhone = phone.String
	return row, nil
}

func (r *attendanceRepository) ListByEventID(ctx context.Context, eventID, search string, params domain.PaginationParams) ([]*domain.AttendanceWithUser, int, error) {
	searchClause := ""
	args := []interface{}{eventID}
	if search != "" {
		searchClause = ` AND (u.name ILIKE $2 OR u.email ILIKE $2 OR u.roll_no ILIKE $2)`
		args = append(args, "%"+search+"%")
	}

	var total int
	countQuery := `
		SELECT COUNT(*)
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1
	` + searchClause
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf("%s%s ORDER BY a.reporting_time ASC LIMIT $%d OFFSET $%d",
		attendanceWithUserSelect, searchClause, n+1, n+2)
	args = append(args, params.Limit(), params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	list := make([]*domain.AttendanceWithUser, 0)
	for rows.Next() {
		row, err := scanAttendanceWithUser(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, row)
	}
	return list, total, rows.Err()
}

func (r *attendanceRepository) ListForExport(ctx context.Context, eventID string) ([]*domain.AttendanceWithUser, error) {
	query := attendanceWithUserSelect + ` ORDER BY a.reporting_time ASC`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.AttendanceWithUser, 0)
	for rows.Next() {
		row, err := scanAttendanceWithUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, row)
	}
	return list, rows.Err()
}

func (r *attendanceRepository) DepartmentCounts(ctx context.Context, eventID string) (map[string]int, error) {
	query := `
		SELECT COALESCE(u.department, 'Unknown'), COUNT(*)
		FROM attendance a
		JOIN users u ON u.id = a.user_id
		WHERE a.event_id = $1
		GROUP BY COALESCE(u.department, 'Unknown')
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var department string
		var count int
		if err := rows.Scan(&department, &count); err != nil {
			return nil, err
		}
		counts[department] = count
	}
	return counts, rows.Err()
}

func (r *attendanceRepository) UpdateLecturesMissed(ctx context.Context, id string, lecturesMissed int) (*domain.Attendance, error) {
	query := `
		UPDATE attendance SET lectures_missed = $1
		WHERE id = $2
		RETURNING ` + attendanceColumns
	return scanAttendance(r.DB.QueryRowContext(ctx, query, lecturesMissed, id).Scan)
}

func (r *attendanceRepository) UpdateReportingTime(ctx context.Context, id string, reportingTime time.Time) (*domain.Attendance, error) {
	query := `
		UPDATE attendance SET reporting_time = $1
		WHERE id = $2
		RETURNING ` + attendanceColumns
	return scanAttendance(r.DB.QueryRowContext(ctx, query, reportingTime, id).Scan)
}

func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *attendanceRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&count)
	return count, err
}

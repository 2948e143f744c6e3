package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"campusattend/internal/domain"
)

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

const eventColumns = "id, name, description, venue, date, end_date, latitude, longitude, radius_m, capacity, status, qr_token, created_by, created_at, updated_at"

func scanEvent(scan func(dest ...interface{}) error) (*domain.Event, error) {
	e := &domain.Event{}
	var description, venue, qrToken sql.NullString
	var endDate sql.NullTime
	var capacity sql.NullInt64
	err := scan(
		&e.ID, &e.Name, &description, &venue, &e.Date, &endDate,
		&e.Latitude, &e.Longitude, &e.RadiusM, &capacity, &e.Status,
		&qrToken, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	e.Description = description.String
	e.Venue = venue.String
	e.QRToken = qrToken.String
	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (name, description, venue, date, end_date, latitude, longitude, radius_m, capacity, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id
	`
	var capacity sql.NullInt64
	if e.Capacity != nil {
		capacity = sql.NullInt64{Int64: int64(*e.Capacity), Valid: true}
	}
	var endDate sql.NullTime
	if e.EndDate != nil {
		endDate = sql.NullTime{Time: *e.EndDate, Valid: true}
	}
	return r.DB.QueryRowContext(ctx, query,
		e.Name, nullIfEmpty(e.Description), nullIfEmpty(e.Venue), e.Date, endDate,
		e.Latitude, e.Longitude, e.RadiusM, capacity, e.Status, e.CreatedBy, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	return scanEvent(r.DB.QueryRowContext(ctx, query, id).Scan)
}

func (r *eventRepository) List(ctx context.Context, status domain.EventStatus, params domain.PaginationParams) ([]*domain.EventWithCount, int, error) {
	where := ""
	args := []interface{}{}
	if status != "" {
		where = "WHERE e.status = $1"
		args = append(args, status)
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM events e %s`, where)
	if err := r.DB.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(a.cnt, 0)
		FROM events e
		LEFT JOIN (
			SELECT event_id, COUNT(*) AS cnt FROM attendance GROUP BY event_id
		) a ON a.event_id = e.id
		%s
		ORDER BY e.date DESC
		LIMIT $%d OFFSET $%d
	`, prefixColumns("e", eventColumns), where, n+1, n+2)
	args = append(args, params.Limit(), params.Offset())

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	events := make([]*domain.EventWithCount, 0)
	for rows.Next() {
		var count int
		e, err := scanEventWithCount(rows, &count)
		if err != nil {
			return nil, 0, err
		}
		events = append(events, &domain.EventWithCount{Event: e, AttendanceCount: count})
	}
	return events, total, rows.Err()
}

func (r *eventRepository) ListRecent(ctx context.Context, limit int) ([]*domain.EventWithCount, error) {
	query := fmt.Sprintf(`
		SELECT %s, COALESCE(a.cnt, 0)
		FROM events e
		LEFT JOIN (
			SELECT event_id, COUNT(*) AS cnt FROM attendance GROUP BY event_id
		) a ON a.event_id = e.id
		ORDER BY e.date DESC
		LIMIT $1
	`, prefixColumns("e", eventColumns))
	rows, err := r.DB.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.EventWithCount, 0)
	for rows.Next() {
		var count int
		e, err := scanEventWithCount(rows, &count)
		if err != nil {
			return nil, err
		}
		events = append(events, &domain.EventWithCount{Event: e, AttendanceCount: count})
	}
	return events, rows.Err()
}

func scanEventWithCount(rows *sql.Rows, count *int) (*domain.Event, error) {
	e := &domain.Event{}
	var description, venue, qrToken sql.NullString
	var endDate sql.NullTime
	var capacity sql.NullInt64
	err := rows.Scan(
		&e.ID, &e.Name, &description, &venue, &e.Date, &endDate,
		&e.Latitude, &e.Longitude, &e.RadiusM, &capacity, &e.Status,
		&qrToken, &e.CreatedBy, &e.CreatedAt, &e.UpdatedAt, count,
	)
	if err != nil {
		return nil, err
	}
	e.Description = description.String
	e.Venue = venue.String
	e.QRToken = qrToken.String
	if endDate.Valid {
		e.EndDate = &endDate.Time
	}
	if capacity.Valid {
		c := int(capacity.Int64)
		e.Capacity = &c
	}
	return e, nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func (r *eventRepository) Update(ctx context.Context, eventID string, upd domain.EventUpdate) (*domain.Event, error) {
	setClauses := []string{"updated_at = NOW()"}
	args := []interface{}{}
	n := 1
	add := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, n))
		args = append(args, value)
		n++
	}
	if upd.Name != nil {
		add("name", *upd.Name)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Venue != nil {
		add("venue", *upd.Venue)
	}
	if upd.Date != nil {
		add("date", *upd.Date)
	}
	if upd.EndDate != nil {
		add("end_date", *upd.EndDate)
	}
	if upd.Latitude != nil {
		add("latitude", *upd.Latitude)
	}
	if upd.Longitude != nil {
		add("longitude", *upd.Longitude)
	}
	if upd.RadiusM != nil {
		add("radius_m", *upd.RadiusM)
	}
	if upd.Capacity != nil {
		add("capacity", *upd.Capacity)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if n == 1 {
		// No fields to update; just fetch the current row.
		return r.GetByID(ctx, eventID)
	}
	args = append(args, eventID)
	query := fmt.Sprintf(`
		UPDATE events SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), n, eventColumns)
	return scanEvent(r.DB.QueryRowContext(ctx, query, args...).Scan)
}

func (r *eventRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) SetQRToken(ctx context.Context, id, token string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE events SET qr_token = $1, updated_at = NOW() WHERE id = $2`, token, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *eventRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&count)
	return count, err
}

func (r *eventRepository) CountByStatus(ctx context.Context, status domain.EventStatus) (int, error) {
	var count int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE status = $1`, status).Scan(&count)
	return count, err
}

func (r *eventRepository) CountUpcomingAfter(ctx context.Context, t time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM events WHERE status = $1 AND date > $2`
	err := r.DB.QueryRowContext(ctx, query, domain.EventStatusUpcoming, t).Scan(&count)
	return count, err
}

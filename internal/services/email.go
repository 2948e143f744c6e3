package services

import (
	"context"
	"fmt"
	"log/slog"

	"campusattend/internal/domain"
)

const attendanceConfirmationTemplate = "attendance_confirmation"

type emailService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewEmailService returns an EmailService that renders templates with the
// given renderer and sends them through the Mailer.
func NewEmailService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.EmailService {
	return &emailService{mailer: mailer, renderer: renderer, logger: logger}
}

// SendAttendanceConfirmation sends the check-in confirmation email.
func (s *emailService) SendAttendanceConfirmation(ctx context.Context, data *domain.AttendanceConfirmationEmailData) error {
	if data == nil {
		return fmt.Errorf("attendance confirmation data is nil")
	}
	subject, html, text, err := s.renderer.Render(attendanceConfirmationTemplate, data)
	if err != nil {
		return fmt.Errorf("render attendance confirmation: %w", err)
	}
	if err := s.mailer.Send(data.Email, subject, html, text); err != nil {
		return fmt.Errorf("send attendance confirmation: %w", err)
	}
	s.logger.InfoContext(ctx, "attendance confirmation sent", "email", data.Email)
	return nil
}

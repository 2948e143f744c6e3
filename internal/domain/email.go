package domain

import "context"

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(to, subject, html, text string) error
}

// AttendanceConfirmationEmailData holds data for the check-in confirmation email.
type AttendanceConfirmationEmailData struct {
	Email         string
	UserName      string
	EventName     string
	ReportingTime string
}

// EmailTemplateRenderer renders a named email template to subject, html, and
// text bodies.
type EmailTemplateRenderer interface {
	Render(templateName string, data interface{}) (subject, htmlBody, textBody string, err error)
}

// EmailService defines the contract for sending domain-level emails.
type EmailService interface {
	SendAttendanceConfirmation(ctx context.Context, data *AttendanceConfirmationEmailData) error
}

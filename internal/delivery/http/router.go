package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"campusattend/internal/delivery/http/controllers"
	"campusattend/internal/delivery/http/middleware"
	"campusattend/internal/domain"
)

// NewRouter initializes the HTTP router with all application routes.
func NewRouter(
	verifier domain.TokenVerifier,
	authController *controllers.AuthController,
	userController *controllers.UserController,
	eventController *controllers.EventController,
	attendanceController *controllers.AttendanceController,
	reportController *controllers.ReportController,
) *http.ServeMux {
	mux := http.NewServeMux()

	auth := middleware.RequireAuth(verifier)
	admin := func(h http.HandlerFunc) http.HandlerFunc {
		return auth(middleware.RequireAdmin(h))
	}

	// Auth
	mux.HandleFunc("POST /auth/signup", authController.SignUp)
	mux.HandleFunc("POST /auth/login", authController.Login)

	// Profile
	mux.HandleFunc("GET /users/me", auth(userController.GetMe))
	mux.HandleFunc("PUT /users/me", auth(userController.UpdateMe))

	// Events
	mux.HandleFunc("POST /events", admin(eventController.Create))
	mux.HandleFunc("GET /events", eventController.List)
	mux.HandleFunc("GET /events/{eventID}", eventController.Get)
	mux.HandleFunc("PUT /events/{eventID}", admin(eventController.Update))
	mux.HandleFunc("DELETE /events/{eventID}", admin(eventController.Delete))
	mux.HandleFunc("POST /events/{eventID}/qr", admin(eventController.GenerateQR))
	mux.HandleFunc("GET /events/{eventID}/stats", admin(eventController.Stats))
	mux.HandleFunc("GET /events/{eventID}/export", admin(reportController.Export))
	mux.HandleFunc("GET /dashboard/stats", admin(eventController.DashboardStats))

	// Attendance
	mux.HandleFunc("POST /attendance/mark", auth(attendanceController.Mark))
	mux.HandleFunc("GET /attendance/check/{eventID}", auth(attendanceController.Check))
	mux.HandleFunc("GET /attendance/list/{eventID}", admin(attendanceController.List))
	mux.HandleFunc("PATCH /attendance/{attendanceID}/lectures-missed", admin(attendanceController.UpdateLecturesMissed))
	mux.HandleFunc("PATCH /attendance/{attendanceID}/reporting-time", admin(attendanceController.UpdateReportingTime))
	mux.HandleFunc("DELETE /attendance/{attendanceID}", admin(attendanceController.Delete))

	// Operational endpoints
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	return mux
}

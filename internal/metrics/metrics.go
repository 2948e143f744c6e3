// Package metrics holds the Prometheus instruments for the attendance workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttendanceMarked counts accepted mark-attendance attempts.
	AttendanceMarked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "attendance_marked_total",
		Help: "Number of accepted attendance submissions.",
	})

	// AttendanceRejected counts rejected mark-attendance attempts by reason.
	AttendanceRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_rejected_total",
		Help: "Number of rejected attendance submissions, labeled by reason.",
	}, []string{"reason"})

	// LecturesMissedClamped counts submissions whose lectures_missed value was
	// out of range and silently replaced with 0. The clamp is preserved legacy
	// behavior; this counter makes it observable.
	LecturesMissedClamped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lectures_missed_clamped_total",
		Help: "Number of attendance submissions with an out-of-range lectures_missed value replaced by 0.",
	})

	// GeofenceDistance observes the measured distance (meters) between the
	// submitted location and the event center for every geofence check.
	GeofenceDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "geofence_distance_meters",
		Help:    "Distance between submitted location and event center, in meters.",
		Buckets: []float64{10, 25, 50, 100, 250, 500, 1000, 5000},
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsIssued = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "healthtrack", Subsystem: "auth", Name: "sessions_issued_total", Help: "Refresh sessions created, by trigger."},
		[]string{"kind"},
	)
	Renewals = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "healthtrack", Subsystem: "auth", Name: "renewals_total", Help: "Access token renewals, by result."},
		[]string{"result"},
	)
	Logouts = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "healthtrack", Subsystem: "auth", Name: "logouts_total", Help: "Logout requests."},
	)
	AuthFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "healthtrack", Subsystem: "auth", Name: "failures_total", Help: "Rejected authentication attempts, by reason."},
		[]string{"reason"},
	)
	SweptRecords = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "healthtrack", Subsystem: "auth", Name: "expired_sessions_swept_total", Help: "Expired refresh records deleted by the sweeper."},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "healthtrack", Name: "rate_limit_rejected_total", Help: "Requests rejected by the rate limiter, by route."},
		[]string{"route"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(SessionsIssued)
	reg.MustRegister(Renewals)
	reg.MustRegister(Logouts)
	reg.MustRegister(AuthFailures)
	reg.MustRegister(SweptRecords)
	reg.MustRegister(RateLimitRejected)
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTP Flow Metrics
	CodesIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_codes_issued_total",
		Help: "Total number of verification codes issued.",
	})
	CodeVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_code_verifications_total",
		Help: "Total number of code verification attempts by outcome.",
	}, []string{"status"}) // status: "success", "mismatch", "expired", "not_found", "exhausted", "account_missing"
	SMSSendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_sms_sends_total",
		Help: "Total number of outbound SMS sends by gateway mode.",
	}, []string{"mode"}) // mode: "live" or "mock"
	SMSSendErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "auth_sms_send_errors_total",
		Help: "Total number of failed outbound SMS sends.",
	})
)

// Database Metrics
var DBQueryDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "db_query_duration_seconds",
	Help:    "Duration of database queries in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"query_type", "repository", "status"})

var DBQueryErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "db_query_errors_total",
	Help: "Total number of failed database queries.",
}, []string{"query_type", "repository"})

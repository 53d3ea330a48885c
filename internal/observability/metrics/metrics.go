package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_scans_total",
			Help: "Total number of reminder scans, by result.",
		},
		[]string{"result"},
	)

	ScansSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_scans_skipped_total",
			Help: "Scans skipped because a previous scan was still running.",
		},
	)

	RemindersSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Reminder notifications sent and committed.",
		},
	)

	ReminderSendFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reminder_send_failures_total",
			Help: "Reminder notification attempts that failed.",
		},
	)

	ScanDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reminder_scan_duration_seconds",
			Help:    "Duration of one reminder scan.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func MustRegister() {
	prometheus.MustRegister(
		ScansTotal,
		ScansSkippedTotal,
		RemindersSentTotal,
		ReminderSendFailuresTotal,
		ScanDurationSeconds,
	)
}

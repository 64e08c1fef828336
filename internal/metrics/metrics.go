// Package metrics — Prometheus-инструментация сервиса.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookNotificationsTotal считает обработанные уведомления шлюза по исходу.
	WebhookNotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lawncare",
			Name:      "webhook_notifications_total",
			Help:      "Payment gateway notifications by outcome.",
		},
		[]string{"outcome"},
	)

	// JobTransitionsTotal считает переходы жизненного цикла заявок.
	JobTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lawncare",
			Name:      "job_transitions_total",
			Help:      "Job lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	// DisputeResolutionsTotal считает решения споров по типу.
	DisputeResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lawncare",
			Name:      "dispute_resolutions_total",
			Help:      "Dispute resolutions by resolution type.",
		},
		[]string{"resolution"},
	)

	// SweepDeletedJobs считает заявки, удалённые retention sweeper'ом.
	SweepDeletedJobs = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lawncare",
			Name:      "sweep_deleted_jobs_total",
			Help:      "Completed jobs purged by the retention sweeper.",
		},
	)
)

// Register регистрирует все метрики в дефолтном реестре.
func Register() {
	prometheus.MustRegister(
		WebhookNotificationsTotal,
		JobTransitionsTotal,
		DisputeResolutionsTotal,
		SweepDeletedJobs,
	)
}

// Handler возвращает gin-handler для /metrics.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 业务与 HTTP 指标。InitMetrics 可以被重复调用（测试中会多次初始化）。
var (
	initOnce sync.Once

	HTTPRequestsTotal *prometheus.CounterVec

	RegistrationsTotal prometheus.Counter
	ActivationsTotal   prometheus.Counter
	LoginsTotal        *prometheus.CounterVec

	ActivationMailsTotal *prometheus.CounterVec

	NoteOpsTotal *prometheus.CounterVec

	MailQueueWorkers prometheus.Gauge
)

// InitMetrics 注册所有指标并记录邮件队列的 worker 数。
func InitMetrics(mailWorkers int) {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesapp_http_requests_total",
			Help: "HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"})

		RegistrationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesapp_registrations_total",
			Help: "Accounts created.",
		})

		ActivationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notesapp_activations_total",
			Help: "Accounts activated.",
		})

		LoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesapp_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"})

		ActivationMailsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesapp_activation_mails_total",
			Help: "Activation e-mails by outcome.",
		}, []string{"outcome"})

		NoteOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notesapp_note_operations_total",
			Help: "Note operations by kind.",
		}, []string{"op"})

		MailQueueWorkers = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notesapp_mail_queue_workers",
			Help: "Size of the outbound mail worker pool.",
		})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			RegistrationsTotal,
			ActivationsTotal,
			LoginsTotal,
			ActivationMailsTotal,
			NoteOpsTotal,
			MailQueueWorkers,
		)
	})

	MailQueueWorkers.Set(float64(mailWorkers))
}

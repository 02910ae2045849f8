package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quiz_portal"

// Metrics holds Prometheus collectors for the service. A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestCounter   *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	QuizzesCreated   prometheus.Counter
	AnswersGraded    *prometheus.CounterVec
	ExternalCalls    *prometheus.CounterVec
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being served",
			},
		),
		QuizzesCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quizzes_created_total",
				Help:      "Quizzes created",
			},
		),
		AnswersGraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "answers_total",
				Help:      "Submitted answers by grading outcome",
			},
			[]string{"outcome"},
		),
		ExternalCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "external_api_calls_total",
				Help:      "Calls to third-party APIs",
			},
			[]string{"api", "outcome"},
		),
	}
}

// ObserveAnswer counts one graded answer. isCorrect nil means ungraded.
func (m *Metrics) ObserveAnswer(isCorrect *bool) {
	if m == nil {
		return
	}
	outcome := "ungraded"
	if isCorrect != nil {
		if *isCorrect {
			outcome = "correct"
		} else {
			outcome = "incorrect"
		}
	}
	m.AnswersGraded.WithLabelValues(outcome).Inc()
}

// ObserveQuizCreated counts a created quiz.
func (m *Metrics) ObserveQuizCreated() {
	if m == nil {
		return
	}
	m.QuizzesCreated.Inc()
}

// ObserveExternal counts a third-party API call.
func (m *Metrics) ObserveExternal(api string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ExternalCalls.WithLabelValues(api, outcome).Inc()
}

// Middleware records request count, latency and in-flight requests.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
		m.RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// EvaluationCounter 按评分方法和结果统计评分次数
	EvaluationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscreen_evaluations_total",
			Help: "Total number of questionnaire evaluations",
		},
		[]string{"method", "outcome"},
	)

	RiskLevelCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscreen_risk_levels_total",
			Help: "Completed responses by questionnaire and risk level",
		},
		[]string{"questionnaire", "risk_level"},
	)

	FlaggedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mindscreen_flagged_total",
			Help: "Responses flagged for review, by reason",
		},
		[]string{"reason"},
	)

	EvaluationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mindscreen_evaluation_duration_seconds",
			Help:    "Time spent scoring a single response",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(EvaluationCounter)
		prometheus.MustRegister(RiskLevelCounter)
		prometheus.MustRegister(FlaggedCounter)
		prometheus.MustRegister(EvaluationDuration)
	})
}

// ObserveEvaluation 记录一次评分的耗时与结果
func ObserveEvaluation(method, outcome string, started time.Time) {
	EvaluationCounter.WithLabelValues(method, outcome).Inc()
	EvaluationDuration.Observe(time.Since(started).Seconds())
}

func ObserveResult(questionnaire, riskLevel string, reasons []string) {
	RiskLevelCounter.WithLabelValues(questionnaire, riskLevel).Inc()
	for _, r := range reasons {
		FlaggedCounter.WithLabelValues(r).Inc()
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

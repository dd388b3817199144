package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveEvaluation(t *testing.T) {
	before := testutil.ToFloat64(EvaluationCounter.WithLabelValues("sum", "ok"))
	ObserveEvaluation("sum", "ok", time.Now())
	assert.Equal(t, before+1, testutil.ToFloat64(EvaluationCounter.WithLabelValues("sum", "ok")))
}

func TestObserveResult(t *testing.T) {
	level := testutil.ToFloat64(RiskLevelCounter.WithLabelValues("gad7", "severe"))
	reason := testutil.ToFloat64(FlaggedCounter.WithLabelValues("risk_level"))

	ObserveResult("gad7", "severe", []string{"risk_level"})

	assert.Equal(t, level+1, testutil.ToFloat64(RiskLevelCounter.WithLabelValues("gad7", "severe")))
	assert.Equal(t, reason+1, testutil.ToFloat64(FlaggedCounter.WithLabelValues("risk_level")))
}

func TestMetricsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	before := testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "204"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, before+1, testutil.ToFloat64(RequestCounter.WithLabelValues("GET", "/ping", "204")))
}

package util

import (
	"errors"
	"mindscreen_backend/internal/scoring"
	"mindscreen_backend/pkg/logger"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// PageResponse 分页响应结构
type PageResponse struct {
	List  interface{} `json:"list"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Code:    http.StatusCreated,
		Message: "created",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func ErrorWithData(c *gin.Context, code int, message string, data interface{}) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

func Unauthorized(c *gin.Context) {
	Error(c, http.StatusUnauthorized, "Unauthorized")
}

func Forbidden(c *gin.Context) {
	Error(c, http.StatusForbidden, "Forbidden")
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context) {
	Error(c, http.StatusNotFound, "Resource not found")
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Internal server error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error", zap.Error(err), zap.String("path", c.FullPath()))
	InternalServerError(c)
}

// ScoringErrorDetail 返回给客户端的评分错误定位信息
type ScoringErrorDetail struct {
	Kind       string   `json:"kind"`
	QuestionID string   `json:"questionId,omitempty"`
	RuleIndex  *int     `json:"ruleIndex,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Detail     string   `json:"detail,omitempty"`
}

func scoringDetail(err error) *ScoringErrorDetail {
	var se *scoring.Error
	if !errors.As(err, &se) {
		return &ScoringErrorDetail{Kind: err.Error()}
	}
	d := &ScoringErrorDetail{
		Kind:       se.Kind.Error(),
		QuestionID: se.QuestionID,
		Score:      se.Score,
		Detail:     se.Detail,
	}
	if se.RuleIndex >= 0 {
		idx := se.RuleIndex
		d.RuleIndex = &idx
	}
	return d
}

// HandleError 按错误类型映射 HTTP 状态码，评分错误不会返回 5xx
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrQuestionnaireNotFound),
		errors.Is(err, ErrQuestionNotFound),
		errors.Is(err, ErrResponseNotFound):
		Error(c, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrResponseCompleted),
		errors.Is(err, ErrResponseReviewed),
		errors.Is(err, ErrQuestionCodeConflict):
		Error(c, http.StatusConflict, err.Error())
	case errors.Is(err, ErrPermissionDenied):
		Forbidden(c)
	case errors.Is(err, ErrQuestionnaireInactive),
		errors.Is(err, ErrScoringConfigMissing),
		errors.Is(err, ErrResponseNotCompleted),
		errors.Is(err, ErrExportEmpty):
		Error(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrUnknownQuestion):
		BadRequest(c, err.Error())
	case scoring.IsConfigDefect(err):
		logger.Log.Warn("Scoring config defect", zap.Error(err))
		ErrorWithData(c, http.StatusUnprocessableEntity, "questionnaire misconfigured", scoringDetail(err))
	case errors.Is(err, scoring.ErrMissingRequiredAnswer):
		ErrorWithData(c, http.StatusBadRequest, "incomplete submission", scoringDetail(err))
	case errors.Is(err, scoring.ErrInvalidOptionValue):
		ErrorWithData(c, http.StatusBadRequest, "invalid answer", scoringDetail(err))
	default:
		LogInternalError(c, err)
	}
}

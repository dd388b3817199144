package controller

import (
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/repository"
	"mindscreen_backend/internal/service"
	"mindscreen_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type ReviewController struct {
	Service  *service.ResponseService
	Notifier *service.ReviewNotifier
}

func NewReviewController(svc *service.ResponseService, notifier *service.ReviewNotifier) *ReviewController {
	return &ReviewController{Service: svc, Notifier: notifier}
}

type ResponseDetail struct {
	*model.Response
	Audits []model.ScoreAudit `json:"audits"`
}

type RescoreResult struct {
	Response *model.Response   `json:"response"`
	Audit    *model.ScoreAudit `json:"audit"`
}

// @Summary 待复核答卷列表
// @Tags 复核
// @Produce json
// @Security BearerAuth
// @Param questionnaireId query int false "问卷ID"
// @Param riskLevel query string false "风险等级"
// @Param includeReviewed query bool false "包含已复核"
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Failure 400 {object} util.Response
// @Router /api/admin/responses/flagged [get]
func (c *ReviewController) ListFlagged(ctx *gin.Context) {
	questionnaireID, ok := optionalUintQuery(ctx, "questionnaireId")
	if !ok {
		return
	}
	page, limit := pagination(ctx)
	filter := repository.FlaggedFilter{QuestionnaireID: questionnaireID, RiskLevel: ctx.Query("riskLevel")}
	filter.IncludeReviewed, _ = strconv.ParseBool(ctx.Query("includeReviewed"))

	list, total, err := c.Service.ListFlagged(filter, page, limit)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary 复核队列
// @Description Redis 队列中尚未复核的事件，最早的在前
// @Tags 复核
// @Produce json
// @Security BearerAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]service.ReviewEvent}
// @Router /api/admin/reviews/queue [get]
func (c *ReviewController) Queue(ctx *gin.Context) {
	_, limit := pagination(ctx)
	events, err := c.Notifier.Pending(ctx.Request.Context(), int64(limit))
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	if events == nil {
		events = []service.ReviewEvent{}
	}
	util.Success(ctx, events)
}

// @Summary 答卷详情（含评分审计）
// @Tags 复核
// @Produce json
// @Security BearerAuth
// @Param id path string true "答卷ID"
// @Success 200 {object} util.Response{data=ResponseDetail}
// @Router /api/admin/responses/{id} [get]
func (c *ReviewController) Get(ctx *gin.Context) {
	resp, err := c.Service.Get(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	audits, err := c.Service.Audits(resp.ID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, ResponseDetail{Response: resp, Audits: audits})
}

// @Summary 标记为已复核
// @Tags 复核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答卷ID"
// @Param body body service.ReviewRequest false "复核备注"
// @Success 200 {object} util.Response{data=model.Response}
// @Failure 409 {object} util.Response
// @Router /api/admin/responses/{id}/review [post]
func (c *ReviewController) Review(ctx *gin.Context) {
	var req service.ReviewRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, err := c.Service.MarkReviewed(ctx.Request.Context(), ctx.Param("id"), user.UserID, req.Note)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// @Summary 重新评分
// @Description 显式重新评分并记录审计；useCurrentConfig 为 true 时使用问卷当前版本
// @Tags 复核
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "答卷ID"
// @Param body body service.RescoreRequest true "原因"
// @Success 200 {object} util.Response{data=RescoreResult}
// @Router /api/admin/responses/{id}/rescore [post]
func (c *ReviewController) Rescore(ctx *gin.Context) {
	var req service.RescoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	resp, audit, err := c.Service.Rescore(ctx.Request.Context(), ctx.Param("id"), user.Actor(), req.Reason, req.UseCurrentConfig)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, RescoreResult{Response: resp, Audit: audit})
}

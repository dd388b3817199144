package controller

import (
	"encoding/json"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/service"
	"mindscreen_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

type ResponseController struct {
	Service *service.ResponseService
}

func NewResponseController(svc *service.ResponseService) *ResponseController {
	return &ResponseController{Service: svc}
}

type AnswerView struct {
	QuestionID string          `json:"questionId"`
	Value      json.RawMessage `json:"value" swaggertype:"object"`
}

// ResponseView 答题端看到的答卷，不包含复核信息
type ResponseView struct {
	ID                   string               `json:"id"`
	QuestionnaireID      uint                 `json:"questionnaireId"`
	QuestionnaireVersion int                  `json:"questionnaireVersion"`
	Status               model.ResponseStatus `json:"status"`
	Answers              []AnswerView         `json:"answers"`
	Score                *float64             `json:"score,omitempty"`
	RiskLevel            string               `json:"riskLevel,omitempty"`
	RiskDescription      string               `json:"riskDescription,omitempty"`
	Passed               *bool                `json:"passed,omitempty"`
	StartedAt            time.Time            `json:"startedAt"`
	CompletedAt          *time.Time           `json:"completedAt,omitempty"`
}

func responseView(r *model.Response) ResponseView {
	view := ResponseView{
		ID:                   r.ID,
		QuestionnaireID:      r.QuestionnaireID,
		QuestionnaireVersion: r.QuestionnaireVersion,
		Status:               r.Status,
		Answers:              make([]AnswerView, 0, len(r.Answers)),
		Score:                r.Score,
		RiskLevel:            r.RiskLevel,
		RiskDescription:      r.RiskDescription,
		Passed:               r.Passed,
		StartedAt:            r.StartedAt,
		CompletedAt:          r.CompletedAt,
	}
	for _, a := range r.Answers {
		view.Answers = append(view.Answers, AnswerView{QuestionID: a.QuestionID, Value: json.RawMessage(a.Value)})
	}
	return view
}

// @Summary 开始作答
// @Description 创建答卷并冻结当前问卷版本
// @Tags 问卷作答
// @Accept json
// @Produce json
// @Param id path int true "问卷ID"
// @Param body body service.StartRequest false "答题人外部标识"
// @Success 201 {object} util.Response{data=ResponseView}
// @Failure 422 {object} util.Response
// @Router /api/questionnaires/{id}/responses [post]
func (c *ResponseController) Start(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.StartRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}
	resp, err := c.Service.Start(id, req.RespondentRef)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, responseView(resp))
}

// @Summary 保存答案
// @Description 可多次调用；value 为空串、null 或空数组时清除该题答案
// @Tags 问卷作答
// @Accept json
// @Produce json
// @Param id path string true "答卷ID"
// @Param body body service.SaveAnswersRequest true "答案"
// @Success 200 {object} util.Response{data=ResponseView}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/responses/{id}/answers [put]
func (c *ResponseController) SaveAnswers(ctx *gin.Context) {
	var req service.SaveAnswersRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	resp, err := c.Service.SaveAnswers(ctx.Param("id"), req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, responseView(resp))
}

// @Summary 提交答卷
// @Description 评分并返回风险等级，每份答卷只评分一次
// @Tags 问卷作答
// @Produce json
// @Param id path string true "答卷ID"
// @Success 200 {object} util.Response{data=ResponseView}
// @Failure 400 {object} util.Response{data=util.ScoringErrorDetail}
// @Failure 409 {object} util.Response
// @Failure 422 {object} util.Response{data=util.ScoringErrorDetail}
// @Router /api/responses/{id}/complete [post]
func (c *ResponseController) Complete(ctx *gin.Context) {
	resp, err := c.Service.Complete(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, responseView(resp))
}

// @Summary 获取答卷
// @Tags 问卷作答
// @Produce json
// @Param id path string true "答卷ID"
// @Success 200 {object} util.Response{data=ResponseView}
// @Router /api/responses/{id} [get]
func (c *ResponseController) Get(ctx *gin.Context) {
	resp, err := c.Service.Get(ctx.Param("id"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, responseView(resp))
}

package controller

import (
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/scoring"
	"mindscreen_backend/internal/service"
	"mindscreen_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type QuestionnaireController struct {
	Service *service.QuestionnaireService
	Export  *service.ExportService
}

func NewQuestionnaireController(svc *service.QuestionnaireService, export *service.ExportService) *QuestionnaireController {
	return &QuestionnaireController{Service: svc, Export: export}
}

// PublicOption 答题端看到的选项，不包含分值
type PublicOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type PublicQuestion struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Type     string         `json:"type"`
	Required bool           `json:"required"`
	Order    int            `json:"order"`
	Options  []PublicOption `json:"options,omitempty"`
}

type PublicQuestionnaire struct {
	ID          uint             `json:"id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Version     int              `json:"version"`
	Questions   []PublicQuestion `json:"questions"`
}

func publicView(q *model.Questionnaire) PublicQuestionnaire {
	sq := q.ToScoring()
	view := PublicQuestionnaire{
		ID:          q.ID,
		Title:       q.Title,
		Description: q.Description,
		Version:     q.Version,
		Questions:   make([]PublicQuestion, 0, len(sq.Questions)),
	}
	for _, item := range sq.Questions {
		pq := PublicQuestion{
			ID:       item.ID,
			Text:     item.Text,
			Type:     string(item.Type),
			Required: item.Required,
			Order:    item.Order,
		}
		for _, o := range item.Options {
			pq.Options = append(pq.Options, PublicOption{Label: o.Label, Value: o.Value})
		}
		view.Questions = append(view.Questions, pq)
	}
	return view
}

// @Summary 获取问卷（答题端）
// @Tags 问卷作答
// @Produce json
// @Param id path int true "问卷ID"
// @Success 200 {object} util.Response{data=PublicQuestionnaire}
// @Failure 404 {object} util.Response
// @Router /api/questionnaires/{id} [get]
func (c *QuestionnaireController) GetPublic(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	q, err := c.Service.GetActive(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, publicView(q))
}

// @Summary 问卷列表
// @Tags 问卷管理
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Param active query bool false "仅启用的问卷"
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/admin/questionnaires [get]
func (c *QuestionnaireController) List(ctx *gin.Context) {
	page, limit := pagination(ctx)
	activeOnly, _ := strconv.ParseBool(ctx.Query("active"))

	list, total, err := c.Service.List(page, limit, activeOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{List: list, Total: total, Page: page, Limit: limit})
}

// @Summary 创建问卷
// @Tags 问卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.QuestionnaireRequest true "问卷信息"
// @Success 201 {object} util.Response{data=model.Questionnaire}
// @Router /api/admin/questionnaires [post]
func (c *QuestionnaireController) Create(ctx *gin.Context) {
	var req service.QuestionnaireRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}

	q, err := c.Service.Create(req, editor.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 问卷详情（含题目和评分配置）
// @Tags 问卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Success 200 {object} util.Response{data=model.Questionnaire}
// @Router /api/admin/questionnaires/{id} [get]
func (c *QuestionnaireController) Get(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	q, err := c.Service.Get(id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 更新问卷
// @Description 启用问卷前必须先保存评分配置
// @Tags 问卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param body body service.QuestionnaireRequest true "问卷信息"
// @Success 200 {object} util.Response{data=model.Questionnaire}
// @Failure 403 {object} util.Response
// @Router /api/admin/questionnaires/{id} [put]
func (c *QuestionnaireController) Update(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionnaireRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	q, err := c.Service.Update(id, req, editor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除问卷
// @Tags 问卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Success 200 {object} util.Response
// @Failure 403 {object} util.Response
// @Router /api/admin/questionnaires/{id} [delete]
func (c *QuestionnaireController) Delete(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	if err := c.Service.Delete(id, editor); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 添加题目
// @Tags 问卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param body body service.QuestionRequest true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 422 {object} util.Response
// @Router /api/admin/questionnaires/{id}/questions [post]
func (c *QuestionnaireController) AddQuestion(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	q, err := c.Service.AddQuestion(id, req, editor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// @Summary 修改题目
// @Tags 问卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param questionId path int true "题目ID"
// @Param body body service.QuestionRequest true "题目"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/admin/questionnaires/{id}/questions/{questionId} [put]
func (c *QuestionnaireController) UpdateQuestion(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uintParam(ctx, "questionId")
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	q, err := c.Service.UpdateQuestion(id, questionID, req, editor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// @Summary 删除题目
// @Tags 问卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/admin/questionnaires/{id}/questions/{questionId} [delete]
func (c *QuestionnaireController) DeleteQuestion(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	questionID, ok := uintParam(ctx, "questionId")
	if !ok {
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	if err := c.Service.DeleteQuestion(id, questionID, editor); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

// @Summary 保存评分配置
// @Description 配置须通过校验：区间不重叠、无空隙并覆盖可得分数范围
// @Tags 评分配置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param body body scoring.Config true "评分配置"
// @Success 200 {object} util.Response{data=model.ScoringConfig}
// @Failure 403 {object} util.Response
// @Failure 422 {object} util.Response{data=util.ScoringErrorDetail}
// @Router /api/admin/questionnaires/{id}/scoring [put]
func (c *QuestionnaireController) SaveScoring(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var cfg scoring.Config
	if err := ctx.ShouldBindJSON(&cfg); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	editor, ok := currentEditor(ctx)
	if !ok {
		return
	}
	saved, err := c.Service.SaveScoringConfig(id, cfg, editor)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}

// @Summary 试算评分
// @Description 不保存任何数据；未提供 config 时使用已保存的配置
// @Tags 评分配置
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Param body body service.PreviewRequest true "答案与可选配置"
// @Success 200 {object} util.Response{data=service.PreviewResult}
// @Router /api/admin/questionnaires/{id}/scoring/preview [post]
func (c *QuestionnaireController) PreviewScoring(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	var req service.PreviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	res, err := c.Service.Preview(id, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// @Summary 导出答卷
// @Description 生成 CSV 并返回下载地址
// @Tags 问卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "问卷ID"
// @Success 200 {object} util.Response{data=service.ExportResult}
// @Router /api/admin/questionnaires/{id}/export [post]
func (c *QuestionnaireController) ExportResponses(ctx *gin.Context) {
	id, ok := uintParam(ctx, "id")
	if !ok {
		return
	}
	res, err := c.Export.Export(ctx.Request.Context(), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

package service

import (
	"errors"
	"fmt"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/repository"
	"mindscreen_backend/internal/scoring"
	"mindscreen_backend/internal/util"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type QuestionnaireService struct {
	Repo *repository.QuestionnaireRepository
}

func NewQuestionnaireService(repo *repository.QuestionnaireRepository) *QuestionnaireService {
	return &QuestionnaireService{Repo: repo}
}

type QuestionnaireRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
	IsActive    bool   `json:"isActive"`
}

type QuestionRequest struct {
	Code         string                 `json:"code"`
	Text         string                 `json:"text" binding:"required"`
	QuestionType string                 `json:"questionType" binding:"required"`
	Required     bool                   `json:"required"`
	Order        int                    `json:"order"`
	Options      []model.QuestionOption `json:"options"`
	Weight       *float64               `json:"weight"`
}

// Editor 发起修改的用户，管理员可以修改任何人创建的问卷
type Editor struct {
	UserID uint
	Role   model.UserRole
}

func (e Editor) canEdit(q *model.Questionnaire) bool {
	return e.Role == model.RoleAdmin || q.OwnerID == e.UserID
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func (s *QuestionnaireService) Create(req QuestionnaireRequest, ownerID uint) (*model.Questionnaire, error) {
	if req.IsActive {
		// 新建问卷还没有评分配置
		return nil, util.ErrScoringConfigMissing
	}
	q := &model.Questionnaire{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		Version:     1,
		OwnerID:     ownerID,
	}
	if err := s.Repo.Create(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionnaireService) Get(id uint) (*model.Questionnaire, error) {
	q, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionnaireNotFound)
	}
	return q, nil
}

// GetActive 供答题者使用，未启用的问卷视为不存在
func (s *QuestionnaireService) GetActive(id uint) (*model.Questionnaire, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !q.IsActive {
		return nil, util.ErrQuestionnaireNotFound
	}
	return q, nil
}

// getEditable 获取问卷并校验当前用户是否有修改权限
func (s *QuestionnaireService) getEditable(id uint, editor Editor) (*model.Questionnaire, error) {
	q, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if !editor.canEdit(q) {
		return nil, util.ErrPermissionDenied
	}
	return q, nil
}

func (s *QuestionnaireService) List(page, limit int, activeOnly bool) ([]model.Questionnaire, int64, error) {
	return s.Repo.List(page, limit, activeOnly)
}

func (s *QuestionnaireService) Update(id uint, req QuestionnaireRequest, editor Editor) (*model.Questionnaire, error) {
	q, err := s.getEditable(id, editor)
	if err != nil {
		return nil, err
	}
	if req.IsActive && q.Scoring == nil {
		return nil, util.ErrScoringConfigMissing
	}
	q.Title = strings.TrimSpace(req.Title)
	q.Description = req.Description
	q.Type = req.Type
	q.IsActive = req.IsActive
	if err := s.Repo.Update(q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionnaireService) Delete(id uint, editor Editor) error {
	if _, err := s.getEditable(id, editor); err != nil {
		return err
	}
	return s.Repo.Delete(id)
}

func (req QuestionRequest) toModel(questionnaireID uint) *model.Question {
	return &model.Question{
		QuestionnaireID: questionnaireID,
		Code:            strings.TrimSpace(req.Code),
		Text:            req.Text,
		QuestionType:    req.QuestionType,
		Required:        req.Required,
		Order:           req.Order,
		Options:         datatypes.NewJSONSlice(req.Options),
		Weight:          req.Weight,
	}
}

// checkQuestions 校验变更后的题目集合；已有评分配置时连同配置一起校验，
// 保证库中的评分配置始终可用
func checkQuestions(q *model.Questionnaire, questions []model.Question) error {
	snapshot := *q
	snapshot.Questions = questions
	sq := snapshot.ToScoring()

	if q.Scoring != nil {
		return scoring.ValidateConfig(sq, q.Scoring.ToScoring())
	}
	// 无评分配置时用一个覆盖全部分数的区间，只校验题目本身
	all := scoring.Config{Method: scoring.MethodSum, Ranges: []scoring.Range{{Min: -1e12, Label: "all"}}}
	return scoring.ValidateConfig(sq, all)
}

func (s *QuestionnaireService) checkCode(questionnaireID uint, code string, excludeID uint) error {
	if code == "" {
		return nil
	}
	if code == scoring.AnyQuestion || model.IsReservedCode(code) {
		return fmt.Errorf("%w: code %q is reserved", scoring.ErrInvalidQuestion, code)
	}
	exists, err := s.Repo.CodeExists(questionnaireID, code, excludeID)
	if err != nil {
		return err
	}
	if exists {
		return util.ErrQuestionCodeConflict
	}
	return nil
}

func (s *QuestionnaireService) AddQuestion(questionnaireID uint, req QuestionRequest, editor Editor) (*model.Question, error) {
	q, err := s.getEditable(questionnaireID, editor)
	if err != nil {
		return nil, err
	}
	question := req.toModel(questionnaireID)
	if err := s.checkCode(questionnaireID, question.Code, 0); err != nil {
		return nil, err
	}
	if err := checkQuestions(q, append(append([]model.Question(nil), q.Questions...), *question)); err != nil {
		return nil, err
	}
	if err := s.Repo.CreateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

// findQuestion 返回问卷及题目在题目列表中的下标
func (s *QuestionnaireService) findQuestion(questionnaireID, questionID uint, editor Editor) (*model.Questionnaire, int, error) {
	q, err := s.getEditable(questionnaireID, editor)
	if err != nil {
		return nil, -1, err
	}
	question, err := s.Repo.FindQuestionByID(questionID)
	if err != nil {
		return nil, -1, notFound(err, util.ErrQuestionNotFound)
	}
	if question.QuestionnaireID != questionnaireID {
		return nil, -1, util.ErrQuestionNotFound
	}
	for i, item := range q.Questions {
		if item.ID == questionID {
			return q, i, nil
		}
	}
	return nil, -1, util.ErrQuestionNotFound
}

func (s *QuestionnaireService) UpdateQuestion(questionnaireID, questionID uint, req QuestionRequest, editor Editor) (*model.Question, error) {
	q, idx, err := s.findQuestion(questionnaireID, questionID, editor)
	if err != nil {
		return nil, err
	}
	question := req.toModel(questionnaireID)
	question.BaseModel = q.Questions[idx].BaseModel
	if err := s.checkCode(questionnaireID, question.Code, questionID); err != nil {
		return nil, err
	}

	questions := append([]model.Question(nil), q.Questions...)
	questions[idx] = *question
	if err := checkQuestions(q, questions); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateQuestion(question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionnaireService) DeleteQuestion(questionnaireID, questionID uint, editor Editor) error {
	q, idx, err := s.findQuestion(questionnaireID, questionID, editor)
	if err != nil {
		return err
	}
	questions := make([]model.Question, 0, len(q.Questions)-1)
	questions = append(questions, q.Questions[:idx]...)
	questions = append(questions, q.Questions[idx+1:]...)
	if err := checkQuestions(q, questions); err != nil {
		return err
	}
	return s.Repo.DeleteQuestion(&q.Questions[idx])
}

// SaveScoringConfig 校验通过后才会保存，错误配置不会进入数据库
func (s *QuestionnaireService) SaveScoringConfig(questionnaireID uint, cfg scoring.Config, editor Editor) (*model.ScoringConfig, error) {
	q, err := s.getEditable(questionnaireID, editor)
	if err != nil {
		return nil, err
	}
	if err := scoring.ValidateConfig(q.ToScoring(), cfg); err != nil {
		return nil, err
	}
	m := model.NewScoringConfig(questionnaireID, cfg)
	if err := s.Repo.SaveScoringConfig(m); err != nil {
		return nil, err
	}
	return m, nil
}

type PreviewRequest struct {
	// Config 为空时使用已保存的评分配置
	Config  *scoring.Config  `json:"config"`
	Answers []scoring.Answer `json:"answers"`
}

// PreviewResult 试算结果，不落库
type PreviewResult struct {
	Result   *scoring.Result `json:"result"`
	MinScore float64         `json:"minScore"`
	MaxScore float64         `json:"maxScore"`
}

func (s *QuestionnaireService) Preview(questionnaireID uint, req PreviewRequest) (*PreviewResult, error) {
	q, err := s.Get(questionnaireID)
	if err != nil {
		return nil, err
	}
	var cfg scoring.Config
	switch {
	case req.Config != nil:
		cfg = *req.Config
	case q.Scoring != nil:
		cfg = q.Scoring.ToScoring()
	default:
		return nil, util.ErrScoringConfigMissing
	}

	sq := q.ToScoring()
	if err := scoring.ValidateConfig(sq, cfg); err != nil {
		return nil, err
	}
	res, err := scoring.Evaluate(sq, req.Answers, cfg)
	if err != nil {
		return nil, err
	}
	lo, hi := scoring.AttainableBounds(sq, cfg)
	return &PreviewResult{Result: res, MinScore: lo, MaxScore: hi}, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/repository"
	"mindscreen_backend/internal/scoring"
	"mindscreen_backend/internal/util"
	"mindscreen_backend/pkg/logger"
	"mindscreen_backend/pkg/monitoring"
	"mindscreen_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ConfigSourceSnapshot = "snapshot"
	ConfigSourceCurrent  = "current"
)

type ResponseService struct {
	Repo           *repository.ResponseRepository
	Questionnaires *repository.QuestionnaireRepository
	Notifier       ReviewPublisher
}

func NewResponseService(repo *repository.ResponseRepository, questionnaires *repository.QuestionnaireRepository, notifier ReviewPublisher) *ResponseService {
	return &ResponseService{Repo: repo, Questionnaires: questionnaires, Notifier: notifier}
}

type StartRequest struct {
	RespondentRef string `json:"respondentRef"`
}

type AnswerInput struct {
	QuestionID string          `json:"questionId" binding:"required"`
	Value      json.RawMessage `json:"value" swaggertype:"object"`
}

type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required"`
}

type RescoreRequest struct {
	Reason           string `json:"reason" binding:"required"`
	UseCurrentConfig bool   `json:"useCurrentConfig"`
}

type ReviewRequest struct {
	Note string `json:"note"`
}

func snapshotOf(q *model.Questionnaire) model.Snapshot {
	return model.Snapshot{
		Questionnaire: q.ToScoring(),
		Config:        q.Scoring.ToScoring(),
	}
}

// Start 创建答卷并冻结当前问卷版本和评分配置
func (s *ResponseService) Start(questionnaireID uint, respondentRef string) (*model.Response, error) {
	q, err := s.Questionnaires.FindByID(questionnaireID)
	if err != nil {
		return nil, notFound(err, util.ErrQuestionnaireNotFound)
	}
	if !q.IsActive {
		return nil, util.ErrQuestionnaireInactive
	}
	if q.Scoring == nil {
		return nil, util.ErrScoringConfigMissing
	}

	resp := &model.Response{
		QuestionnaireID:      q.ID,
		QuestionnaireVersion: q.Version,
		RespondentRef:        respondentRef,
		Status:               model.ResponseInProgress,
		Snapshot:             datatypes.NewJSONType(snapshotOf(q)),
		FlagReasons:          datatypes.NewJSONSlice([]string{}),
		StartedAt:            time.Now(),
	}
	if err := s.Repo.Create(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *ResponseService) Get(id string) (*model.Response, error) {
	resp, err := s.Repo.FindByID(id)
	if err != nil {
		return nil, notFound(err, util.ErrResponseNotFound)
	}
	return resp, nil
}

func decodeValue(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// SaveAnswers 写入或覆盖答案，空值表示清除该题答案。
// 选项值在保存时即校验，必答题是否完整留到提交时判断
func (s *ResponseService) SaveAnswers(responseID string, inputs []AnswerInput) (*model.Response, error) {
	resp, err := s.Get(responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseInProgress {
		return nil, util.ErrResponseCompleted
	}

	snap := resp.Snapshot.Data()
	questions := make(map[string]scoring.Question, len(snap.Questionnaire.Questions))
	for _, q := range snap.Questionnaire.Questions {
		questions[q.ID] = q
	}

	latest := make(map[string]int, len(inputs))
	for i, in := range inputs {
		latest[in.QuestionID] = i
	}

	var answers []model.Answer
	var removed []string
	for i, in := range inputs {
		if latest[in.QuestionID] != i {
			continue
		}
		q, ok := questions[in.QuestionID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", util.ErrUnknownQuestion, in.QuestionID)
		}
		v, err := decodeValue(in.Value)
		if err != nil {
			return nil, &scoring.Error{Kind: scoring.ErrInvalidOptionValue, QuestionID: q.ID, RuleIndex: -1, Detail: err.Error()}
		}
		if scoring.IsBlank(v) {
			removed = append(removed, q.ID)
			continue
		}
		if err := scoring.CheckAnswer(q, v); err != nil {
			return nil, err
		}
		answers = append(answers, model.Answer{QuestionID: q.ID, Value: datatypes.JSON(in.Value)})
	}

	if err := s.Repo.SaveAnswers(responseID, answers, removed); err != nil {
		return nil, err
	}
	return s.Get(responseID)
}

func scoringAnswers(answers []model.Answer) ([]scoring.Answer, error) {
	out := make([]scoring.Answer, 0, len(answers))
	for _, a := range answers {
		v, err := decodeValue(json.RawMessage(a.Value))
		if err != nil {
			return nil, fmt.Errorf("decode answer %s: %w", a.QuestionID, err)
		}
		out = append(out, scoring.Answer{QuestionID: a.QuestionID, Value: v})
	}
	return out, nil
}

func answerScores(res *scoring.Result) map[string]*float64 {
	scores := make(map[string]*float64, len(res.PerQuestionScores))
	for id, v := range res.PerQuestionScores {
		v := v
		scores[id] = &v
	}
	return scores
}

func evaluationOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case scoring.IsConfigDefect(err):
		return "config_error"
	default:
		return "invalid_submission"
	}
}

// evaluate 对快照评分并记录指标和日志
func (s *ResponseService) evaluate(ctx context.Context, resp *model.Response, snap model.Snapshot) (*scoring.Result, error) {
	_, span := tracing.Tracer.Start(ctx, "scoring.Evaluate")
	defer span.End()
	span.SetAttributes(
		attribute.String("response.id", resp.ID),
		attribute.String("scoring.method", string(snap.Config.Method)),
	)

	answers, err := scoringAnswers(resp.Answers)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	started := time.Now()
	res, err := scoring.Evaluate(snap.Questionnaire, answers, snap.Config)
	monitoring.ObserveEvaluation(string(snap.Config.Method), evaluationOutcome(err), started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, evaluationOutcome(err))
		if scoring.IsConfigDefect(err) {
			logger.Log.Error("Scoring config defect",
				zap.String("responseId", resp.ID),
				zap.Uint("questionnaireId", resp.QuestionnaireID),
				zap.Int("version", resp.QuestionnaireVersion),
				zap.Error(err))
		} else {
			logger.Log.Info("Submission rejected", zap.String("responseId", resp.ID), zap.Error(err))
		}
		return nil, err
	}

	span.SetAttributes(
		attribute.Float64("scoring.score", res.Score),
		attribute.String("scoring.risk_level", res.RiskLevel),
		attribute.Bool("scoring.flagged", res.Flagged),
	)
	return res, nil
}

// Complete 提交答卷：基于冻结的快照评分一次并保存结果
func (s *ResponseService) Complete(ctx context.Context, responseID string) (*model.Response, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ResponseService.Complete")
	defer span.End()

	resp, err := s.Get(responseID)
	if err != nil {
		return nil, err
	}
	if resp.Status != model.ResponseInProgress {
		return nil, util.ErrResponseCompleted
	}

	snap := resp.Snapshot.Data()
	res, err := s.evaluate(ctx, resp, snap)
	if err != nil {
		return nil, err
	}

	completedAt := time.Now()
	resp.ApplyResult(res)
	resp.CompletedAt = &completedAt
	if err := s.Repo.Complete(resp, answerScores(res)); err != nil {
		return nil, err
	}

	monitoring.ObserveResult(questionnaireLabel(snap), res.RiskLevel, res.FlagReasons)
	logger.Log.Info("Response completed",
		zap.String("responseId", resp.ID),
		zap.Float64("score", res.Score),
		zap.String("riskLevel", res.RiskLevel),
		zap.Bool("flagged", res.Flagged))

	if res.Flagged {
		s.publish(ctx, resp, snap, completedAt)
	}
	return s.Get(responseID)
}

func questionnaireLabel(snap model.Snapshot) string {
	if snap.Questionnaire.Type != "" {
		return snap.Questionnaire.Type
	}
	return snap.Questionnaire.ID
}

// publish 通知失败只记录日志，答卷已经保存
func (s *ResponseService) publish(ctx context.Context, resp *model.Response, snap model.Snapshot, at time.Time) {
	if s.Notifier == nil || resp.Score == nil {
		return
	}
	ev := ReviewEvent{
		ResponseID:      resp.ID,
		QuestionnaireID: resp.QuestionnaireID,
		Title:           snap.Questionnaire.Title,
		Score:           *resp.Score,
		RiskLevel:       resp.RiskLevel,
		Reasons:         resp.FlagReasons,
		FlaggedAt:       at,
	}
	if err := s.Notifier.PublishFlagged(ctx, ev); err != nil {
		logger.Log.Error("Failed to publish review event", zap.String("responseId", resp.ID), zap.Error(err))
	}
}

// Rescore 显式重新评分并写入审计记录。useCurrentConfig 为 true 时
// 改用问卷当前版本，否则按原快照重算
func (s *ResponseService) Rescore(ctx context.Context, responseID, actor, reason string, useCurrentConfig bool) (*model.Response, *model.ScoreAudit, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ResponseService.Rescore")
	defer span.End()

	resp, err := s.Get(responseID)
	if err != nil {
		return nil, nil, err
	}
	if resp.Status == model.ResponseInProgress {
		return nil, nil, util.ErrResponseNotCompleted
	}

	snap := resp.Snapshot.Data()
	source := ConfigSourceSnapshot
	version := resp.QuestionnaireVersion
	if useCurrentConfig {
		q, err := s.Questionnaires.FindByID(resp.QuestionnaireID)
		if err != nil {
			return nil, nil, notFound(err, util.ErrQuestionnaireNotFound)
		}
		if q.Scoring == nil {
			return nil, nil, util.ErrScoringConfigMissing
		}
		snap = snapshotOf(q)
		source = ConfigSourceCurrent
		version = q.Version
	}

	res, err := s.evaluate(ctx, resp, snap)
	if err != nil {
		return nil, nil, err
	}

	audit := &model.ScoreAudit{
		ResponseID:   resp.ID,
		Actor:        actor,
		Reason:       reason,
		ConfigSource: source,
		OldVersion:   resp.QuestionnaireVersion,
		NewVersion:   version,
		OldScore:     resp.Score,
		OldRiskLevel: resp.RiskLevel,
		OldFlagged:   resp.FlaggedForReview,
		NewRiskLevel: res.RiskLevel,
		NewFlagged:   res.Flagged,
	}
	newScore := res.Score
	audit.NewScore = &newScore

	wasFlagged := resp.FlaggedForReview
	resp.ApplyResult(res)
	resp.Snapshot = datatypes.NewJSONType(snap)
	resp.QuestionnaireVersion = version
	if err := s.Repo.ApplyRescore(resp, answerScores(res), audit); err != nil {
		return nil, nil, err
	}

	logger.Log.Info("Response rescored",
		zap.String("responseId", resp.ID),
		zap.String("actor", actor),
		zap.String("source", source),
		zap.Float64("score", res.Score))

	if res.Flagged && !wasFlagged && resp.Status == model.ResponseCompleted {
		s.publish(ctx, resp, snap, time.Now())
	}

	updated, err := s.Get(responseID)
	if err != nil {
		return nil, nil, err
	}
	return updated, audit, nil
}

func (s *ResponseService) ListFlagged(filter repository.FlaggedFilter, page, limit int) ([]model.Response, int64, error) {
	return s.Repo.ListFlagged(filter, page, limit)
}

type reviewAcker interface {
	Ack(ctx context.Context, responseID string) error
}

func (s *ResponseService) MarkReviewed(ctx context.Context, responseID string, reviewerID uint, note string) (*model.Response, error) {
	resp, err := s.Get(responseID)
	if err != nil {
		return nil, err
	}
	switch resp.Status {
	case model.ResponseInProgress:
		return nil, util.ErrResponseNotCompleted
	case model.ResponseReviewed:
		return nil, util.ErrResponseReviewed
	}

	if err := s.Repo.MarkReviewed(responseID, reviewerID, note, time.Now()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrResponseReviewed
		}
		return nil, err
	}

	if acker, ok := s.Notifier.(reviewAcker); ok {
		if err := acker.Ack(ctx, responseID); err != nil {
			logger.Log.Warn("Failed to remove review event", zap.String("responseId", responseID), zap.Error(err))
		}
	}
	logger.Log.Info("Response reviewed", zap.String("responseId", responseID), zap.Uint("reviewerId", reviewerID))
	return s.Get(responseID)
}

func (s *ResponseService) Audits(responseID string) ([]model.ScoreAudit, error) {
	if _, err := s.Get(responseID); err != nil {
		return nil, err
	}
	return s.Repo.ListAudits(responseID)
}

package repository

import (
	"mindscreen_backend/internal/model"
	"mindscreen_backend/internal/util"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResponseRepository struct {
	DB *gorm.DB
}

func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{DB: db}
}

func (r *ResponseRepository) Create(resp *model.Response) error {
	return r.DB.Create(resp).Error
}

func (r *ResponseRepository) FindByID(id string) (*model.Response, error) {
	var resp model.Response
	err := r.DB.Preload("Answers", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at asc")
	}).Where("id = ?", id).First(&resp).Error
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveAnswers 在答卷仍处于作答中时写入答案；removed 中的题目答案被清除
func (r *ResponseRepository) SaveAnswers(responseID string, answers []model.Answer, removed []string) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		// 以状态为条件更新，答卷已提交时不允许再修改
		res := tx.Model(&model.Response{}).
			Where("id = ? AND status = ?", responseID, model.ResponseInProgress).
			UpdateColumn("updated_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrResponseCompleted
		}

		if len(removed) > 0 {
			err := tx.Unscoped().
				Where("response_id = ? AND question_id IN ?", responseID, removed).
				Delete(&model.Answer{}).Error
			if err != nil {
				return err
			}
		}

		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].ResponseID = responseID
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "response_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&answers).Error
	})
}

// Complete 写入评分结果。WHERE status = in_progress 保证同一答卷只会被评分一次
func (r *ResponseRepository) Complete(resp *model.Response, answerScores map[string]*float64) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Response{}).
			Where("id = ? AND status = ?", resp.ID, model.ResponseInProgress).
			Updates(map[string]interface{}{
				"status":             model.ResponseCompleted,
				"score":              resp.Score,
				"risk_level":         resp.RiskLevel,
				"risk_description":   resp.RiskDescription,
				"flagged_for_review": resp.FlaggedForReview,
				"flag_reasons":       resp.FlagReasons,
				"missing_required":   resp.MissingRequired,
				"passed":             resp.Passed,
				"completed_at":       resp.CompletedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrResponseCompleted
		}
		resp.Status = model.ResponseCompleted
		return saveAnswerScores(tx, resp.ID, answerScores)
	})
}

func saveAnswerScores(tx *gorm.DB, responseID string, scores map[string]*float64) error {
	// 先清空，未计分的题目保持为空
	err := tx.Model(&model.Answer{}).
		Where("response_id = ?", responseID).
		UpdateColumn("score", nil).Error
	if err != nil {
		return err
	}
	for questionID, score := range scores {
		if score == nil {
			continue
		}
		err := tx.Model(&model.Answer{}).
			Where("response_id = ? AND question_id = ?", responseID, questionID).
			UpdateColumn("score", *score).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// ApplyRescore 覆盖评分结果并写入审计记录
func (r *ResponseRepository) ApplyRescore(resp *model.Response, answerScores map[string]*float64, audit *model.ScoreAudit) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.Response{}).
			Where("id = ?", resp.ID).
			Updates(map[string]interface{}{
				"questionnaire_version": resp.QuestionnaireVersion,
				"snapshot":              resp.Snapshot,
				"score":                 resp.Score,
				"risk_level":            resp.RiskLevel,
				"risk_description":      resp.RiskDescription,
				"flagged_for_review":    resp.FlaggedForReview,
				"flag_reasons":          resp.FlagReasons,
				"missing_required":      resp.MissingRequired,
				"passed":                resp.Passed,
			}).Error
		if err != nil {
			return err
		}
		if err := saveAnswerScores(tx, resp.ID, answerScores); err != nil {
			return err
		}
		return tx.Create(audit).Error
	})
}

// MarkReviewed 只有已提交且未复核的答卷可以标记为已复核
func (r *ResponseRepository) MarkReviewed(id string, reviewerID uint, note string, at time.Time) error {
	res := r.DB.Model(&model.Response{}).
		Where("id = ? AND status = ?", id, model.ResponseCompleted).
		Updates(map[string]interface{}{
			"status":      model.ResponseReviewed,
			"reviewer_id": reviewerID,
			"review_note": note,
			"reviewed_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

type FlaggedFilter struct {
	QuestionnaireID uint
	RiskLevel       string
	IncludeReviewed bool
}

func (r *ResponseRepository) ListFlagged(filter FlaggedFilter, page, limit int) ([]model.Response, int64, error) {
	var rs []model.Response
	var total int64

	statuses := []model.ResponseStatus{model.ResponseCompleted}
	if filter.IncludeReviewed {
		statuses = append(statuses, model.ResponseReviewed)
	}

	query := r.DB.Model(&model.Response{}).
		Where("flagged_for_review = ?", true).
		Where("status IN ?", statuses)
	if filter.QuestionnaireID > 0 {
		query = query.Where("questionnaire_id = ?", filter.QuestionnaireID)
	}
	if filter.RiskLevel != "" {
		query = query.Where("risk_level = ?", filter.RiskLevel)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("completed_at desc").Offset(offset).Limit(limit).Find(&rs).Error
	return rs, total, err
}

// ListScored 返回问卷下所有已评分答卷及其答案，用于导出
func (r *ResponseRepository) ListScored(questionnaireID uint) ([]model.Response, error) {
	var rs []model.Response
	err := r.DB.Preload("Answers").
		Where("questionnaire_id = ? AND status IN ?", questionnaireID,
			[]model.ResponseStatus{model.ResponseCompleted, model.ResponseReviewed}).
		Order("completed_at asc").
		Find(&rs).Error
	return rs, err
}

func (r *ResponseRepository) ListAudits(responseID string) ([]model.ScoreAudit, error) {
	var audits []model.ScoreAudit
	err := r.DB.Where("response_id = ?", responseID).Order("id asc").Find(&audits).Error
	return audits, err
}

package repository

import (
	"mindscreen_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type QuestionnaireRepository struct {
	DB *gorm.DB
}

func NewQuestionnaireRepository(db *gorm.DB) *QuestionnaireRepository {
	return &QuestionnaireRepository{DB: db}
}

func (r *QuestionnaireRepository) Create(q *model.Questionnaire) error {
	return r.DB.Create(q).Error
}

// FindByID 加载问卷及其题目（按顺序）和评分配置
func (r *QuestionnaireRepository) FindByID(id uint) (*model.Questionnaire, error) {
	var q model.Questionnaire
	err := r.DB.
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("`order` asc, id asc")
		}).
		Preload("Scoring").
		First(&q, id).Error
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *QuestionnaireRepository) List(page, limit int, activeOnly bool) ([]model.Questionnaire, int64, error) {
	var qs []model.Questionnaire
	var total int64
	query := r.DB.Model(&model.Questionnaire{})
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&qs).Error
	return qs, total, err
}

// Update 只更新基础信息，不影响题目和评分配置
func (r *QuestionnaireRepository) Update(q *model.Questionnaire) error {
	return r.DB.Model(q).Select("title", "description", "type", "is_active").Updates(q).Error
}

func (r *QuestionnaireRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("questionnaire_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		if err := tx.Where("questionnaire_id = ?", id).Delete(&model.ScoringConfig{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Questionnaire{}, id).Error
	})
}

func bumpVersion(tx *gorm.DB, questionnaireID uint) error {
	res := tx.Model(&model.Questionnaire{}).
		Where("id = ?", questionnaireID).
		UpdateColumn("version", gorm.Expr("version + ?", 1))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *QuestionnaireRepository) FindQuestionByID(id uint) (*model.Question, error) {
	var q model.Question
	if err := r.DB.First(&q, id).Error; err != nil {
		return nil, err
	}
	return &q, nil
}

// CodeExists 检查同一问卷内题目编码是否重复，excludeID 为正在编辑的题目
func (r *QuestionnaireRepository) CodeExists(questionnaireID uint, code string, excludeID uint) (bool, error) {
	var count int64
	query := r.DB.Model(&model.Question{}).Where("questionnaire_id = ? AND code = ?", questionnaireID, code)
	if excludeID > 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

// 题目变更会让问卷版本号加一，已开始的答卷仍使用各自的快照

func (r *QuestionnaireRepository) CreateQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, q.QuestionnaireID); err != nil {
			return err
		}
		return tx.Create(q).Error
	})
}

func (r *QuestionnaireRepository) UpdateQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, q.QuestionnaireID); err != nil {
			return err
		}
		return tx.Save(q).Error
	})
}

func (r *QuestionnaireRepository) DeleteQuestion(q *model.Question) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, q.QuestionnaireID); err != nil {
			return err
		}
		return tx.Delete(&model.Question{}, q.ID).Error
	})
}

// SaveScoringConfig 按问卷ID插入或覆盖评分配置
func (r *QuestionnaireRepository) SaveScoringConfig(cfg *model.ScoringConfig) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(tx, cfg.QuestionnaireID); err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "questionnaire_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"method", "ranges", "rules", "base_score", "max_score",
				"passing_score", "flag_policy", "allow_partial", "updated_at",
			}),
		}).Create(cfg).Error
	})
}

func (r *QuestionnaireRepository) FindScoringConfig(questionnaireID uint) (*model.ScoringConfig, error) {
	var cfg model.ScoringConfig
	if err := r.DB.Where("questionnaire_id = ?", questionnaireID).First(&cfg).Error; err != nil {
		return nil, err
	}
	return &cfg, nil
}

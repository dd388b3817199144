package model

import (
	"fmt"
	"strconv"
	"strings"

	"mindscreen_backend/internal/scoring"

	"gorm.io/datatypes"
)

// QuestionOption 选项，Score 为空时量表/评分题按数值计分
type QuestionOption struct {
	Label string   `json:"label"`
	Value string   `json:"value"`
	Score *float64 `json:"score,omitempty"`
}

// swagger:model Questionnaire
type Questionnaire struct {
	BaseModel
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Type        string `gorm:"size:50;index" json:"type"` // gad7, phq9, custom ...
	IsActive    bool   `gorm:"default:false" json:"isActive"`
	// Version 每次题目或评分配置变更时递增，答卷记录开始作答时的版本
	Version   int            `gorm:"default:1;not null" json:"version"`
	OwnerID   uint           `gorm:"index;type:bigint unsigned" json:"ownerId"`
	Questions []Question     `gorm:"foreignKey:QuestionnaireID" json:"questions,omitempty"`
	Scoring   *ScoringConfig `gorm:"foreignKey:QuestionnaireID" json:"scoring,omitempty"`
}

func (Questionnaire) TableName() string {
	return "questionnaires"
}

// swagger:model Question
type Question struct {
	BaseModel
	QuestionnaireID uint `gorm:"index;type:bigint unsigned;not null" json:"questionnaireId"`
	// Code 是答案和评分规则引用题目的稳定标识，为空时使用 item-<ID>
	Code         string                              `gorm:"size:64" json:"code"`
	Text         string                              `gorm:"type:text;not null" json:"text"`
	QuestionType string                              `gorm:"size:30;not null" json:"questionType"`
	Required     bool                                `gorm:"default:false" json:"required"`
	Order        int                                 `gorm:"default:0" json:"order"`
	Options      datatypes.JSONSlice[QuestionOption] `json:"options"`
	Weight       *float64                            `json:"weight,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// autoCodePrefix 未设置编码的题目在快照中的 ID 前缀
const autoCodePrefix = "item-"

func (q Question) ScoringID() string {
	if q.Code != "" {
		return q.Code
	}
	return fmt.Sprintf("%s%d", autoCodePrefix, q.ID)
}

// IsReservedCode 形如 item-<数字> 的编码留给未设置编码的题目，手动编码不能使用
func IsReservedCode(code string) bool {
	rest, ok := strings.CutPrefix(code, autoCodePrefix)
	if !ok || rest == "" {
		return false
	}
	_, err := strconv.ParseUint(rest, 10, 64)
	return err == nil
}

func (q Question) ToScoring() scoring.Question {
	opts := make([]scoring.Option, 0, len(q.Options))
	for _, o := range q.Options {
		opts = append(opts, scoring.Option{Label: o.Label, Value: o.Value, Score: o.Score})
	}
	return scoring.Question{
		ID:       q.ScoringID(),
		Text:     q.Text,
		Type:     scoring.QuestionType(q.QuestionType),
		Required: q.Required,
		Order:    q.Order,
		Options:  opts,
		Weight:   q.Weight,
	}
}

// ToScoring 转换为评分引擎使用的问卷快照，题目按 Order 排序
func (q Questionnaire) ToScoring() scoring.Questionnaire {
	questions := make([]scoring.Question, 0, len(q.Questions))
	for _, item := range q.Questions {
		questions = append(questions, item.ToScoring())
	}
	sortQuestions(questions)
	return scoring.Questionnaire{
		ID:        fmt.Sprintf("%d", q.ID),
		Title:     q.Title,
		Type:      q.Type,
		Active:    q.IsActive,
		Questions: questions,
	}
}

func sortQuestions(qs []scoring.Question) {
	// 插入排序，保持同 Order 题目的原有顺序
	for i := 1; i < len(qs); i++ {
		for j := i; j > 0 && qs[j].Order < qs[j-1].Order; j-- {
			qs[j], qs[j-1] = qs[j-1], qs[j]
		}
	}
}

// swagger:model ScoringConfig
type ScoringConfig struct {
	BaseModel
	QuestionnaireID uint                                   `gorm:"uniqueIndex;type:bigint unsigned;not null" json:"questionnaireId"`
	Method          string                                 `gorm:"size:30;not null" json:"method"`
	Ranges          datatypes.JSONSlice[scoring.Range]     `json:"ranges"`
	Rules           datatypes.JSONSlice[scoring.Rule]      `json:"rules"`
	BaseScore       *float64                               `json:"baseScore,omitempty"`
	MaxScore        *float64                               `json:"maxScore,omitempty"`
	PassingScore    *float64                               `json:"passingScore,omitempty"`
	FlagPolicy      datatypes.JSONType[scoring.FlagPolicy] `json:"flagPolicy"`
	AllowPartial    bool                                   `gorm:"default:false" json:"allowPartial"`
}

func (ScoringConfig) TableName() string {
	return "scoring_configs"
}

func (c ScoringConfig) ToScoring() scoring.Config {
	return scoring.Config{
		Method:       scoring.Method(c.Method),
		Ranges:       append([]scoring.Range(nil), c.Ranges...),
		MaxScore:     c.MaxScore,
		PassingScore: c.PassingScore,
		BaseScore:    c.BaseScore,
		Rules:        append([]scoring.Rule(nil), c.Rules...),
		FlagPolicy:   c.FlagPolicy.Data(),
		AllowPartial: c.AllowPartial,
	}
}

// NewScoringConfig 由引擎配置构造持久化模型
func NewScoringConfig(questionnaireID uint, cfg scoring.Config) *ScoringConfig {
	return &ScoringConfig{
		QuestionnaireID: questionnaireID,
		Method:          string(cfg.Method),
		Ranges:          datatypes.NewJSONSlice(cfg.Ranges),
		Rules:           datatypes.NewJSONSlice(cfg.Rules),
		BaseScore:       cfg.BaseScore,
		MaxScore:        cfg.MaxScore,
		PassingScore:    cfg.PassingScore,
		FlagPolicy:      datatypes.NewJSONType(cfg.FlagPolicy),
		AllowPartial:    cfg.AllowPartial,
	}
}

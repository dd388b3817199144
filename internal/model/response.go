package model

import (
	"time"

	"mindscreen_backend/internal/scoring"

	"gorm.io/datatypes"
)

type ResponseStatus string

const (
	ResponseInProgress ResponseStatus = "in_progress"
	ResponseCompleted  ResponseStatus = "completed"
	ResponseReviewed   ResponseStatus = "reviewed"
)

// Snapshot 开始作答时冻结的问卷与评分配置，评分始终基于它
type Snapshot struct {
	Questionnaire scoring.Questionnaire `json:"questionnaire"`
	Config        scoring.Config        `json:"config"`
}

// swagger:model Response
type Response struct {
	UUIDBase
	QuestionnaireID      uint                         `gorm:"index;type:bigint unsigned;not null" json:"questionnaireId"`
	QuestionnaireVersion int                          `gorm:"not null" json:"questionnaireVersion"`
	RespondentRef        string                       `gorm:"size:64;index" json:"respondentRef,omitempty"`
	Status               ResponseStatus               `gorm:"size:20;default:'in_progress';index" json:"status"`
	Snapshot             datatypes.JSONType[Snapshot] `json:"-"`
	Score                *float64                     `json:"score,omitempty"`
	RiskLevel            string                       `gorm:"size:50;index" json:"riskLevel,omitempty"`
	RiskDescription      string                       `gorm:"type:text" json:"riskDescription,omitempty"`
	FlaggedForReview     bool                         `gorm:"default:false;index" json:"flaggedForReview"`
	FlagReasons          datatypes.JSONSlice[string]  `json:"flagReasons"`
	MissingRequired      datatypes.JSONSlice[string]  `json:"missingRequired,omitempty"`
	Passed               *bool                        `json:"passed,omitempty"`
	StartedAt            time.Time                    `json:"startedAt"`
	CompletedAt          *time.Time                   `json:"completedAt,omitempty"`
	ReviewedAt           *time.Time                   `json:"reviewedAt,omitempty"`
	ReviewerID           *uint                        `gorm:"type:bigint unsigned" json:"reviewerId,omitempty"`
	ReviewNote           string                       `gorm:"type:text" json:"reviewNote,omitempty"`
	Answers              []Answer                     `gorm:"foreignKey:ResponseID" json:"answers,omitempty"`
}

func (Response) TableName() string {
	return "responses"
}

// ApplyResult 写入评分结果字段
func (r *Response) ApplyResult(res *scoring.Result) {
	score := res.Score
	r.Score = &score
	r.RiskLevel = res.RiskLevel
	r.RiskDescription = res.RiskDescription
	r.FlaggedForReview = res.Flagged
	r.FlagReasons = datatypes.NewJSONSlice(res.FlagReasons)
	r.MissingRequired = datatypes.NewJSONSlice(res.MissingRequired)
	r.Passed = res.Passed
}

// swagger:model Answer
type Answer struct {
	UUIDBase
	ResponseID string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_answer_response_question" json:"responseId"`
	QuestionID string         `gorm:"size:64;not null;uniqueIndex:idx_answer_response_question" json:"questionId"`
	Value      datatypes.JSON `gorm:"not null" json:"value"`
	// Score 是加权后的单题得分，自由文本、日期和权重为 0 的题目为空
	Score *float64 `json:"score,omitempty"`
}

func (Answer) TableName() string {
	return "answers"
}

// swagger:model ScoreAudit
type ScoreAudit struct {
	BaseModel
	ResponseID   string   `gorm:"type:varchar(36);index;not null" json:"responseId"`
	Actor        string   `gorm:"size:100;not null" json:"actor"`
	Reason       string   `gorm:"type:text" json:"reason"`
	ConfigSource string   `gorm:"size:20" json:"configSource"` // snapshot, current
	OldVersion   int      `json:"oldVersion"`
	NewVersion   int      `json:"newVersion"`
	OldScore     *float64 `json:"oldScore,omitempty"`
	NewScore     *float64 `json:"newScore,omitempty"`
	OldRiskLevel string   `gorm:"size:50" json:"oldRiskLevel"`
	NewRiskLevel string   `gorm:"size:50" json:"newRiskLevel"`
	OldFlagged   bool     `json:"oldFlagged"`
	NewFlagged   bool     `json:"newFlagged"`
}

func (ScoreAudit) TableName() string {
	return "score_audits"
}

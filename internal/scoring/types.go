package scoring

import (
	"math"

	"github.com/shopspring/decimal"
)

// QuestionType 题型，决定答案的形态
type QuestionType string

const (
	FreeText       QuestionType = "free_text"
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	Rating         QuestionType = "rating"
	YesNo          QuestionType = "yes_no"
	Scale          QuestionType = "scale"
	Date           QuestionType = "date"
)

func (t QuestionType) IsValid() bool {
	switch t {
	case FreeText, SingleChoice, MultipleChoice, Rating, YesNo, Scale, Date:
		return true
	}
	return false
}

// RequiresOptions 答案必须命中某个已声明的选项
func (t QuestionType) RequiresOptions() bool {
	switch t {
	case SingleChoice, MultipleChoice, YesNo, Scale:
		return true
	}
	return false
}

// IsNumeric 是否支持 greater_than / less_than / between 条件
func (t QuestionType) IsNumeric() bool {
	return t == Rating || t == Scale
}

// Method 各题得分的汇总方式
type Method string

const (
	MethodSum             Method = "sum"
	MethodAverage         Method = "average"
	MethodWeightedAverage Method = "weighted_average"
	MethodCustom          Method = "custom"
)

func (m Method) IsValid() bool {
	switch m {
	case MethodSum, MethodAverage, MethodWeightedAverage, MethodCustom:
		return true
	}
	return false
}

// Option 选择题、量表题和评分题的一个选项。
// Score 为空时，量表和评分题取选项值本身的数值，其余题型计 0 分
type Option struct {
	Label string   `json:"label"`
	Value string   `json:"value"`
	Score *float64 `json:"score,omitempty"`
}

type Question struct {
	ID       string       `json:"id"`
	Text     string       `json:"text"`
	Type     QuestionType `json:"type"`
	Required bool         `json:"required"`
	Order    int          `json:"order"`
	Options  []Option     `json:"options,omitempty"`
	// Weight 题目权重，为空按 1 计；为 0 时只收集答案不计分
	Weight *float64 `json:"weight,omitempty"`
}

func (q Question) weight() decimal.Decimal {
	if q.Weight == nil {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromFloat(*q.Weight)
}

func (q Question) scored() bool {
	if q.Type == FreeText || q.Type == Date {
		return false
	}
	return !q.weight().IsZero()
}

// Questionnaire is the snapshot of a questionnaire the engine scores against.
// Callers must hand in the version that was live when the response was
// started, never the current one.
type Questionnaire struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Type      string     `json:"type"`
	Active    bool       `json:"active"`
	Questions []Question `json:"questions"`
}

// Answer 单题的原始答案，按题型可以是字符串、数字、布尔值或字符串列表
type Answer struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

// Range 闭区间 [Min, Max] 对应一个风险等级。Max 为空或 +Inf 表示无上限
type Range struct {
	Min         float64  `json:"min"`
	Max         *float64 `json:"max,omitempty"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
}

// upper 返回区间上限，bounded 为 false 时区间无上限
func (r Range) upper() (decimal.Decimal, bool) {
	if r.Max == nil || math.IsInf(*r.Max, 1) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(*r.Max), true
}

func (r Range) contains(score decimal.Decimal) bool {
	if score.LessThan(decimal.NewFromFloat(r.Min)) {
		return false
	}
	top, bounded := r.upper()
	return !bounded || !score.GreaterThan(top)
}

type ConditionType string

const (
	CondEquals      ConditionType = "equals"
	CondOneOf       ConditionType = "one_of"
	CondGreaterThan ConditionType = "greater_than"
	CondLessThan    ConditionType = "less_than"
	CondBetween     ConditionType = "between"
	CondAnswered    ConditionType = "answered"
	CondNotAnswered ConditionType = "not_answered"
)

// Condition 自定义规则的判断条件。Value 用于 equals、greater_than 和
// less_than；Values 是 one_of 的候选集合；Min、Max 是 between 的闭区间
type Condition struct {
	Type   ConditionType `json:"type"`
	Value  any           `json:"value,omitempty"`
	Values []any         `json:"values,omitempty"`
	Min    *float64      `json:"min,omitempty"`
	Max    *float64      `json:"max,omitempty"`
}

// AnyQuestion 作为规则目标时，规则对每道题分别生效
const AnyQuestion = "*"

type Rule struct {
	QuestionID string    `json:"questionId"`
	Condition  Condition `json:"condition"`
	Delta      float64   `json:"delta"`
}

// FlagPolicy 决定评分后的答卷是否需要人工复核
type FlagPolicy struct {
	FlagOnRiskLevels         []string `json:"flagOnRiskLevels,omitempty"`
	FlagOnScoreAtOrAbove     *float64 `json:"flagOnScoreAtOrAbove,omitempty"`
	FlagOnIncompleteRequired bool     `json:"flagOnIncompleteRequired,omitempty"`
}

type Config struct {
	Method Method  `json:"method"`
	Ranges []Range `json:"ranges"`
	// MaxScore 声明的满分，设置后非 custom 方法的最高可得分不能超过它
	MaxScore     *float64 `json:"maxScore,omitempty"`
	PassingScore *float64 `json:"passingScore,omitempty"`
	// BaseScore custom 方法的起始分
	BaseScore  *float64   `json:"baseScore,omitempty"`
	Rules      []Rule     `json:"rules,omitempty"`
	FlagPolicy FlagPolicy `json:"flagPolicy"`
	// AllowPartial 允许必答题留空，缺失的题目记入 Result.MissingRequired
	// 而不是让评分失败
	AllowPartial bool `json:"allowPartial,omitempty"`
}

type Result struct {
	Score             float64            `json:"score"`
	RiskLevel         string             `json:"riskLevel"`
	RiskDescription   string             `json:"riskDescription"`
	Flagged           bool               `json:"flagged"`
	FlagReasons       []string           `json:"flagReasons"`
	PerQuestionScores map[string]float64 `json:"perQuestionScores"`
	MissingRequired   []string           `json:"missingRequired,omitempty"`
	Passed            *bool              `json:"passed,omitempty"`
}

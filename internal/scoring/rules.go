package scoring

import (
	"strings"

	"github.com/shopspring/decimal"
)

func (c Condition) isNumeric() bool {
	return c.Type == CondGreaterThan || c.Type == CondLessThan || c.Type == CondBetween
}

func (c Condition) validate() string {
	switch c.Type {
	case CondEquals:
		if c.Value == nil {
			return "equals needs a value"
		}
		if _, ok := tokens(c.Value); !ok {
			return "equals value must be a scalar"
		}
	case CondOneOf:
		if len(c.Values) == 0 {
			return "one_of needs at least one value"
		}
		for _, v := range c.Values {
			if _, ok := tokens(v); !ok {
				return "one_of values must be scalars"
			}
		}
	case CondGreaterThan, CondLessThan:
		if _, ok := number(c.Value); !ok {
			return string(c.Type) + " needs a numeric value"
		}
	case CondBetween:
		if c.Min == nil || c.Max == nil {
			return "between needs min and max"
		}
		if !finite(*c.Min) || !finite(*c.Max) {
			return "between bounds must be finite numbers"
		}
		if *c.Min > *c.Max {
			return "between min is above max"
		}
	case CondAnswered, CondNotAnswered:
	default:
		return "unsupported condition " + string(c.Type)
	}
	return ""
}

// validateRules 按规则将要作用的问卷逐条校验
func validateRules(q Questionnaire, rules []Rule) error {
	byID := make(map[string]Question, len(q.Questions))
	for _, question := range q.Questions {
		byID[question.ID] = question
	}

	for i, r := range rules {
		if msg := r.Condition.validate(); msg != "" {
			return ruleErr(i, r.QuestionID, "%s", msg)
		}
		if !finite(r.Delta) {
			return ruleErr(i, r.QuestionID, "delta must be a finite number")
		}
		if r.QuestionID == AnyQuestion {
			continue
		}
		question, ok := byID[r.QuestionID]
		if !ok {
			return ruleErr(i, r.QuestionID, "unknown question")
		}
		if r.Condition.isNumeric() && !question.Type.IsNumeric() {
			return ruleErr(i, r.QuestionID, "%s is not supported on %s questions", r.Condition.Type, question.Type)
		}
	}
	return nil
}

// evaluateRules 把每条命中规则的 delta 累加到 base 上。
// 规则按声明顺序全部生效；通配规则对每道适用的题目分别判断
func evaluateRules(q Questionnaire, rules []Rule, base decimal.Decimal, answers map[string]any) decimal.Decimal {
	total := base
	for _, r := range rules {
		delta := decimal.NewFromFloat(r.Delta)
		for _, question := range q.Questions {
			if r.QuestionID != AnyQuestion && r.QuestionID != question.ID {
				continue
			}
			if r.Condition.isNumeric() && !question.Type.IsNumeric() {
				continue
			}
			v, answered := answers[question.ID]
			if r.Condition.matches(question, v, answered) {
				total = total.Add(delta)
			}
		}
	}
	return total
}

func (c Condition) matches(q Question, v any, answered bool) bool {
	switch c.Type {
	case CondAnswered:
		return answered
	case CondNotAnswered:
		return !answered
	}
	if !answered {
		return false
	}

	switch c.Type {
	case CondEquals:
		return c.equals(q, v, c.Value)
	case CondOneOf:
		for _, want := range c.Values {
			if c.equals(q, v, want) {
				return true
			}
		}
		return false
	}

	n, ok := numericValue(q, v)
	if !ok {
		return false
	}
	switch c.Type {
	case CondGreaterThan:
		bound, _ := number(c.Value)
		return n.GreaterThan(bound)
	case CondLessThan:
		bound, _ := number(c.Value)
		return n.LessThan(bound)
	case CondBetween:
		return !n.LessThan(decimal.NewFromFloat(*c.Min)) && !n.GreaterThan(decimal.NewFromFloat(*c.Max))
	}
	return false
}

// equals 忽略大小写比较选项值，多选题只要选中 want 即算命中
func (c Condition) equals(q Question, v, want any) bool {
	wantTokens, ok := tokens(want)
	if !ok || len(wantTokens) == 0 {
		return false
	}
	target := wantTokens[0]

	var got []string
	if q.Type == MultipleChoice {
		got, ok = selections(v)
	} else {
		got, ok = tokens(v)
	}
	if !ok {
		return false
	}
	for _, g := range got {
		if strings.EqualFold(g, target) {
			return true
		}
	}
	return false
}

// numericValue 数值条件比较的对象：评分题取原始数值，
// 量表题取数值型选项值，否则取选项分值
func numericValue(q Question, v any) (decimal.Decimal, bool) {
	if d, ok := number(v); ok {
		return d, true
	}
	if q.Type == Scale {
		if opt, ok := matchOption(q, v); ok {
			return q.contribution(opt), true
		}
	}
	return decimal.Zero, false
}

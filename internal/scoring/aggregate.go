package scoring

import (
	"github.com/shopspring/decimal"
)

// tally 逐题累计的中间结果
type tally struct {
	answers  map[string]any
	weighted map[string]decimal.Decimal
	sum      decimal.Decimal
	weights  decimal.Decimal
	count    int
	missing  []string
}

// indexAnswers 按题目索引答案并丢弃空值。
// 未知题目或同一题出现两次说明客户端与问卷结构不一致
func indexAnswers(q Questionnaire, answers []Answer) (map[string]any, error) {
	known := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		known[question.ID] = true
	}

	idx := make(map[string]any, len(answers))
	seen := make(map[string]bool, len(answers))
	for _, a := range answers {
		if !known[a.QuestionID] {
			return nil, questionErr(ErrInvalidOptionValue, a.QuestionID, "answer references unknown question")
		}
		if seen[a.QuestionID] {
			return nil, questionErr(ErrInvalidOptionValue, a.QuestionID, "more than one answer")
		}
		seen[a.QuestionID] = true
		if isBlank(a.Value) {
			continue
		}
		idx[a.QuestionID] = a.Value
	}
	return idx, nil
}

// questionScore 计算单题未加权得分，返回 nil 表示该题型不计分
func questionScore(q Question, v any) (*decimal.Decimal, error) {
	switch q.Type {
	case SingleChoice, YesNo, Scale:
		opt, ok := matchOption(q, v)
		if !ok {
			return nil, questionErr(ErrInvalidOptionValue, q.ID, "value %v matches no option", v)
		}
		s := q.contribution(opt)
		return &s, nil

	case MultipleChoice:
		picked, ok := selections(v)
		if !ok {
			return nil, questionErr(ErrInvalidOptionValue, q.ID, "value %v is not a list of option tokens", v)
		}
		s := decimal.Zero
		for _, token := range picked {
			opt, found := findOption(q, token)
			if !found {
				return nil, questionErr(ErrInvalidOptionValue, q.ID, "value %q matches no option", token)
			}
			s = s.Add(q.contribution(opt))
		}
		return &s, nil

	case Rating:
		d, ok := number(v)
		if !ok {
			return nil, questionErr(ErrInvalidOptionValue, q.ID, "rating %v is not numeric", v)
		}
		lo, hi, bounded := q.numericRange()
		if !bounded {
			return nil, questionErr(ErrInvalidQuestion, q.ID, "rating question has no numeric options")
		}
		if d.LessThan(lo) || d.GreaterThan(hi) {
			return nil, questionErr(ErrInvalidOptionValue, q.ID, "rating %s outside [%s, %s]", d, lo, hi)
		}
		if !integral(d) && q.integralRating() {
			return nil, questionErr(ErrInvalidOptionValue, q.ID, "rating %s must be a whole number", d)
		}
		return &d, nil

	case FreeText, Date:
		return nil, nil
	}
	return nil, questionErr(ErrInvalidQuestion, q.ID, "unknown question type %q", q.Type)
}

func collect(q Questionnaire, answers map[string]any, allowPartial bool) (*tally, error) {
	t := &tally{
		answers:  answers,
		weighted: make(map[string]decimal.Decimal),
		sum:      decimal.Zero,
		weights:  decimal.Zero,
	}

	for _, question := range q.Questions {
		v, answered := answers[question.ID]
		if !answered {
			if question.Required {
				if !allowPartial {
					return nil, questionErr(ErrMissingRequiredAnswer, question.ID, "")
				}
				t.missing = append(t.missing, question.ID)
			}
			continue
		}

		// 不计分的题目答案不合法同样报错
		s, err := questionScore(question, v)
		if err != nil {
			return nil, err
		}
		if s == nil || !question.scored() {
			continue
		}

		w := question.weight()
		ws := s.Mul(w)
		t.weighted[question.ID] = ws
		t.sum = t.sum.Add(ws)
		t.weights = t.weights.Add(w)
		t.count++
	}
	return t, nil
}

func (t *tally) aggregate(method Method) (decimal.Decimal, error) {
	switch method {
	case MethodSum:
		return t.sum, nil
	case MethodAverage:
		if t.count == 0 {
			return decimal.Zero, &Error{Kind: ErrNoScorableAnswers, RuleIndex: -1, Detail: "average over zero answers"}
		}
		return t.sum.Div(decimal.NewFromInt(int64(t.count))), nil
	case MethodWeightedAverage:
		if t.weights.IsZero() {
			return decimal.Zero, &Error{Kind: ErrNoScorableAnswers, RuleIndex: -1, Detail: "weighted average over zero weight"}
		}
		return t.sum.Div(t.weights), nil
	}
	return decimal.Zero, &Error{Kind: ErrUnknownMethod, RuleIndex: -1, Detail: string(method)}
}

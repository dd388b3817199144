package scoring

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingRequiredAnswer = errors.New("missing required answer")
	ErrInvalidOptionValue    = errors.New("invalid option value")
	ErrNoScorableAnswers     = errors.New("no scorable answers")
	ErrMalformedRule         = errors.New("malformed rule")
	ErrScoreUnclassifiable   = errors.New("score unclassifiable")
	ErrAmbiguousRangeConfig  = errors.New("ambiguous range config")
	ErrUnknownMethod         = errors.New("unknown scoring method")
	ErrInvalidQuestion       = errors.New("invalid question definition")
)

// Error 携带错误类别和出错的题目、规则或分数。
// Kind 是上面的哨兵错误之一，可直接用 errors.Is 判断
type Error struct {
	Kind       error
	QuestionID string
	// RuleIndex 出错规则的下标，从 0 开始，无关时为 -1
	RuleIndex int
	Score     *float64
	Detail    string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())
	if e.QuestionID != "" {
		fmt.Fprintf(&b, ": question %q", e.QuestionID)
	}
	if e.RuleIndex >= 0 {
		fmt.Fprintf(&b, ": rule %d", e.RuleIndex)
	}
	if e.Score != nil {
		fmt.Fprintf(&b, ": score %v", *e.Score)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

// IsConfigDefect 错误源于问卷或评分配置本身，而不是提交的答案
func IsConfigDefect(err error) bool {
	return errors.Is(err, ErrMalformedRule) ||
		errors.Is(err, ErrScoreUnclassifiable) ||
		errors.Is(err, ErrAmbiguousRangeConfig) ||
		errors.Is(err, ErrNoScorableAnswers) ||
		errors.Is(err, ErrUnknownMethod) ||
		errors.Is(err, ErrInvalidQuestion)
}

func questionErr(kind error, questionID, format string, args ...any) *Error {
	return &Error{Kind: kind, QuestionID: questionID, RuleIndex: -1, Detail: fmt.Sprintf(format, args...)}
}

func ruleErr(index int, questionID, format string, args ...any) *Error {
	return &Error{Kind: ErrMalformedRule, QuestionID: questionID, RuleIndex: index, Detail: fmt.Sprintf(format, args...)}
}

func scoreErr(kind error, score float64, detail string) *Error {
	return &Error{Kind: kind, RuleIndex: -1, Score: &score, Detail: detail}
}

package scoring

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func screeningQuestionnaire() Questionnaire {
	yesNo := []Option{{Label: "Yes", Value: "yes", Score: f(1)}, {Label: "No", Value: "no", Score: f(0)}}
	return Questionnaire{ID: "screen", Questions: []Question{
		{ID: "Q1", Type: YesNo, Options: yesNo},
		{ID: "Q2", Type: Rating, Options: []Option{{Label: "0", Value: "0"}, {Label: "10", Value: "10"}}},
		{ID: "Q3", Type: MultipleChoice, Options: []Option{{Label: "A", Value: "a"}, {Label: "B", Value: "b"}}},
		{ID: "Q4", Type: FreeText},
		{ID: "Q5", Type: YesNo, Options: yesNo},
	}}
}

func TestEvaluate_CustomRuleFlagsOnThreshold(t *testing.T) {
	q := screeningQuestionnaire()
	cfg := Config{
		Method:     MethodCustom,
		BaseScore:  f(0),
		Rules:      []Rule{{QuestionID: "Q5", Condition: Condition{Type: CondEquals, Value: "yes"}, Delta: 10}},
		Ranges:     []Range{{Min: 0, Max: f(9), Label: "low"}, {Min: 10, Label: "high"}},
		FlagPolicy: FlagPolicy{FlagOnScoreAtOrAbove: f(10)},
	}

	res, err := Evaluate(q, []Answer{{QuestionID: "Q5", Value: "yes"}}, cfg)
	require.NoError(t, err)

	assert.Equal(t, 10.0, res.Score)
	assert.Equal(t, "high", res.RiskLevel)
	assert.True(t, res.Flagged)
	assert.Equal(t, []string{"score_threshold"}, res.FlagReasons)
}

func TestEvaluate_CustomRulesAreCumulative(t *testing.T) {
	q := screeningQuestionnaire()
	cfg := Config{
		Method:    MethodCustom,
		BaseScore: f(1),
		Rules: []Rule{
			{QuestionID: "Q2", Condition: Condition{Type: CondGreaterThan, Value: 5}, Delta: 3},
			{QuestionID: "Q2", Condition: Condition{Type: CondBetween, Min: f(7), Max: f(8)}, Delta: 2},
			{QuestionID: "Q2", Condition: Condition{Type: CondLessThan, Value: "7"}, Delta: 100},
			{QuestionID: "Q3", Condition: Condition{Type: CondEquals, Value: "b"}, Delta: 1.5},
			{QuestionID: "Q4", Condition: Condition{Type: CondAnswered}, Delta: 0.5},
			{QuestionID: "Q1", Condition: Condition{Type: CondNotAnswered}, Delta: -1},
			{QuestionID: "Q5", Condition: Condition{Type: CondOneOf, Values: []any{"no", "maybe"}}, Delta: 4},
		},
		Ranges: []Range{{Min: -10, Label: "any"}},
	}

	res, err := Evaluate(q, []Answer{
		{QuestionID: "Q2", Value: 8},
		{QuestionID: "Q3", Value: []string{"a", "b"}},
		{QuestionID: "Q4", Value: "some notes"},
		{QuestionID: "Q5", Value: false},
	}, cfg)
	require.NoError(t, err)

	// 1 + 3 + 2 + 1.5 + 0.5 - 1 + 4
	assert.Equal(t, 11.0, res.Score)
}

func TestEvaluate_WildcardRuleAppliesPerQuestion(t *testing.T) {
	q := screeningQuestionnaire()
	cfg := Config{
		Method: MethodCustom,
		Rules: []Rule{
			{QuestionID: AnyQuestion, Condition: Condition{Type: CondEquals, Value: "yes"}, Delta: 2},
			{QuestionID: AnyQuestion, Condition: Condition{Type: CondGreaterThan, Value: 0}, Delta: 1},
		},
		Ranges: []Range{{Min: 0, Label: "any"}},
	}

	res, err := Evaluate(q, []Answer{
		{QuestionID: "Q1", Value: "yes"},
		{QuestionID: "Q2", Value: 4},
		{QuestionID: "Q5", Value: "YES"},
	}, cfg)
	require.NoError(t, err)

	// two yes answers, and greater_than only considers the rating
	assert.Equal(t, 5.0, res.Score)
}

func TestEvaluate_MalformedRules(t *testing.T) {
	q := screeningQuestionnaire()

	cases := []struct {
		name string
		rule Rule
	}{
		{"unknown question", Rule{QuestionID: "Q9", Condition: Condition{Type: CondAnswered}, Delta: 1}},
		{"numeric on yes/no", Rule{QuestionID: "Q1", Condition: Condition{Type: CondGreaterThan, Value: 1}, Delta: 1}},
		{"numeric on free text", Rule{QuestionID: "Q4", Condition: Condition{Type: CondLessThan, Value: 1}, Delta: 1}},
		{"unsupported condition", Rule{QuestionID: "Q1", Condition: Condition{Type: "regex", Value: ".*"}, Delta: 1}},
		{"equals without value", Rule{QuestionID: "Q1", Condition: Condition{Type: CondEquals}, Delta: 1}},
		{"empty one_of", Rule{QuestionID: "Q1", Condition: Condition{Type: CondOneOf}, Delta: 1}},
		{"non numeric bound", Rule{QuestionID: "Q2", Condition: Condition{Type: CondGreaterThan, Value: "high"}, Delta: 1}},
		{"inverted between", Rule{QuestionID: "Q2", Condition: Condition{Type: CondBetween, Min: f(5), Max: f(1)}, Delta: 1}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := Config{
				Method: MethodCustom,
				Rules:  []Rule{{QuestionID: "Q1", Condition: Condition{Type: CondAnswered}, Delta: 1}, c.rule},
				Ranges: []Range{{Min: 0, Label: "any"}},
			}
			res, err := Evaluate(q, nil, cfg)
			assert.Nil(t, res)
			require.ErrorIs(t, err, ErrMalformedRule)

			var scoringErr *Error
			require.True(t, errors.As(err, &scoringErr))
			assert.Equal(t, 1, scoringErr.RuleIndex)
			assert.True(t, IsConfigDefect(err))
		})
	}
}

func TestEvaluate_CustomStillValidatesAnswers(t *testing.T) {
	q := screeningQuestionnaire()
	cfg := Config{
		Method: MethodCustom,
		Rules:  []Rule{{QuestionID: "Q1", Condition: Condition{Type: CondEquals, Value: "yes"}, Delta: 1}},
		Ranges: []Range{{Min: 0, Label: "any"}},
	}

	_, err := Evaluate(q, []Answer{{QuestionID: "Q1", Value: "perhaps"}}, cfg)
	assert.ErrorIs(t, err, ErrInvalidOptionValue)
}

func TestCondition_ScaleComparesNumericToken(t *testing.T) {
	q := Question{ID: "s", Type: Scale, Options: []Option{
		{Label: "never", Value: "never", Score: f(0)},
		{Label: "often", Value: "often", Score: f(3)},
		{Label: "4", Value: "4"},
	}}

	assert.True(t, Condition{Type: CondGreaterThan, Value: 2}.matches(q, "often", true))
	assert.False(t, Condition{Type: CondGreaterThan, Value: 2}.matches(q, "never", true))
	assert.True(t, Condition{Type: CondBetween, Min: f(4), Max: f(4)}.matches(q, "4", true))
	assert.False(t, Condition{Type: CondLessThan, Value: 10}.matches(q, nil, false))
}

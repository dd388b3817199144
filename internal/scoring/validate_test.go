package scoring

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateConfig_AcceptsGAD7(t *testing.T) {
	q, cfg := gad7()
	assert.NoError(t, ValidateConfig(q, cfg))
}

func TestValidateConfig_RangeDefects(t *testing.T) {
	q, _ := gad7()

	cases := []struct {
		name   string
		ranges []Range
		kind   error
		score  float64
	}{
		{"overlap", []Range{{Min: 0, Max: f(5), Label: "a"}, {Min: 5, Label: "b"}}, ErrAmbiguousRangeConfig, 5},
		{"unbounded before another", []Range{{Min: 0, Label: "a"}, {Min: 10, Label: "b"}}, ErrAmbiguousRangeConfig, 10},
		{"gap", []Range{{Min: 0, Max: f(4), Label: "a"}, {Min: 6, Label: "b"}}, ErrScoreUnclassifiable, 5},
		{"starts too high", []Range{{Min: 1, Label: "a"}}, ErrScoreUnclassifiable, 0},
		{"ends too low", []Range{{Min: 0, Max: f(20), Label: "a"}}, ErrScoreUnclassifiable, 21},
		{"inverted", []Range{{Min: 0, Max: f(-1), Label: "a"}, {Min: 0, Label: "b"}}, ErrScoreUnclassifiable, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, cfg := gad7()
			cfg.Ranges = c.ranges

			err := ValidateConfig(q, cfg)
			require.ErrorIs(t, err, c.kind)

			var scoringErr *Error
			require.True(t, errors.As(err, &scoringErr))
			require.NotNil(t, scoringErr.Score)
			assert.Equal(t, c.score, *scoringErr.Score)
		})
	}

	_, cfg := gad7()
	cfg.Ranges = nil
	assert.ErrorIs(t, ValidateConfig(q, cfg), ErrScoreUnclassifiable)
}

func TestValidateConfig_FractionalScoresNeedFineRanges(t *testing.T) {
	q := weightedQuestionnaire()
	cfg := Config{
		Method: MethodWeightedAverage,
		Ranges: []Range{{Min: 0, Max: f(1), Label: "low"}, {Min: 2, Max: f(3), Label: "high"}},
	}

	err := ValidateConfig(q, cfg)
	require.ErrorIs(t, err, ErrScoreUnclassifiable)

	cfg.Ranges = []Range{{Min: 0, Max: f(1.4), Label: "low"}, {Min: 1.5, Max: f(3), Label: "high"}}
	assert.NoError(t, ValidateConfig(q, cfg))
}

func TestValidateConfig_QuestionDefects(t *testing.T) {
	cases := map[string]Question{
		"missing id":        {Type: FreeText},
		"wildcard id":       {ID: AnyQuestion, Type: FreeText},
		"unknown type":      {ID: "x", Type: "slider"},
		"negative weight":   {ID: "x", Type: SingleChoice, Options: scoredOptions(0, 1), Weight: f(-1)},
		"no options":        {ID: "x", Type: SingleChoice},
		"duplicate option":  {ID: "x", Type: SingleChoice, Options: []Option{{Value: "a"}, {Value: "A"}}},
		"blank option":      {ID: "x", Type: MultipleChoice, Options: []Option{{Label: "blank", Value: " "}}},
		"rating no options": {ID: "x", Type: Rating},
		"rating no numbers": {ID: "x", Type: Rating, Options: []Option{{Label: "low", Value: "low"}}},
	}
	for name, question := range cases {
		t.Run(name, func(t *testing.T) {
			q := Questionnaire{Questions: []Question{question}}
			cfg := Config{Method: MethodSum, Ranges: []Range{{Min: -100, Label: "any"}}}
			assert.ErrorIs(t, ValidateConfig(q, cfg), ErrInvalidQuestion)
		})
	}

	q := Questionnaire{Questions: []Question{{ID: "x", Type: FreeText}, {ID: "x", Type: Date}}}
	cfg := Config{Method: MethodSum, Ranges: []Range{{Min: 0, Label: "any"}}}
	assert.ErrorIs(t, ValidateConfig(q, cfg), ErrInvalidQuestion)
}

func TestValidateConfig_ChecksRulesAndMethod(t *testing.T) {
	q := screeningQuestionnaire()
	cfg := Config{
		Method: MethodCustom,
		Rules:  []Rule{{QuestionID: "Q1", Condition: Condition{Type: CondBetween, Min: f(1), Max: f(2)}, Delta: 1}},
		Ranges: []Range{{Min: 0, Label: "any"}},
	}
	assert.ErrorIs(t, ValidateConfig(q, cfg), ErrMalformedRule)

	cfg.Method = "mode"
	assert.ErrorIs(t, ValidateConfig(q, cfg), ErrUnknownMethod)
}

func TestAttainableBounds(t *testing.T) {
	q := Questionnaire{Questions: []Question{
		{ID: "a", Type: SingleChoice, Required: true, Options: scoredOptions(1, 3), Weight: f(2)},
		{ID: "b", Type: MultipleChoice, Options: scoredOptions(-1, 2, 4)},
		{ID: "c", Type: Rating, Required: true, Options: []Option{{Value: "1"}, {Value: "5"}}},
		{ID: "d", Type: FreeText, Required: true},
	}}

	lo, hi := AttainableBounds(q, Config{Method: MethodSum})
	// a: [2, 6], b optional: [-1, 6], c: [1, 5]
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 17.0, hi)

	lo, hi = AttainableBounds(q, Config{Method: MethodSum, AllowPartial: true})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 17.0, hi)

	lo, hi = AttainableBounds(q, Config{Method: MethodWeightedAverage})
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 6.0, hi)

	lo, hi = AttainableBounds(q, Config{Method: MethodCustom, BaseScore: f(2), Rules: []Rule{
		{QuestionID: AnyQuestion, Condition: Condition{Type: CondAnswered}, Delta: 1},
		{QuestionID: "a", Condition: Condition{Type: CondEquals, Value: "0"}, Delta: -5},
	}})
	assert.Equal(t, -3.0, lo)
	assert.Equal(t, 6.0, hi)
}

func ratingQuestionnaire(values ...string) Questionnaire {
	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Label: v, Value: v}
	}
	return Questionnaire{Questions: []Question{{ID: "distress", Type: Rating, Required: true, Options: opts}}}
}

// 通过校验的配置，保存时接受的评分答案在完成时一定能被分级
func TestValidateConfig_RatingAnswersStayClassifiable(t *testing.T) {
	q := ratingQuestionnaire("1", "10")
	cfg := Config{Method: MethodSum, Ranges: []Range{{Min: 1, Max: f(5), Label: "low"}, {Min: 6, Max: f(10), Label: "high"}}}
	require.NoError(t, ValidateConfig(q, cfg))

	question := q.Questions[0]
	assert.ErrorIs(t, CheckAnswer(question, "5.5"), ErrInvalidOptionValue)
	assert.ErrorIs(t, CheckAnswer(question, 5.5), ErrInvalidOptionValue)
	assert.NoError(t, CheckAnswer(question, "6"))
	assert.NoError(t, CheckAnswer(question, "5.0"))

	for v := 1; v <= 10; v++ {
		res, err := Evaluate(q, []Answer{{QuestionID: "distress", Value: v}}, cfg)
		require.NoError(t, err, "rating %d", v)
		assert.NotEmpty(t, res.RiskLevel)
	}

	// 含小数选项时按 0.1 检查空隙
	q = ratingQuestionnaire("1", "2.5", "10")
	require.ErrorIs(t, ValidateConfig(q, cfg), ErrScoreUnclassifiable)

	cfg.Ranges = []Range{{Min: 1, Max: f(5.4), Label: "low"}, {Min: 5.5, Max: f(10), Label: "high"}}
	require.NoError(t, ValidateConfig(q, cfg))
	require.NoError(t, CheckAnswer(q.Questions[0], "5.5"))
	res, err := Evaluate(q, []Answer{{QuestionID: "distress", Value: "5.5"}}, cfg)
	require.NoError(t, err)
	assert.Equal(t, "high", res.RiskLevel)
}

func TestEvaluate_RatingWithoutNumericOptions(t *testing.T) {
	q := Questionnaire{Questions: []Question{{ID: "distress", Type: Rating, Options: []Option{{Label: "low", Value: "low"}}}}}
	cfg := Config{Method: MethodSum, Ranges: []Range{{Min: 0, Label: "any"}}}

	_, err := Evaluate(q, []Answer{{QuestionID: "distress", Value: 4}}, cfg)
	assert.ErrorIs(t, err, ErrInvalidQuestion)
	assert.ErrorIs(t, CheckAnswer(q.Questions[0], 4), ErrInvalidQuestion)
}

func TestValidateConfig_MaxScore(t *testing.T) {
	q, cfg := gad7()

	cfg.MaxScore = f(21)
	assert.NoError(t, ValidateConfig(q, cfg))

	cfg.MaxScore = f(20)
	err := ValidateConfig(q, cfg)
	require.ErrorIs(t, err, ErrScoreUnclassifiable)
	var scoringErr *Error
	require.True(t, errors.As(err, &scoringErr))
	assert.Equal(t, 21.0, *scoringErr.Score)

	cfg.MaxScore = f(math.Inf(1))
	assert.NoError(t, ValidateConfig(q, cfg))

	cfg.MaxScore = f(math.NaN())
	assert.ErrorIs(t, ValidateConfig(q, cfg), ErrScoreUnclassifiable)

	// custom 的上界偏宽，不与满分比较
	custom := Config{
		Method:   MethodCustom,
		MaxScore: f(1),
		Rules:    []Rule{{QuestionID: AnyQuestion, Condition: Condition{Type: CondAnswered}, Delta: 1}},
		Ranges:   []Range{{Min: 0, Label: "any"}},
	}
	assert.NoError(t, ValidateConfig(q, custom))
}

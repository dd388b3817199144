// Package scoring turns a completed set of answers into a score, a risk
// level and a review flag.
//
// Everything here is a pure function of its arguments: no I/O, no clock,
// no package state. Concurrent evaluations need no coordination.
//
// Scores are computed in decimal and rounded once, half away from zero, to
// one decimal place before range matching.
package scoring

import (
	"github.com/shopspring/decimal"
)

// ScorePlaces 最终得分保留的小数位数
const ScorePlaces = 1

// Evaluate scores answers against the questionnaire and config snapshot the
// response was submitted under. Any failure aborts the whole evaluation;
// there is never a partial result.
func Evaluate(q Questionnaire, answers []Answer, cfg Config) (*Result, error) {
	if !cfg.Method.IsValid() {
		return nil, &Error{Kind: ErrUnknownMethod, RuleIndex: -1, Detail: string(cfg.Method)}
	}
	if err := checkNumbers(q, cfg); err != nil {
		return nil, err
	}

	idx, err := indexAnswers(q, answers)
	if err != nil {
		return nil, err
	}
	t, err := collect(q, idx, cfg.AllowPartial)
	if err != nil {
		return nil, err
	}

	var raw decimal.Decimal
	if cfg.Method == MethodCustom {
		if err := validateRules(q, cfg.Rules); err != nil {
			return nil, err
		}
		base := decimal.Zero
		if cfg.BaseScore != nil {
			base = decimal.NewFromFloat(*cfg.BaseScore)
		}
		raw = evaluateRules(q, cfg.Rules, base, idx)
	} else {
		raw, err = t.aggregate(cfg.Method)
		if err != nil {
			return nil, err
		}
	}

	score := raw.Round(ScorePlaces)
	rng, err := classify(score, cfg.Ranges)
	if err != nil {
		return nil, err
	}

	value := score.InexactFloat64()
	flagged, reasons := cfg.FlagPolicy.Decide(value, rng.Label, t.missing)

	perQuestion := make(map[string]float64, len(t.weighted))
	for id, s := range t.weighted {
		perQuestion[id] = s.InexactFloat64()
	}

	res := &Result{
		Score:             value,
		RiskLevel:         rng.Label,
		RiskDescription:   rng.Description,
		Flagged:           flagged,
		FlagReasons:       reasons,
		PerQuestionScores: perQuestion,
		MissingRequired:   t.missing,
	}
	if cfg.PassingScore != nil {
		passed := value >= *cfg.PassingScore
		res.Passed = &passed
	}
	return res, nil
}

// CheckAnswer 保存答案时校验单题答案。空值直接通过，必答题是否作答由 Evaluate 判断
func CheckAnswer(q Question, value any) error {
	if isBlank(value) {
		return nil
	}
	if err := checkQuestionNumbers(q); err != nil {
		return err
	}
	_, err := questionScore(q, value)
	return err
}

// IsBlank 答案是否视为未作答
func IsBlank(value any) bool {
	return isBlank(value)
}

package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateConfig checks a questionnaire and its scoring config before they
// are saved: question definitions, rules, and that the ranges neither
// overlap nor leave a gap anywhere in the attainable score domain.
//
// Gaps are measured against the smallest score step the config can
// produce: 1 when every attainable score is integral, 0.1 otherwise.
func ValidateConfig(q Questionnaire, cfg Config) error {
	if !cfg.Method.IsValid() {
		return &Error{Kind: ErrUnknownMethod, RuleIndex: -1, Detail: string(cfg.Method)}
	}
	if err := checkNumbers(q, cfg); err != nil {
		return err
	}
	if err := validateQuestions(q); err != nil {
		return err
	}
	if cfg.Method == MethodCustom {
		if err := validateRules(q, cfg.Rules); err != nil {
			return err
		}
	}
	return validateRanges(q, cfg)
}

func validateQuestions(q Questionnaire) error {
	ids := make(map[string]bool, len(q.Questions))
	for _, question := range q.Questions {
		if question.ID == "" || question.ID == AnyQuestion {
			return questionErr(ErrInvalidQuestion, question.ID, "question id must be set and not %q", AnyQuestion)
		}
		if ids[question.ID] {
			return questionErr(ErrInvalidQuestion, question.ID, "duplicate question id")
		}
		ids[question.ID] = true

		if !question.Type.IsValid() {
			return questionErr(ErrInvalidQuestion, question.ID, "unknown question type %q", question.Type)
		}
		if question.Weight != nil && *question.Weight < 0 {
			return questionErr(ErrInvalidQuestion, question.ID, "weight must not be negative")
		}
		if question.Type.RequiresOptions() && len(question.Options) == 0 {
			return questionErr(ErrInvalidQuestion, question.ID, "%s question needs options", question.Type)
		}
		if question.Type == Rating {
			if _, _, ok := question.numericRange(); !ok {
				return questionErr(ErrInvalidQuestion, question.ID, "rating question needs numeric options")
			}
		}

		values := make(map[string]bool, len(question.Options))
		for _, opt := range question.Options {
			key := strings.ToLower(strings.TrimSpace(opt.Value))
			if key == "" {
				return questionErr(ErrInvalidQuestion, question.ID, "option %q has no value", opt.Label)
			}
			if values[key] {
				return questionErr(ErrInvalidQuestion, question.ID, "duplicate option value %q", opt.Value)
			}
			values[key] = true
		}
	}
	return nil
}

func validateRanges(q Questionnaire, cfg Config) error {
	if len(cfg.Ranges) == 0 {
		return &Error{Kind: ErrScoreUnclassifiable, RuleIndex: -1, Detail: "no ranges configured"}
	}

	sorted := make([]Range, len(cfg.Ranges))
	copy(sorted, cfg.Ranges)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Min < sorted[j].Min })

	for _, r := range sorted {
		if top, bounded := r.upper(); bounded && top.LessThan(decimal.NewFromFloat(r.Min)) {
			return scoreErr(ErrScoreUnclassifiable, r.Min, "range "+r.Label+" has max below min")
		}
	}

	step := scoreStep(q, cfg)
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		curMin := decimal.NewFromFloat(cur.Min)
		prevMax, bounded := prev.upper()
		if !bounded || !curMin.GreaterThan(prevMax) {
			return scoreErr(ErrAmbiguousRangeConfig, cur.Min, "ranges "+prev.Label+" and "+cur.Label+" overlap")
		}
		if curMin.Sub(prevMax).GreaterThan(step) {
			return scoreErr(ErrScoreUnclassifiable, prevMax.Add(step).InexactFloat64(),
				"gap between "+prev.Label+" and "+cur.Label)
		}
	}

	lo, hi := bounds(q, cfg)
	first, last := sorted[0], sorted[len(sorted)-1]
	if decimal.NewFromFloat(first.Min).GreaterThan(lo) {
		return scoreErr(ErrScoreUnclassifiable, lo.InexactFloat64(), "lowest attainable score is below every range")
	}
	if top, bounded := last.upper(); bounded && top.LessThan(hi) {
		return scoreErr(ErrScoreUnclassifiable, hi.InexactFloat64(), "highest attainable score is above every range")
	}

	// custom 的上界假设所有规则同时触发，偏宽，不与满分比较
	if cfg.MaxScore != nil && !math.IsInf(*cfg.MaxScore, 1) && cfg.Method != MethodCustom {
		if hi.GreaterThan(decimal.NewFromFloat(*cfg.MaxScore)) {
			return scoreErr(ErrScoreUnclassifiable, hi.InexactFloat64(), "highest attainable score exceeds maxScore")
		}
	}
	return nil
}

// checkNumbers 拒绝 NaN 和 ±Inf，只有区间上限和满分允许 +Inf 表示无上限
func checkNumbers(q Questionnaire, cfg Config) error {
	for _, question := range q.Questions {
		if err := checkQuestionNumbers(question); err != nil {
			return err
		}
	}
	if err := checkRanges(cfg.Ranges); err != nil {
		return err
	}
	if cfg.Method == MethodCustom && cfg.BaseScore != nil && !finite(*cfg.BaseScore) {
		return &Error{Kind: ErrMalformedRule, RuleIndex: -1, Detail: "base score must be a finite number"}
	}
	if cfg.MaxScore != nil && !finite(*cfg.MaxScore) && !math.IsInf(*cfg.MaxScore, 1) {
		return &Error{Kind: ErrScoreUnclassifiable, RuleIndex: -1, Detail: "maxScore must be a number"}
	}
	return nil
}

func checkQuestionNumbers(question Question) error {
	if question.Weight != nil && !finite(*question.Weight) {
		return questionErr(ErrInvalidQuestion, question.ID, "weight must be a finite number")
	}
	for _, opt := range question.Options {
		if opt.Score != nil && !finite(*opt.Score) {
			return questionErr(ErrInvalidQuestion, question.ID, "option %q score must be a finite number", opt.Value)
		}
	}
	return nil
}

func checkRanges(ranges []Range) error {
	for _, r := range ranges {
		if !finite(r.Min) || (r.Max != nil && !finite(*r.Max) && !math.IsInf(*r.Max, 1)) {
			return &Error{Kind: ErrScoreUnclassifiable, RuleIndex: -1, Detail: "range " + r.Label + " has a non-finite bound"}
		}
	}
	return nil
}

// AttainableBounds 配置可能产生的分数区间 [min, max]。
// custom 方法假设每条规则都可能触发，结果可能比实际可达的范围更宽。
// 调用前配置应已通过 ValidateConfig
func AttainableBounds(q Questionnaire, cfg Config) (float64, float64) {
	lo, hi := bounds(q, cfg)
	return lo.InexactFloat64(), hi.InexactFloat64()
}

func bounds(q Questionnaire, cfg Config) (decimal.Decimal, decimal.Decimal) {
	lo, hi := decimal.Zero, decimal.Zero

	if cfg.Method == MethodCustom {
		if cfg.BaseScore != nil {
			lo = decimal.NewFromFloat(*cfg.BaseScore)
			hi = lo
		}
		for _, r := range cfg.Rules {
			n := 1
			if r.QuestionID == AnyQuestion {
				n = 0
				for _, question := range q.Questions {
					if !r.Condition.isNumeric() || question.Type.IsNumeric() {
						n++
					}
				}
			}
			d := decimal.NewFromFloat(r.Delta).Mul(decimal.NewFromInt(int64(n)))
			if d.IsNegative() {
				lo = lo.Add(d)
			} else {
				hi = hi.Add(d)
			}
		}
		return lo.Round(ScorePlaces), hi.Round(ScorePlaces)
	}

	first := true
	for _, question := range q.Questions {
		if !question.scored() {
			continue
		}
		l, h := question.span()
		w := question.weight()
		wl, wh := l.Mul(w), h.Mul(w)

		switch cfg.Method {
		case MethodSum:
			if !question.Required || cfg.AllowPartial {
				wl = decimal.Min(wl, decimal.Zero)
				wh = decimal.Max(wh, decimal.Zero)
			}
			lo, hi = lo.Add(wl), hi.Add(wh)
		case MethodAverage, MethodWeightedAverage:
			if cfg.Method == MethodWeightedAverage {
				wl, wh = l, h
			}
			if first {
				lo, hi = wl, wh
			} else {
				lo, hi = decimal.Min(lo, wl), decimal.Max(hi, wh)
			}
		}
		first = false
	}
	return lo.Round(ScorePlaces), hi.Round(ScorePlaces)
}

// span 已作答题目未加权得分的范围
func (q Question) span() (decimal.Decimal, decimal.Decimal) {
	if q.Type == Rating {
		lo, hi, ok := q.numericRange()
		if !ok {
			return decimal.Zero, decimal.Zero
		}
		return lo, hi
	}
	if len(q.Options) == 0 {
		return decimal.Zero, decimal.Zero
	}

	minC, maxC := q.contribution(q.Options[0]), q.contribution(q.Options[0])
	neg, pos := decimal.Zero, decimal.Zero
	for _, opt := range q.Options {
		c := q.contribution(opt)
		minC, maxC = decimal.Min(minC, c), decimal.Max(maxC, c)
		if c.IsNegative() {
			neg = neg.Add(c)
		} else {
			pos = pos.Add(c)
		}
	}
	if q.Type != MultipleChoice {
		return minC, maxC
	}
	lo, hi := minC, maxC
	if neg.IsNegative() {
		lo = neg
	}
	if pos.IsPositive() {
		hi = pos
	}
	return lo, hi
}

// scoreStep sum 或 custom 只会得出整数时为 1，否则为 0.1
func scoreStep(q Questionnaire, cfg Config) decimal.Decimal {
	fine := decimal.New(1, -ScorePlaces)

	switch cfg.Method {
	case MethodCustom:
		if cfg.BaseScore != nil && !integral(decimal.NewFromFloat(*cfg.BaseScore)) {
			return fine
		}
		for _, r := range cfg.Rules {
			if !integral(decimal.NewFromFloat(r.Delta)) {
				return fine
			}
		}
		return decimal.NewFromInt(1)
	case MethodSum:
		for _, question := range q.Questions {
			if !question.scored() {
				continue
			}
			if !integral(question.weight()) {
				return fine
			}
			if question.Type == Rating {
				if !question.integralRating() {
					return fine
				}
				continue
			}
			for _, opt := range question.Options {
				if !integral(question.contribution(opt)) {
					return fine
				}
			}
		}
		return decimal.NewFromInt(1)
	}
	return fine
}

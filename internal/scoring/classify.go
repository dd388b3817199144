package scoring

import "github.com/shopspring/decimal"

// Classify 返回包含 score 的唯一区间，区间两端都是闭的。
// 分数不落在任何区间或落在多个区间都属于配置缺陷，直接报错而不取默认值
func Classify(score float64, ranges []Range) (Range, error) {
	if !finite(score) {
		return Range{}, &Error{Kind: ErrScoreUnclassifiable, RuleIndex: -1, Detail: "score is not a finite number"}
	}
	if err := checkRanges(ranges); err != nil {
		return Range{}, err
	}
	return classify(decimal.NewFromFloat(score), ranges)
}

func classify(score decimal.Decimal, ranges []Range) (Range, error) {
	var (
		match Range
		found bool
	)
	for _, r := range ranges {
		if !r.contains(score) {
			continue
		}
		if found {
			return Range{}, scoreErr(ErrAmbiguousRangeConfig, score.InexactFloat64(),
				"ranges "+match.Label+" and "+r.Label+" overlap")
		}
		match, found = r, true
	}
	if !found {
		return Range{}, scoreErr(ErrScoreUnclassifiable, score.InexactFloat64(), "no range contains the score")
	}
	return match, nil
}

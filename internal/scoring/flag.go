package scoring

const (
	ReasonRiskLevel          = "risk_level"
	ReasonScoreThreshold     = "score_threshold"
	ReasonIncompleteRequired = "incomplete_required"
)

// Decide 判断答卷是否需要复核及原因，原因按固定顺序返回。
// 只有配置允许部分作答时 missingRequired 才可能非空
func (p FlagPolicy) Decide(score float64, riskLevel string, missingRequired []string) (bool, []string) {
	reasons := make([]string, 0, 3)

	for _, level := range p.FlagOnRiskLevels {
		if level == riskLevel {
			reasons = append(reasons, ReasonRiskLevel)
			break
		}
	}
	if p.FlagOnScoreAtOrAbove != nil && score >= *p.FlagOnScoreAtOrAbove {
		reasons = append(reasons, ReasonScoreThreshold)
	}
	if p.FlagOnIncompleteRequired && len(missingRequired) > 0 {
		reasons = append(reasons, ReasonIncompleteRequired)
	}
	return len(reasons) > 0, reasons
}

package design

// MaxScore is the score of a category without issues.
const MaxScore = 10

// Score deducts each group's severity weight once, regardless of how many
// locations it holds. The result never goes below zero.
func Score(groups []IssueGroup) int {
	total := 0
	for _, g := range groups {
		total += g.Severity.Weight()
	}
	return max(0, MaxScore-total)
}

// ScoreAll scores every category; missing categories score MaxScore.
func ScoreAll(issues map[Category][]IssueGroup) Scorecard {
	sc := make(Scorecard, len(Categories))
	for _, c := range Categories {
		sc[c] = Score(issues[c])
	}
	return sc
}

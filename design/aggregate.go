package design

import "fmt"

type groupKey struct {
	severity Severity
	message  string
}

// Aggregate merges findings sharing (category, severity, message) into issue
// groups. Every category is present in the result, possibly empty. Group
// order within a category follows first occurrence.
func Aggregate(findings []RawFinding) map[Category][]IssueGroup {
	out := make(map[Category][]IssueGroup, len(Categories))
	index := make(map[Category]map[groupKey]int, len(Categories))
	for _, c := range Categories {
		out[c] = []IssueGroup{}
		index[c] = make(map[groupKey]int)
	}

	for _, f := range findings {
		bucket, ok := index[f.Category]
		if !ok {
			continue
		}
		loc := Location{Element: f.Element, Location: f.Location}
		k := groupKey{severity: f.Severity, message: f.Message}
		if i, ok := bucket[k]; ok {
			g := &out[f.Category][i]
			g.Locations = append(g.Locations, loc)
			g.Count++
			continue
		}
		bucket[k] = len(out[f.Category])
		out[f.Category] = append(out[f.Category], IssueGroup{
			Category:   f.Category,
			Severity:   f.Severity,
			Message:    f.Message,
			Suggestion: f.Suggestion,
			Count:      1,
			Locations:  []Location{loc},
			Confidence: f.Confidence,
			Impact:     f.Impact,
			Related:    f.Related,
		})
	}

	for _, c := range Categories {
		for i := range out[c] {
			g := &out[c][i]
			g.Summary = fmt.Sprintf("#%d %s", g.Count, g.Severity)
		}
	}
	return out
}

// Flatten expands groups back into one finding per location, in category
// order. Aggregate(Flatten(g)) reproduces g.
func Flatten(issues map[Category][]IssueGroup) []RawFinding {
	var out []RawFinding
	for _, c := range Categories {
		for _, g := range issues[c] {
			for _, loc := range g.Locations {
				out = append(out, RawFinding{
					Category:   g.Category,
					Severity:   g.Severity,
					Message:    g.Message,
					Element:    loc.Element,
					Location:   loc.Location,
					Suggestion: g.Suggestion,
					Confidence: g.Confidence,
					Impact:     g.Impact,
					Related:    g.Related,
				})
			}
		}
	}
	return out
}

// GroupCount is the total number of issue groups across categories.
func GroupCount(issues map[Category][]IssueGroup) int {
	n := 0
	for _, gs := range issues {
		n += len(gs)
	}
	return n
}

package design

import "fmt"

// Audit runs the full engine. Rule findings are aggregated before classifier
// findings so identical inputs always produce identical reports.
func Audit(elements []ElementRecord, results []ClassificationResult) Report {
	findings := Evaluate(elements)
	findings = append(findings, Interpret(results, elements)...)

	issues := Aggregate(findings)
	return Report{
		Issues:    issues,
		Scorecard: ScoreAll(issues),
		Clusters:  ClusterFindings(ClusterItems(issues), DefaultClusterRadius),
		Summary:   fmt.Sprintf("Found %d specific issues that need attention", GroupCount(issues)),
	}
}

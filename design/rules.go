package design

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rule is one entry of the fixed heuristic catalog.
type Rule struct {
	ID         string
	Category   Category
	Severity   Severity
	Message    string
	Suggestion string
	Match      func(ElementRecord) bool
	Describe   func(ElementRecord) string
}

// minLinkText is the shortest anchor text considered descriptive.
const minLinkText = 4

// previewLen caps text previews in element descriptors.
const previewLen = 50

var rules = []Rule{
	{
		ID:         "img-alt",
		Category:   CategoryAccessibility,
		Severity:   SeverityCritical,
		Message:    "Image missing alt text",
		Suggestion: "Add descriptive alt text to improve accessibility",
		Match: func(e ElementRecord) bool {
			return e.Flags.MissingAlt && isTag(e, "img")
		},
		Describe: func(e ElementRecord) string {
			return fmt.Sprintf(`<img src="%s">`, e.Src)
		},
	},
	{
		ID:         "form-label",
		Category:   CategoryAccessibility,
		Severity:   SeverityCritical,
		Message:    "Form control missing label",
		Suggestion: "Associate a visible <label> or an aria-label with every form control",
		Match: func(e ElementRecord) bool {
			return e.Flags.MissingLabel && isTag(e, "input", "textarea")
		},
		Describe: ElementRecord.Descriptor,
	},
	{
		ID:         "table-layout",
		Category:   CategoryLayout,
		Severity:   SeverityCritical,
		Message:    "Table-based layout detected",
		Suggestion: "Replace layout tables with CSS grid or flexbox",
		Match: func(e ElementRecord) bool {
			return e.Flags.TableLayout
		},
		Describe: ElementRecord.Descriptor,
	},
	{
		ID:         "fixed-width",
		Category:   CategoryTechnical,
		Severity:   SeverityCritical,
		Message:    "Non-responsive fixed-width element detected",
		Suggestion: "Use relative units (%, rem) instead of fixed pixels",
		Match: func(e ElementRecord) bool {
			return e.Flags.NonResponsive
		},
		Describe: func(e ElementRecord) string {
			return fmt.Sprintf(`<%s style="width: %s">`, strings.ToLower(e.Tag), e.Styles.Width)
		},
	},
	{
		ID:         "small-text",
		Category:   CategoryVisual,
		Severity:   SeverityModerate,
		Message:    "Small text detected",
		Suggestion: "Increase font size to at least 12px for readability",
		Match: func(e ElementRecord) bool {
			return e.Flags.SmallText
		},
		Describe: func(e ElementRecord) string {
			if p := preview(e.Text); p != "" {
				return p
			}
			return e.Descriptor()
		},
	},
	{
		ID:         "link-text",
		Category:   CategoryUX,
		Severity:   SeverityMinor,
		Message:    "Link text too short or non-descriptive",
		Suggestion: "Use link text that describes the destination",
		Match: func(e ElementRecord) bool {
			return isTag(e, "a") && utf8.RuneCountInString(strings.TrimSpace(e.Text)) < minLinkText
		},
		Describe: func(e ElementRecord) string {
			return fmt.Sprintf(`<a href="%s">%s</a>`, e.Href, strings.TrimSpace(e.Text))
		},
	},
}

// Rules returns a copy of the heuristic catalog.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Evaluate applies every rule to every element. Each firing rule yields one
// finding carrying the element's bounding box.
func Evaluate(elements []ElementRecord) []RawFinding {
	var findings []RawFinding
	for _, el := range elements {
		for _, r := range rules {
			if !r.Match(el) {
				continue
			}
			findings = append(findings, RawFinding{
				Category:   r.Category,
				Severity:   r.Severity,
				Message:    r.Message,
				Element:    r.Describe(el),
				Location:   el.Rect,
				Suggestion: r.Suggestion,
			})
		}
	}
	return findings
}

func isTag(e ElementRecord, tags ...string) bool {
	t := strings.ToLower(e.Tag)
	for _, want := range tags {
		if t == want {
			return true
		}
	}
	return false
}

func preview(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= previewLen {
		return s
	}
	return string([]rune(s)[:previewLen])
}

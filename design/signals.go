package design

import (
	"math"
	"strings"
)

// threshold maps scores strictly below Below to Severity.
type threshold struct {
	Below    float64
	Severity Severity
}

// Signal maps a classifier keyword to a design concern.
type Signal struct {
	Keyword  string
	Topic    string
	Category Category
	Impact   string

	steps    []threshold
	fallback Severity
	related  func(ElementRecord) bool
}

// SeverityFor applies the signal's thresholds to a confidence score.
func (s Signal) SeverityFor(score float64) Severity {
	for _, t := range s.steps {
		if score < t.Below {
			return t.Severity
		}
	}
	return s.fallback
}

func newSignal(keyword, topic string, cat Category, impact string, ts []threshold, fallback Severity) Signal {
	return Signal{Keyword: keyword, Topic: topic, Category: cat, Impact: impact, steps: ts, fallback: fallback}
}

func (s Signal) withRelated(fn func(ElementRecord) bool) Signal {
	s.related = fn
	return s
}

var (
	critBelow = func(v float64) threshold { return threshold{Below: v, Severity: SeverityCritical} }
	modBelow  = func(v float64) threshold { return threshold{Below: v, Severity: SeverityModerate} }
)

// signals is scanned in order; the first finding per category wins.
var signals = []Signal{
	newSignal("text", "Typography and text content", CategoryVisual,
		"Affects readability and content consumption",
		[]threshold{critBelow(0.5), modBelow(0.7)}, SeverityMinor),
	newSignal("web", "Web interface elements", CategoryUX,
		"Affects user interaction and experience",
		[]threshold{modBelow(0.6)}, SeverityMinor),
	newSignal("screen", "Screen layout", CategoryLayout,
		"Affects overall usability and content organization",
		[]threshold{critBelow(0.5)}, SeverityModerate),
	newSignal("interface", "User interface", CategoryUX,
		"Affects user interaction patterns",
		[]threshold{modBelow(0.6)}, SeverityMinor),
	newSignal("button", "Interactive elements", CategoryUX,
		"Affects user actions and conversions",
		[]threshold{modBelow(0.7)}, SeverityMinor).
		withRelated(func(e ElementRecord) bool {
			return isTag(e, "button") || classHas(e, "btn", "button")
		}),
	newSignal("menu", "Navigation", CategoryUX,
		"Affects site navigation and user journey",
		[]threshold{critBelow(0.5)}, SeverityModerate),
	newSignal("image", "Visual content", CategoryVisual,
		"Affects visual appeal and content clarity",
		[]threshold{modBelow(0.6)}, SeverityMinor),
	newSignal("color", "Color scheme", CategoryVisual,
		"Affects brand consistency and accessibility",
		[]threshold{critBelow(0.5)}, SeverityModerate),
	newSignal("layout", "Page layout", CategoryLayout,
		"Affects content structure and readability",
		[]threshold{critBelow(0.5)}, SeverityModerate).
		withRelated(func(e ElementRecord) bool {
			return isTag(e, "header", "footer", "main", "section", "article")
		}),
	newSignal("table", "Outdated table-based layout", CategoryTechnical,
		"Severely affects maintainability and responsiveness",
		[]threshold{critBelow(0.3)}, SeverityModerate).
		withRelated(func(e ElementRecord) bool {
			return isTag(e, "table") || classHas(e, "table", "grid")
		}),
	newSignal("spacing", "Space utilization", CategoryLayout,
		"Affects content readability and visual appeal",
		[]threshold{modBelow(0.6)}, SeverityMinor),
	newSignal("mobile", "Mobile responsiveness", CategoryTechnical,
		"Affects mobile user experience",
		[]threshold{critBelow(0.5)}, SeverityModerate),
	newSignal("navigation", "Navigation structure", CategoryUX,
		"Affects user journey and site usability",
		[]threshold{critBelow(0.5)}, SeverityModerate).
		withRelated(func(e ElementRecord) bool {
			return isTag(e, "nav", "menu", "navbar") || classHas(e, "nav", "menu")
		}),
	newSignal("hierarchy", "Visual hierarchy", CategoryVisual,
		"Affects content comprehension and scanning",
		[]threshold{modBelow(0.6)}, SeverityMinor),
	newSignal("whitespace", "Space utilization", CategoryLayout,
		"Affects readability and visual appeal",
		[]threshold{modBelow(0.7)}, SeverityMinor),
	newSignal("contrast", "Color contrast", CategoryAccessibility,
		"Accessibility issues prevent some users from using the site",
		[]threshold{critBelow(0.5)}, SeverityModerate),
	newSignal("responsive", "Mobile responsiveness", CategoryTechnical,
		"Non-responsive design affects mobile users",
		[]threshold{critBelow(0.5)}, SeverityModerate),
}

// Signals returns a copy of the keyword table.
func Signals() []Signal {
	out := make([]Signal, len(signals))
	copy(out, signals)
	return out
}

// GenericSuggestion is used when no topic-specific advice exists.
const GenericSuggestion = "Consider updating this aspect following modern web design principles"

var suggestions = map[string]map[Severity]string{
	"Typography and text content": {
		SeverityCritical: "Implement consistent typography hierarchy and improve text contrast",
		SeverityModerate: "Review font sizes and line heights for better readability",
		SeverityMinor:    "Fine-tune typography for optimal reading experience",
	},
	"Navigation structure": {
		SeverityCritical: "Restructure navigation to be more intuitive and user-friendly",
		SeverityModerate: "Simplify navigation and improve menu organization",
		SeverityMinor:    "Optimize navigation labels and structure",
	},
	"Outdated table-based layout": {
		SeverityCritical: "Rebuild the page grid with CSS grid or flexbox",
		SeverityModerate: "Move remaining layout tables to CSS layout",
	},
	"Mobile responsiveness": {
		SeverityCritical: "Add a viewport meta tag and media queries for small screens",
		SeverityModerate: "Test breakpoints and replace fixed widths with fluid units",
	},
	"Color contrast": {
		SeverityCritical: "Raise text contrast to at least 4.5:1 (WCAG AA)",
		SeverityModerate: "Check secondary text and controls against WCAG AA contrast",
	},
}

// Suggest returns the advice for a topic at a severity.
func Suggest(topic string, sev Severity) string {
	if s, ok := suggestions[topic][sev]; ok {
		return s
	}
	return GenericSuggestion
}

// RelatedElements returns the elements whose text, tag or class contains the
// keyword, or that satisfy the keyword's structural predicate.
func RelatedElements(keyword string, elements []ElementRecord) []ElementRecord {
	keyword = strings.ToLower(keyword)
	var pred func(ElementRecord) bool
	for _, s := range signals {
		if s.Keyword == keyword {
			pred = s.related
			break
		}
	}
	var out []ElementRecord
	for _, e := range elements {
		if containsFold(e.Text, keyword) || containsFold(e.Tag, keyword) || containsFold(e.ClassName, keyword) ||
			(pred != nil && pred(e)) {
			out = append(out, e)
		}
	}
	return out
}

// Interpret converts classifier tags into findings, keeping only the first
// finding seen for each category.
func Interpret(results []ClassificationResult, elements []ElementRecord) []RawFinding {
	if len(results) > TopK {
		results = results[:TopK]
	}
	seen := make(map[Category]bool)
	var findings []RawFinding
	for _, res := range results {
		label := strings.ToLower(res.Label)
		for _, s := range signals {
			if !strings.Contains(label, s.Keyword) || seen[s.Category] {
				continue
			}
			seen[s.Category] = true
			findings = append(findings, signalFinding(s, res, RelatedElements(s.Keyword, elements)))
		}
	}
	return findings
}

// PageAnchor stands in for the element of a classifier finding that matched
// nothing on the page. Such findings have no location and are not clustered.
const PageAnchor = "page screenshot"

func signalFinding(s Signal, res ClassificationResult, related []ElementRecord) RawFinding {
	sev := s.SeverityFor(res.Score)
	f := RawFinding{
		Category:   s.Category,
		Severity:   sev,
		Message:    s.Topic,
		Element:    PageAnchor,
		Suggestion: Suggest(s.Topic, sev),
		Confidence: int(math.Round(res.Score * 100)),
		Impact:     s.Impact,
	}
	for i, e := range related {
		loc := Location{Element: e.Descriptor(), Location: e.Rect}
		if i == 0 {
			f.Element = loc.Element
			f.Location = loc.Location
		}
		f.Related = append(f.Related, loc)
	}
	return f
}

func containsFold(s, sub string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), sub)
}

func classHas(e ElementRecord, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(e.ClassName, sub) {
			return true
		}
	}
	return false
}

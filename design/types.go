// Package design is the audit engine: it turns element snapshots and image
// classifier tags into deduplicated, scored, spatially clustered issues.
//
// Every function here is pure. Nothing is cached between calls, so concurrent
// audits never share state.
package design

import (
	"fmt"
	"strings"
)

// Category is one of the five fixed report buckets.
type Category string

const (
	CategoryAccessibility Category = "accessibility"
	CategoryLayout        Category = "layout"
	CategoryUX            Category = "ux"
	CategoryTechnical     Category = "technical"
	CategoryVisual        Category = "visual"
)

// Categories lists every category in report order.
var Categories = []Category{
	CategoryAccessibility,
	CategoryLayout,
	CategoryUX,
	CategoryTechnical,
	CategoryVisual,
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryAccessibility, CategoryLayout, CategoryUX, CategoryTechnical, CategoryVisual:
		return true
	}
	return false
}

// ParseCategory parses a category name case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("design: invalid category: %q", s)
	}
	return c, nil
}

// Severity is the ordinal importance of a finding.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityModerate Severity = "Moderate"
	SeverityMinor    Severity = "Minor"
)

// SeverityMixed labels a cluster whose members disagree on severity.
const SeverityMixed = "mixed"

// Weight is the score penalty for one issue group of this severity.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityModerate:
		return 2
	case SeverityMinor:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is Critical, Moderate or Minor.
func (s Severity) Valid() bool { return s.Weight() > 0 }

func (s Severity) String() string { return string(s) }

// ParseSeverity parses a severity case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, nil
	case "moderate":
		return SeverityModerate, nil
	case "minor":
		return SeverityMinor, nil
	default:
		return "", fmt.Errorf("design: invalid severity: %q", s)
	}
}

// BoundingBox is an axis-aligned rectangle in page pixels.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Styles is the computed style subset captured per element. Only FontSize is
// numeric; the rest are kept verbatim.
type Styles struct {
	Color           string  `json:"color,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	FontSize        float64 `json:"fontSize,omitempty"`
	FontFamily      string  `json:"fontFamily,omitempty"`
	LineHeight      string  `json:"lineHeight,omitempty"`
	Display         string  `json:"display,omitempty"`
	Position        string  `json:"position,omitempty"`
	Padding         string  `json:"padding,omitempty"`
	Margin          string  `json:"margin,omitempty"`
	Width           string  `json:"width,omitempty"`
}

// IssueFlags are derived once at capture time and never recomputed here.
type IssueFlags struct {
	MissingAlt    bool `json:"missingAlt"`
	MissingLabel  bool `json:"missingLabel"`
	SmallText     bool `json:"smallText"`
	OutdatedHTML  bool `json:"outdatedHTML"`
	TableLayout   bool `json:"tableLayout"`
	NonResponsive bool `json:"nonResponsive"`
}

// ElementRecord is one visible DOM element snapshot. Absent fields decode to
// their zero value.
type ElementRecord struct {
	Tag       string      `json:"tagName"`
	ID        string      `json:"id,omitempty"`
	ClassName string      `json:"className,omitempty"`
	Text      string      `json:"text,omitempty"`
	Href      string      `json:"href,omitempty"`
	Src       string      `json:"src,omitempty"`
	Alt       string      `json:"alt,omitempty"`
	Role      string      `json:"role,omitempty"`
	Rect      BoundingBox `json:"rect"`
	Styles    Styles      `json:"styles"`
	Flags     IssueFlags  `json:"issues"`
}

// Descriptor renders tag#id.class, the short form used in reports.
func (e ElementRecord) Descriptor() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(e.Tag))
	if e.ID != "" {
		b.WriteString("#")
		b.WriteString(e.ID)
	}
	if e.ClassName != "" {
		b.WriteString(".")
		b.WriteString(e.ClassName)
	}
	return b.String()
}

// ClassificationResult is one label from the image classifier.
type ClassificationResult struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// TopK bounds how many classifier results are interpreted.
const TopK = 10

// Location ties a finding to the element that produced it.
type Location struct {
	Element  string      `json:"element"`
	Location BoundingBox `json:"location"`
}

// RawFinding is a single detected defect before aggregation.
type RawFinding struct {
	Category   Category    `json:"category"`
	Severity   Severity    `json:"severity"`
	Message    string      `json:"message"`
	Element    string      `json:"element"`
	Location   BoundingBox `json:"location"`
	Suggestion string      `json:"suggestion"`

	// Set only for classifier-sourced findings.
	Confidence int        `json:"confidence,omitempty"`
	Impact     string     `json:"impact,omitempty"`
	Related    []Location `json:"related,omitempty"`
}

// IssueGroup is the deduplicated unit surfaced to clients. Count always
// equals len(Locations).
type IssueGroup struct {
	Category   Category   `json:"category"`
	Severity   Severity   `json:"severity"`
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion"`
	Count      int        `json:"count"`
	Locations  []Location `json:"locations"`
	Summary    string     `json:"summary"`

	Confidence int        `json:"confidence,omitempty"`
	Impact     string     `json:"impact,omitempty"`
	Related    []Location `json:"related,omitempty"`
}

// Scorecard maps each category to a 0..10 health score.
type Scorecard map[Category]int

// Point is a position in page pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ClusterItem is one issue location fed to the clusterer.
type ClusterItem struct {
	Category Category    `json:"category"`
	Severity Severity    `json:"severity"`
	Message  string      `json:"message"`
	Element  string      `json:"element"`
	Location BoundingBox `json:"location"`
}

// Cluster is a spatial group of issue locations for overlay rendering.
// Severity is the shared member severity or SeverityMixed.
type Cluster struct {
	Center   Point         `json:"center"`
	Severity string        `json:"severity"`
	Issues   []ClusterItem `json:"issues"`
}

// Report is the engine's complete output.
type Report struct {
	Issues    map[Category][]IssueGroup `json:"issues"`
	Scorecard Scorecard                 `json:"scorecard"`
	Clusters  []Cluster                 `json:"clusters"`
	Summary   string                    `json:"summary"`
}

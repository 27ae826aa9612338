package design

import "testing"

func TestInterpret_CategoryCap(t *testing.T) {
	results := []ClassificationResult{
		{Label: "table lamp", Score: 0.2},
		{Label: "dining table, board", Score: 0.9},
	}
	got := Interpret(results, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(got), got)
	}
	f := got[0]
	if f.Category != CategoryTechnical {
		t.Errorf("category: %s", f.Category)
	}
	if f.Severity != SeverityCritical {
		t.Errorf("severity: got %s, want Critical from the first result", f.Severity)
	}
	if f.Confidence != 20 {
		t.Errorf("confidence: %d", f.Confidence)
	}
	if f.Message != "Outdated table-based layout" {
		t.Errorf("message: %q", f.Message)
	}
}

func TestInterpret_FirstMatchWinsOverSeverity(t *testing.T) {
	results := []ClassificationResult{
		{Label: "menu", Score: 0.9},
		{Label: "navigation", Score: 0.1},
	}
	got := Interpret(results, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %d: %+v", len(got), got)
	}
	if got[0].Message != "Navigation" || got[0].Severity != SeverityModerate {
		t.Fatalf("got %q/%s, want Navigation/Moderate", got[0].Message, got[0].Severity)
	}
}

func TestInterpret_CaseInsensitive(t *testing.T) {
	got := Interpret([]ClassificationResult{{Label: "Web Site", Score: 0.4}}, nil)
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %+v", got)
	}
	if got[0].Category != CategoryUX || got[0].Severity != SeverityModerate {
		t.Fatalf("got %s/%s", got[0].Category, got[0].Severity)
	}
}

func TestInterpret_NoMatch(t *testing.T) {
	got := Interpret([]ClassificationResult{{Label: "golden retriever", Score: 0.99}}, nil)
	if len(got) != 0 {
		t.Fatalf("expected no findings, got %+v", got)
	}
}

func TestInterpret_TopK(t *testing.T) {
	var results []ClassificationResult
	for i := 0; i < TopK; i++ {
		results = append(results, ClassificationResult{Label: "golden retriever", Score: 0.5})
	}
	results = append(results, ClassificationResult{Label: "web site", Score: 0.1})
	if got := Interpret(results, nil); len(got) != 0 {
		t.Fatalf("results past top-K must be ignored, got %+v", got)
	}
}

func TestInterpret_RelatedElements(t *testing.T) {
	els := []ElementRecord{
		{Tag: "nav", Rect: BoundingBox{X: 0, Y: 0, Width: 800, Height: 40}},
		{Tag: "div", ClassName: "main-menu", Rect: BoundingBox{X: 0, Y: 40}},
		{Tag: "p", Text: "Navigation help"},
		{Tag: "span", Text: "unrelated"},
	}
	got := Interpret([]ClassificationResult{{Label: "navigation bar", Score: 0.3}}, els)
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %+v", got)
	}
	f := got[0]
	if len(f.Related) != 3 {
		t.Fatalf("expected 3 related elements, got %d: %+v", len(f.Related), f.Related)
	}
	if f.Element != "nav" || f.Location != els[0].Rect {
		t.Errorf("finding anchored at %q %+v, want first related element", f.Element, f.Location)
	}
	if f.Severity != SeverityCritical {
		t.Errorf("severity: %s", f.Severity)
	}
	if f.Suggestion != "Restructure navigation to be more intuitive and user-friendly" {
		t.Errorf("suggestion: %q", f.Suggestion)
	}
}

func TestInterpret_NoRelatedElements(t *testing.T) {
	got := Interpret([]ClassificationResult{{Label: "screen", Score: 0.8}}, []ElementRecord{{Tag: "p", Text: "hello"}})
	if len(got) != 1 {
		t.Fatalf("expected 1 finding, got %+v", got)
	}
	if got[0].Element != "page screenshot" || got[0].Related != nil {
		t.Fatalf("unexpected anchor: %q %+v", got[0].Element, got[0].Related)
	}
	if got[0].Suggestion != GenericSuggestion {
		t.Fatalf("suggestion: %q", got[0].Suggestion)
	}
}

func TestRelatedElements_Structural(t *testing.T) {
	els := []ElementRecord{
		{Tag: "button"},
		{Tag: "a", ClassName: "btn primary"},
		{Tag: "header"},
		{Tag: "section"},
		{Tag: "div", ClassName: "data-grid"},
	}
	tests := []struct {
		keyword string
		want    int
	}{
		{"button", 2},
		{"layout", 2},
		{"table", 1},
		{"image", 0},
	}
	for _, tt := range tests {
		if got := RelatedElements(tt.keyword, els); len(got) != tt.want {
			t.Errorf("%s: got %d related, want %d", tt.keyword, len(got), tt.want)
		}
	}
}

func TestSignal_SeverityFor(t *testing.T) {
	var text Signal
	for _, s := range Signals() {
		if s.Keyword == "text" {
			text = s
		}
	}
	tests := []struct {
		score float64
		want  Severity
	}{
		{0.1, SeverityCritical},
		{0.49, SeverityCritical},
		{0.5, SeverityModerate},
		{0.69, SeverityModerate},
		{0.7, SeverityMinor},
		{1, SeverityMinor},
	}
	for _, tt := range tests {
		if got := text.SeverityFor(tt.score); got != tt.want {
			t.Errorf("score %.2f: got %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestSignals_Valid(t *testing.T) {
	for _, s := range Signals() {
		if !s.Category.Valid() {
			t.Errorf("%s: invalid category %q", s.Keyword, s.Category)
		}
		for _, score := range []float64{0, 0.25, 0.5, 0.75, 1} {
			if !s.SeverityFor(score).Valid() {
				t.Errorf("%s: invalid severity at %.2f", s.Keyword, score)
			}
		}
	}
}

func TestSuggest(t *testing.T) {
	if got := Suggest("Navigation structure", SeverityMinor); got != "Optimize navigation labels and structure" {
		t.Errorf("got %q", got)
	}
	if got := Suggest("Screen layout", SeverityCritical); got != GenericSuggestion {
		t.Errorf("got %q", got)
	}
	if got := Suggest("Outdated table-based layout", SeverityMinor); got != GenericSuggestion {
		t.Errorf("got %q", got)
	}
}

package capture

import (
	"strings"
	"testing"

	"github.com/hazyhaar/designaudit/design"
)

func TestFlags(t *testing.T) {
	tests := []struct {
		name string
		raw  RawElement
		want string
	}{
		{"img without alt", RawElement{Tag: "IMG", Src: "/a.png"}, "missingAlt"},
		{"unlabelled input", RawElement{Tag: "input"}, "missingLabel"},
		{"unlabelled textarea", RawElement{Tag: "textarea"}, "missingLabel"},
		{"unlabelled email input", RawElement{Tag: "input", Type: "email"}, "missingLabel"},
		{"small font", RawElement{Tag: "p", Styles: RawStyles{FontSize: "10px"}}, "smallText"},
		{"font tag", RawElement{Tag: "font"}, "outdatedHTML"},
		{"marquee tag", RawElement{Tag: "marquee"}, "outdatedHTML"},
		{"inside table", RawElement{Tag: "td", InTable: true}, "tableLayout"},
		{"wide fixed", RawElement{Tag: "div", Styles: RawStyles{Width: "1200px"}}, "nonResponsive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := flagNames(Flags(tt.raw))
			if len(got) != 1 || got[0] != tt.want {
				t.Fatalf("flags = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestFlags_Clean(t *testing.T) {
	clean := []RawElement{
		{Tag: "img", Alt: "logo"},
		{Tag: "input", Labels: 1},
		{Tag: "input", AriaLabel: "Search"},
		{Tag: "input", Type: "hidden"},
		{Tag: "input", Type: "submit"},
		{Tag: "INPUT", Type: "Reset"},
		{Tag: "input", Type: "image", Src: "/go.png"},
		{Tag: "input", Type: "button"},
		{Tag: "p", Styles: RawStyles{FontSize: "12px"}},
		{Tag: "p", Styles: RawStyles{FontSize: "normal"}},
		{Tag: "div", Styles: RawStyles{Width: "800px"}},
		{Tag: "div", Styles: RawStyles{Width: "100%"}},
		{Tag: "div", Styles: RawStyles{Width: "1200"}},
	}
	for _, r := range clean {
		if got := flagNames(Flags(r)); len(got) != 0 {
			t.Errorf("Flags(%+v) = %v, want none", r, got)
		}
	}
}

func TestRecord(t *testing.T) {
	rec := Record(RawElement{
		Tag:       "A",
		ClassName: "  nav-link ",
		Text:      "Home\n\t page",
		Href:      "/",
		Styles:    RawStyles{FontSize: "14.5px", Width: "120px", Display: "inline"},
	})
	if rec.Tag != "a" {
		t.Errorf("tag = %q, want a", rec.Tag)
	}
	if rec.ClassName != "nav-link" {
		t.Errorf("class = %q", rec.ClassName)
	}
	if rec.Text != "Home page" {
		t.Errorf("text = %q, want %q", rec.Text, "Home page")
	}
	if rec.Styles.FontSize != 14.5 {
		t.Errorf("fontSize = %v, want 14.5", rec.Styles.FontSize)
	}
	if rec.Styles.Width != "120px" || rec.Styles.Display != "inline" {
		t.Errorf("styles = %+v", rec.Styles)
	}
}

func TestRecords_Empty(t *testing.T) {
	got := Records(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("Records(nil) = %v, want empty non-nil", got)
	}
}

func TestCSSPixels(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"16px", 16, true},
		{" 1.5rem", 1.5, true},
		{"-3px", -3, true},
		{"900", 900, true},
		{"auto", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := cssPixels(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("cssPixels(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestCleanText_KeepsLiteralBrackets(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"if a<b and c>d then", "if a<b and c>d then"},
		{"x <script>y</script> z", "x <script>y</script> z"},
		{"Tom &amp; Jerry", "Tom &amp; Jerry"},
		{"  read\n\tmore  ", "read more"},
	}
	for _, tt := range tests {
		if got := cleanText(tt.in); got != tt.want {
			t.Errorf("cleanText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecord_LinkTextWithBrackets(t *testing.T) {
	rec := Record(RawElement{Tag: "A", Text: "<< click here >>", Href: "/next"})
	if rec.Text != "<< click here >>" {
		t.Fatalf("text = %q", rec.Text)
	}
}

func TestCleanText_Truncates(t *testing.T) {
	got := cleanText(strings.Repeat("é", maxTextLen+100))
	if n := len([]rune(got)); n != maxTextLen {
		t.Fatalf("len = %d runes, want %d", n, maxTextLen)
	}
}

func flagNames(f design.IssueFlags) []string {
	var out []string
	for _, x := range []struct {
		on   bool
		name string
	}{
		{f.MissingAlt, "missingAlt"},
		{f.MissingLabel, "missingLabel"},
		{f.SmallText, "smallText"},
		{f.OutdatedHTML, "outdatedHTML"},
		{f.TableLayout, "tableLayout"},
		{f.NonResponsive, "nonResponsive"},
	} {
		if x.on {
			out = append(out, x.name)
		}
	}
	return out
}

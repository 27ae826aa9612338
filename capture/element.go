package capture

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/designaudit/design"
)

// maxTextLen caps element text carried into reports.
const maxTextLen = 500

// smallTextPx is the font size below which text is flagged.
const smallTextPx = 12

// fixedWidthPx is the pixel width above which an element is non-responsive.
const fixedWidthPx = 800

var outdatedTags = map[string]bool{"font": true, "center": true, "marquee": true}

// Inputs whose value serves as their label.
var selfLabelledInputs = map[string]bool{"submit": true, "button": true, "image": true, "reset": true}

// RawElement holds the facts gathered for one element, before flags are
// derived. The browser script emits exactly this shape.
type RawElement struct {
	Tag       string             `json:"tagName"`
	ID        string             `json:"id"`
	ClassName string             `json:"className"`
	Text      string             `json:"text"`
	Href      string             `json:"href"`
	Src       string             `json:"src"`
	Alt       string             `json:"alt"`
	Type      string             `json:"type"`
	Role      string             `json:"role"`
	AriaLabel string             `json:"ariaLabel"`
	Labels    int                `json:"labels"`
	InTable   bool               `json:"inTable"`
	Rect      design.BoundingBox `json:"rect"`
	Styles    RawStyles          `json:"styles"`
}

// RawStyles is the computed style subset, all values verbatim.
type RawStyles struct {
	Color           string `json:"color"`
	BackgroundColor string `json:"backgroundColor"`
	FontSize        string `json:"fontSize"`
	FontFamily      string `json:"fontFamily"`
	LineHeight      string `json:"lineHeight"`
	Display         string `json:"display"`
	Position        string `json:"position"`
	Padding         string `json:"padding"`
	Margin          string `json:"margin"`
	Width           string `json:"width"`
}

// Flags derives the issue flags for a raw element.
func Flags(r RawElement) design.IssueFlags {
	tag := strings.ToLower(r.Tag)
	fontSize, hasFont := cssPixels(r.Styles.FontSize)
	width, hasWidth := cssPixels(r.Styles.Width)
	return design.IssueFlags{
		MissingAlt:    tag == "img" && r.Alt == "",
		MissingLabel:  needsLabel(tag, r.Type) && r.Labels == 0 && strings.TrimSpace(r.AriaLabel) == "",
		SmallText:     hasFont && fontSize < smallTextPx,
		OutdatedHTML:  outdatedTags[tag],
		TableLayout:   r.InTable,
		NonResponsive: hasWidth && strings.Contains(r.Styles.Width, "px") && width > fixedWidthPx,
	}
}

func needsLabel(tag, typ string) bool {
	switch tag {
	case "textarea":
		return true
	case "input":
		typ = strings.ToLower(strings.TrimSpace(typ))
		return typ != "hidden" && !selfLabelledInputs[typ]
	}
	return false
}

// Record converts a raw element into the engine's input shape.
func Record(r RawElement) design.ElementRecord {
	fontSize, _ := cssPixels(r.Styles.FontSize)
	return design.ElementRecord{
		Tag:       strings.ToLower(r.Tag),
		ID:        r.ID,
		ClassName: strings.TrimSpace(r.ClassName),
		Text:      cleanText(r.Text),
		Href:      r.Href,
		Src:       r.Src,
		Alt:       r.Alt,
		Role:      r.Role,
		Rect:      r.Rect,
		Styles: design.Styles{
			Color:           r.Styles.Color,
			BackgroundColor: r.Styles.BackgroundColor,
			FontSize:        fontSize,
			FontFamily:      r.Styles.FontFamily,
			LineHeight:      r.Styles.LineHeight,
			Display:         r.Styles.Display,
			Position:        r.Styles.Position,
			Padding:         r.Styles.Padding,
			Margin:          r.Styles.Margin,
			Width:           r.Styles.Width,
		},
		Flags: Flags(r),
	}
}

// Records converts a batch of raw elements.
func Records(raws []RawElement) []design.ElementRecord {
	out := make([]design.ElementRecord, 0, len(raws))
	for _, r := range raws {
		out = append(out, Record(r))
	}
	return out
}

// cssPixels parses the leading number of a CSS length, like parseFloat.
func cssPixels(v string) (float64, bool) {
	v = strings.TrimSpace(v)
	end := 0
	for end < len(v) {
		c := v[end]
		if (c >= '0' && c <= '9') || c == '.' || (end == 0 && (c == '-' || c == '+')) {
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	f, err := strconv.ParseFloat(v[:end], 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// cleanText collapses whitespace and caps the length. Input is already
// rendered text, so angle brackets and entities are kept as written.
func cleanText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) > maxTextLen {
		s = string([]rune(s)[:maxTextLen])
	}
	return s
}

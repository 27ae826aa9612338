package capture

import "github.com/hazyhaar/designaudit/design"

// marker is one outlined box drawn over the page before the screenshot.
type marker struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Label  string  `json:"label"`
}

// minMarkerPx is the box size used for elements without layout.
const minMarkerPx = 20

// markers lists one box per rule finding location, labelled with the group
// message. Classifier findings are never drawn; they do not exist yet when
// the screenshot is taken.
func markers(records []design.ElementRecord) []marker {
	issues := design.Aggregate(design.Evaluate(records))
	var out []marker
	for _, c := range design.Categories {
		for _, g := range issues[c] {
			for _, loc := range g.Locations {
				m := marker{
					X:      loc.Location.X,
					Y:      loc.Location.Y,
					Width:  loc.Location.Width,
					Height: loc.Location.Height,
					Label:  g.Message,
				}
				if m.Width <= 0 {
					m.Width = minMarkerPx
				}
				if m.Height <= 0 {
					m.Height = minMarkerPx
				}
				out = append(out, m)
			}
		}
	}
	return out
}

// annotateScript draws the markers in a single absolutely positioned layer.
const annotateScript = `(markers) => {
	const layer = document.createElement('div');
	layer.id = '__designaudit_markers';
	layer.style.cssText = 'position:absolute;top:0;left:0;pointer-events:none;z-index:2147483647';
	for (const m of markers) {
		const box = document.createElement('div');
		box.style.cssText = 'position:absolute;border:2px solid red;background:rgba(255,0,0,0.1);border-radius:3px';
		box.style.left = m.x + 'px';
		box.style.top = m.y + 'px';
		box.style.width = m.width + 'px';
		box.style.height = m.height + 'px';
		const label = document.createElement('div');
		label.textContent = m.label;
		label.style.cssText = 'position:absolute;top:-20px;left:0;background:red;color:white;padding:2px 4px;font-size:10px;border-radius:2px;white-space:nowrap';
		box.appendChild(label);
		layer.appendChild(box);
	}
	document.body.appendChild(layer);
}`

const clearAnnotationScript = `() => {
	const layer = document.getElementById('__designaudit_markers');
	if (layer) layer.remove();
}`

// Package capture renders pages and snapshots every visible element into
// design.ElementRecord values for the audit engine.
//
// Two acquisition paths exist: Browser drives headless Chrome through Rod and
// returns geometry, computed styles and a full-page screenshot; Static performs
// a single HTTP GET and parses the markup, with inline styles only and no
// screenshot.
package capture

import (
	"time"

	"github.com/hazyhaar/designaudit/design"
)

// Page is the outcome of one capture.
type Page struct {
	URL        string                 `json:"url"`
	Elements   []design.ElementRecord `json:"elements"`
	Screenshot []byte                 `json:"-"`
	CapturedAt int64                  `json:"captured_at"`
}

func newPage(url string, elements []design.ElementRecord, screenshot []byte) *Page {
	if elements == nil {
		elements = []design.ElementRecord{}
	}
	return &Page{
		URL:        url,
		Elements:   elements,
		Screenshot: screenshot,
		CapturedAt: time.Now().UnixMilli(),
	}
}

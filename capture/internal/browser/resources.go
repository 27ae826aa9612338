package browser

import (
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockResources aborts every request whose resource type is in types and
// returns the running router; the caller stops it with the tab.
func blockResources(tab *rod.Page, types []string) *rod.HijackRouter {
	blocked := newBlockSet(types)
	router := tab.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if blocked.Has(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

// BlockSet is a case-insensitive set of resource type names. Plural spellings
// (images, fonts, stylesheets) are folded to the CDP names.
type BlockSet map[string]bool

var pluralTypes = map[string]string{
	"images":      "image",
	"fonts":       "font",
	"stylesheets": "stylesheet",
	"scripts":     "script",
}

// newBlockSet builds a BlockSet from configured names.
func newBlockSet(names []string) BlockSet {
	s := make(BlockSet, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if single, ok := pluralTypes[n]; ok {
			n = single
		}
		s[n] = true
	}
	return s
}

// Has reports whether a CDP resource type is blocked.
func (s BlockSet) Has(t proto.NetworkResourceType) bool {
	return s[strings.ToLower(string(t))]
}

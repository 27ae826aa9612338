package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
)

func TestBlockSet(t *testing.T) {
	set := newBlockSet([]string{"media", "Fonts", " websocket ", "manifest", "other"})
	tests := []struct {
		resType proto.NetworkResourceType
		want    bool
	}{
		{proto.NetworkResourceTypeMedia, true},
		{proto.NetworkResourceTypeFont, true},
		{proto.NetworkResourceTypeWebSocket, true},
		{proto.NetworkResourceTypeManifest, true},
		{proto.NetworkResourceTypeOther, true},
		{proto.NetworkResourceTypeDocument, false},
		{proto.NetworkResourceTypeStylesheet, false},
		{proto.NetworkResourceTypeImage, false},
		{proto.NetworkResourceTypeScript, false},
	}
	for _, tt := range tests {
		if got := set.Has(tt.resType); got != tt.want {
			t.Errorf("Has(%q) = %v, want %v", tt.resType, got, tt.want)
		}
	}
}

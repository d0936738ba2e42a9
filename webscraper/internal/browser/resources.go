// CLAUDE:SUMMARY Request blocker for the rendered tier: fails configured resource types via Rod hijacking and counts what it dropped per type.
package browser

import (
	"maps"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// resourceKinds maps config names, singular or plural, to CDP resource types.
var resourceKinds = map[string]proto.NetworkResourceType{
	"image":       proto.NetworkResourceTypeImage,
	"images":      proto.NetworkResourceTypeImage,
	"font":        proto.NetworkResourceTypeFont,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheet":  proto.NetworkResourceTypeStylesheet,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blocker decides which requests to fail and keeps a tally per type.
type blocker struct {
	types map[proto.NetworkResourceType]bool

	mu      sync.Mutex
	blocked map[string]int
}

func newBlocker(names []string) *blocker {
	b := &blocker{
		types:   make(map[proto.NetworkResourceType]bool, len(names)),
		blocked: make(map[string]int),
	}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if t, ok := resourceKinds[n]; ok {
			b.types[t] = true
			continue
		}
		// other CDP types (script, xhr, ...) are named as CDP spells them
		for _, t := range []proto.NetworkResourceType{
			proto.NetworkResourceTypeScript, proto.NetworkResourceTypeXHR,
			proto.NetworkResourceTypeFetch, proto.NetworkResourceTypeWebSocket,
			proto.NetworkResourceTypeManifest, proto.NetworkResourceTypeOther,
		} {
			if strings.EqualFold(string(t), n) {
				b.types[t] = true
			}
		}
	}
	return b
}

// block reports whether a request of type t is failed, and counts it.
func (b *blocker) block(t proto.NetworkResourceType) bool {
	if !b.types[t] {
		return false
	}
	b.mu.Lock()
	b.blocked[strings.ToLower(string(t))]++
	b.mu.Unlock()
	return true
}

func (b *blocker) counts() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.blocked) == 0 {
		return nil
	}
	return maps.Clone(b.blocked)
}

// attach hijacks every request on page. The caller stops the router.
func (b *blocker) attach(page *rod.Page) *rod.HijackRouter {
	router := page.HijackRequests()
	router.MustAdd("*", func(h *rod.Hijack) {
		if b.block(h.Request.Type()) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			return
		}
		h.ContinueRequest(&proto.FetchContinueRequest{})
	})
	go router.Run()
	return router
}

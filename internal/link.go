package internal

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jamesprial/go-mastodon-api-wrapper/pkg/entity"
)

// ParseLinkHeader splits an RFC 8288 Link header into rel -> target URL.
func ParseLinkHeader(header string) map[string]string {
	links := make(map[string]string)
	for _, part := range splitLinks(header) {
		segments := strings.Split(part, ";")
		target := strings.TrimSpace(segments[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		target = target[1 : len(target)-1]
		for _, attr := range segments[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(attr), "=")
			if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
				continue
			}
			for _, rel := range strings.Fields(strings.Trim(strings.TrimSpace(value), `"`)) {
				if _, seen := links[rel]; !seen {
					links[rel] = target
				}
			}
		}
	}
	return links
}

// splitLinks splits on commas outside of <...>, since target URLs may contain commas.
func splitLinks(header string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(header); i++ {
		switch header[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, header[start:i])
				start = i + 1
			}
		}
	}
	if start < len(header) {
		parts = append(parts, header[start:])
	}
	return parts
}

// CursorsFromLinks derives the continuation cursors of a collection response. Each cursor
// repeats the original request with its boundary replaced: next carries max_id and drops
// since_id/min_id, prev carries since_id or min_id and drops every other boundary. A relation
// whose target carries no boundary yields no cursor.
func CursorsFromLinks(h http.Header, method, endpoint string, params map[string]any) (next, prev *entity.Cursor) {
	var links map[string]string
	for _, v := range h.Values("Link") {
		for rel, target := range ParseLinkHeader(v) {
			if links == nil {
				links = make(map[string]string)
			}
			if _, ok := links[rel]; !ok {
				links[rel] = target
			}
		}
	}
	if links == nil {
		return nil, nil
	}

	base := &entity.Cursor{Method: method, Endpoint: endpoint, Params: params}

	if target, ok := links["next"]; ok {
		if maxID, found := boundary(target, "max_id"); found {
			next = base.Clone()
			next.Params["max_id"] = entity.BoundaryParam(maxID)
			delete(next.Params, "since_id")
			delete(next.Params, "min_id")
		}
	}

	if target, ok := links["prev"]; ok {
		if sinceID, found := boundary(target, "since_id"); found {
			prev = base.Clone()
			prev.Params["since_id"] = entity.BoundaryParam(sinceID)
			delete(prev.Params, "max_id")
			delete(prev.Params, "min_id")
		} else if minID, found := boundary(target, "min_id"); found {
			prev = base.Clone()
			prev.Params["min_id"] = entity.BoundaryParam(minID)
			delete(prev.Params, "max_id")
			delete(prev.Params, "since_id")
		}
	}
	return next, prev
}

func boundary(target, key string) (string, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return "", false
	}
	v := u.Query().Get(key)
	return v, v != ""
}

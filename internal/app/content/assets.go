package content

import (
	"strings"

	"github.com/dalemusser/vlsiclub/internal/domain/models"
)

type segment struct {
	name  string
	array bool
}

func parsePath(p string) []segment {
	parts := strings.Split(p, ".")
	segs := make([]segment, 0, len(parts))
	for _, part := range parts {
		name, isArray := strings.CutSuffix(part, "[]")
		segs = append(segs, segment{name: name, array: isArray})
	}
	return segs
}

// PruneAssets removes every asset at the given paths that did not resolve
// to an object with a non-empty string url. Array elements that fail are
// dropped from the array. docs are modified in place.
func PruneAssets(docs []models.Document, paths []string) {
	if len(paths) == 0 {
		return
	}
	parsed := make([][]segment, 0, len(paths))
	for _, p := range paths {
		parsed = append(parsed, parsePath(p))
	}
	for _, d := range docs {
		for _, segs := range parsed {
			prune(d, segs)
		}
	}
}

func prune(node map[string]any, segs []segment) {
	seg := segs[0]
	v, ok := node[seg.name]
	if !ok {
		return
	}
	last := len(segs) == 1

	if seg.array {
		arr, ok := v.([]any)
		if !ok {
			delete(node, seg.name)
			return
		}
		if last {
			kept := make([]any, 0, len(arr))
			for _, el := range arr {
				if Resolved(el) {
					kept = append(kept, el)
				}
			}
			node[seg.name] = kept
			return
		}
		for _, el := range arr {
			if m := asMap(el); m != nil {
				prune(m, segs[1:])
			}
		}
		return
	}

	if last {
		if !Resolved(v) {
			delete(node, seg.name)
		}
		return
	}
	if m := asMap(v); m != nil {
		prune(m, segs[1:])
	}
}

// Resolved reports whether v is an asset object exposing a url string.
func Resolved(v any) bool {
	m := asMap(v)
	if m == nil {
		return false
	}
	u, ok := m["url"].(string)
	return ok && u != ""
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case models.Document:
		return m
	}
	return nil
}

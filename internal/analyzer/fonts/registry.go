package fonts

import (
	"strings"

	"pageaudit/internal/model"
)

// registry is an insertion-ordered map of font records keyed by family.
// Once a key exists only its weight and style sets can grow.
type registry struct {
	keys    []string
	records map[string]*model.FontRecord
}

func newRegistry() *registry {
	return &registry{records: make(map[string]*model.FontRecord)}
}

func (r *registry) get(key string) (*model.FontRecord, bool) {
	rec, ok := r.records[key]
	return rec, ok
}

// insert stores rec under key unless the key is taken. It reports whether
// rec was stored.
func (r *registry) insert(key string, rec *model.FontRecord) bool {
	if _, ok := r.records[key]; ok {
		return false
	}
	r.keys = append(r.keys, key)
	r.records[key] = rec
	return true
}

// enrich appends unseen weights and styles to an existing key.
func (r *registry) enrich(key string, weights, styles []string) bool {
	rec, ok := r.records[key]
	if !ok {
		return false
	}
	rec.Weights = appendUnique(rec.Weights, weights...)
	rec.Styles = appendUnique(rec.Styles, styles...)
	return true
}

// upsert enriches key when present and inserts rec otherwise.
func (r *registry) upsert(key string, rec *model.FontRecord) {
	if !r.enrich(key, rec.Weights, rec.Styles) {
		r.insert(key, rec)
	}
}

func (r *registry) list() []model.FontRecord {
	out := make([]model.FontRecord, 0, len(r.keys))
	for _, k := range r.keys {
		out = append(out, *r.records[k])
	}
	return out
}

func appendUnique(set []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, have := range set {
			if have == v {
				found = true
				break
			}
		}
		if !found {
			set = append(set, v)
		}
	}
	return set
}

// normalizeFamily strips one pair of wrapping quotes and whitespace.
func normalizeFamily(name string) string {
	name = strings.TrimSpace(name)
	if name != "" && (name[0] == '"' || name[0] == '\'') {
		name = name[1:]
	}
	if n := len(name); n > 0 && (name[n-1] == '"' || name[n-1] == '\'') {
		name = name[:n-1]
	}
	return strings.TrimSpace(name)
}

package dom

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Probe reads named globals of the page's window. A dotted path walks
// nested properties ("Shopify.theme.name"). Lookups never panic.
type Probe interface {
	Lookup(path string) (any, bool)
}

// MapProbe is a Probe over a captured tree of values. Keys may be plain
// names or full dotted paths; exact path keys win.
type MapProbe map[string]any

func (m MapProbe) Lookup(path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	if v, ok := m[path]; ok {
		return v, true
	}
	parts := strings.Split(path, ".")
	var cur any = map[string]any(m)
	for _, part := range parts {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[part]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// set stores value at path, creating intermediate objects. A primitive
// standing where an object is needed is replaced.
func (m MapProbe) set(path string, value any) {
	parts := strings.Split(path, ".")
	obj := map[string]any(m)
	for _, part := range parts[:len(parts)-1] {
		next, ok := obj[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			obj[part] = next
		}
		obj = next
	}
	last := parts[len(parts)-1]
	if _, exists := obj[last].(map[string]any); exists && value == true {
		return
	}
	obj[last] = value
}

var (
	windowAssign = regexp.MustCompile(`(?:^|[^\w$.])window\.([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*=[^=]`)
	declAssign   = regexp.MustCompile(`(?:^|[^\w$.])(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=[^=]`)
	funcDecl     = regexp.MustCompile(`(?:^|[^\w$.])function\s+([A-Za-z_$][\w$]*)\s*\(`)
	memberAssign = regexp.MustCompile(`(?:^|[^\w$.])([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)+)\s*=[^=]`)
)

// NewScriptProbe infers window globals of a detached document from its
// inline scripts: window.X assignments, top-level var/let/const and
// function declarations, and member assignments on names already seen.
// Values that are JSON literals are decoded, anything else reads as true.
// It is a heuristic; a live capture is authoritative.
func NewScriptProbe(doc Document) MapProbe {
	m := make(MapProbe)

	if el := doc.ByID("__NEXT_DATA__"); el != nil {
		var data any
		if err := json.Unmarshal([]byte(el.Text()), &data); err == nil {
			m.set("__NEXT_DATA__", data)
		} else {
			m.set("__NEXT_DATA__", true)
		}
	}

	for _, script := range doc.QueryAll("script:not([src])") {
		if t, _ := script.Attr("type"); !isJavaScriptType(t) {
			continue
		}
		body := script.Text()

		for _, re := range []*regexp.Regexp{windowAssign, declAssign} {
			for _, loc := range re.FindAllStringSubmatchIndex(body, -1) {
				m.set(body[loc[2]:loc[3]], literalAt(body, loc[1]-1))
			}
		}
		for _, match := range funcDecl.FindAllStringSubmatch(body, -1) {
			if _, ok := m[match[1]]; !ok {
				m.set(match[1], true)
			}
		}
		for _, loc := range memberAssign.FindAllStringSubmatchIndex(body, -1) {
			path := body[loc[2]:loc[3]]
			if strings.HasPrefix(path, "window.") {
				continue
			}
			root := path[:strings.IndexByte(path, '.')]
			if _, ok := m[root]; !ok {
				continue
			}
			m.set(path, literalAt(body, loc[1]-1))
		}
	}
	return m
}

// literalAt decodes a JSON literal starting at pos, or reports true.
func literalAt(src string, pos int) any {
	rest := strings.TrimLeft(src[pos:], " \t\r\n")
	if rest == "" {
		return true
	}
	switch rest[0] {
	case '{', '[', '"', '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		if !strings.HasPrefix(rest, "true") && !strings.HasPrefix(rest, "false") {
			return true
		}
	}
	var v any
	if err := json.NewDecoder(strings.NewReader(rest)).Decode(&v); err != nil {
		return true
	}
	return v
}

func isJavaScriptType(t string) bool {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "", "text/javascript", "application/javascript", "module", "text/ecmascript":
		return true
	}
	return false
}

// Truthy follows JavaScript truthiness for probed values.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case int:
		return t != 0
	}
	return true
}

// Package tech fingerprints the technologies a page is built with.
package tech

import (
	"sort"
	"strings"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

// Detector is one entry of the detection table. Detect returns the
// confidence of its strongest matching evidence, or 0. Variant, when set,
// names a sub-identifier (a theme, an edition) appended to the label of a
// positive result.
type Detector struct {
	Name     string
	Category string
	Icon     string
	// Globals lists the window paths Detect and Variant read, so a live
	// capture knows what to evaluate.
	Globals []string
	Detect  func(env *Env) int
	Variant func(env *Env) string
}

// Fingerprinter runs a detector table against a document.
type Fingerprinter struct {
	// Detectors overrides the built-in table when non-nil.
	Detectors []Detector
	// OnFailure is called when a detector panics. The detector scores 0.
	OnFailure func(name string, recovered any)
}

// Detect runs the built-in table with a zero Fingerprinter.
func Detect(doc dom.Document, probe dom.Probe) []model.TechSignature {
	return Fingerprinter{}.Detect(doc, probe)
}

// Detect returns every technology scoring above 0, highest confidence
// first. Ties keep table order.
func (f Fingerprinter) Detect(doc dom.Document, probe dom.Probe) []model.TechSignature {
	if doc == nil {
		panic("tech: nil document")
	}
	if probe == nil {
		probe = dom.MapProbe(nil)
	}
	table := f.Detectors
	if table == nil {
		table = detectors
	}

	env := &Env{doc: doc, probe: probe}
	results := make([]model.TechSignature, 0, 8)
	for _, d := range table {
		score := f.run(d, env)
		if score <= 0 {
			continue
		}
		if score > 100 {
			score = 100
		}
		sig := model.TechSignature{Name: d.Name, Category: d.Category, Icon: d.Icon, Confidence: score}
		if d.Variant != nil {
			if v := f.variant(d, env); v != "" {
				sig.Name = d.Name + ": " + v
			}
		}
		results = append(results, sig)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results
}

func (f Fingerprinter) run(d Detector, env *Env) (score int) {
	defer func() {
		if r := recover(); r != nil {
			score = 0
			if f.OnFailure != nil {
				f.OnFailure(d.Name, r)
			}
		}
	}()
	return d.Detect(env)
}

func (f Fingerprinter) variant(d Detector, env *Env) (v string) {
	defer func() {
		if r := recover(); r != nil {
			v = ""
		}
	}()
	return strings.TrimSpace(d.Variant(env))
}

// ProbePaths lists every window path read by the built-in table.
func ProbePaths() []string {
	seen := make(map[string]bool)
	var paths []string
	for _, d := range detectors {
		for _, p := range d.Globals {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// Env is the evidence a detector can inspect.
type Env struct {
	doc   dom.Document
	probe dom.Probe
}

// Global reports whether the window path holds a truthy value.
func (e *Env) Global(path string) bool {
	v, ok := e.probe.Lookup(path)
	return ok && dom.Truthy(v)
}

// GlobalString returns the window path's value when it is a string.
func (e *Env) GlobalString(path string) string {
	v, ok := e.probe.Lookup(path)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func (e *Env) ScriptSrcContains(pattern string) bool {
	return anyPropContains(e.doc.QueryAll("script[src]"), "src", pattern)
}

func (e *Env) LinkHrefContains(pattern string) bool {
	return anyPropContains(e.doc.QueryAll("link[href]"), "href", pattern)
}

// GeneratorContains matches meta[name=generator] case-insensitively.
func (e *Env) GeneratorContains(keyword string) bool {
	gen := e.doc.Query(`meta[name="generator"]`)
	if gen == nil {
		return false
	}
	content, _ := gen.Attr("content")
	return strings.Contains(strings.ToLower(content), strings.ToLower(keyword))
}

// Has reports whether any of the selectors matches.
func (e *Env) Has(selectors ...string) bool {
	for _, s := range selectors {
		if e.doc.Query(s) != nil {
			return true
		}
	}
	return false
}

func (e *Env) ByID(id string) bool {
	return e.doc.ByID(id) != nil
}

// AttrPrefixInFirst reports whether one of the first n elements of the
// document carries an attribute whose name starts with one of prefixes.
func (e *Env) AttrPrefixInFirst(n int, prefixes ...string) bool {
	all := e.doc.QueryAll("*")
	if len(all) > n {
		all = all[:n]
	}
	for _, el := range all {
		for _, name := range el.AttrNames() {
			for _, p := range prefixes {
				if strings.HasPrefix(name, p) {
					return true
				}
			}
		}
	}
	return false
}

// BodyHTML returns at most limit bytes of the body's inner HTML.
func (e *Env) BodyHTML(limit int) string {
	body := e.doc.Query("body")
	if body == nil {
		return ""
	}
	h := body.HTML()
	if len(h) > limit {
		h = h[:limit]
	}
	return h
}

func (e *Env) BodyClass() string {
	body := e.doc.Query("body")
	if body == nil {
		return ""
	}
	return body.Prop("className")
}

func anyPropContains(els []dom.Element, prop, pattern string) bool {
	for _, el := range els {
		if strings.Contains(el.Prop(prop), pattern) {
			return true
		}
	}
	return false
}

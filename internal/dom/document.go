// Package dom exposes the narrow document capability set the analyzers work
// against. Both a detached parsed document and a captured live page satisfy
// Document, so analyzers never need to know where the markup came from.
package dom

import "net/url"

// Element is a single DOM element.
type Element interface {
	// Tag returns the lowercase tag name.
	Tag() string
	// Attr returns the raw content attribute.
	Attr(name string) (string, bool)
	// AttrNames lists attribute names in source order.
	AttrNames() []string
	// Prop returns the DOM property view of the element: URL attributes are
	// resolved against the base URL and live-only properties such as
	// currentSrc or naturalWidth are empty unless the page was captured live.
	Prop(name string) string
	Text() string
	// HTML returns the inner HTML.
	HTML() string
	// Closest returns the element itself or its nearest ancestor matching
	// selector, or nil.
	Closest(selector string) Element
	Query(selector string) Element
	QueryAll(selector string) []Element
}

// Document is the read-only page view handed to the analyzers.
type Document interface {
	Query(selector string) Element
	QueryAll(selector string) []Element
	ByID(id string) Element
	// ComputedStyle returns the used value of a CSS property for el, or ""
	// when nothing is known.
	ComputedStyle(el Element, property string) string
	StyleSheets() []StyleSheet
	FontFaces() []FontFace
	// BaseURL is the URL relative references resolve against. May be nil.
	BaseURL() *url.URL
}

// StyleSheet is one entry of document.styleSheets. Unreadable sheets
// (cross-origin, or external sheets that were never loaded) carry no rules.
type StyleSheet struct {
	Href     string `json:"href"`
	Readable bool   `json:"readable"`
	Rules    []Rule `json:"-"`
}

// Rule is a flattened CSS rule. AtRule is the lowercase at-keyword without
// the leading "@" ("font-face", "import", ...) and empty for style rules.
type Rule struct {
	AtRule       string
	Selectors    []string
	Declarations []Declaration
}

type Declaration struct {
	Property  string
	Value     string
	Important bool
}

// Get returns the last declared value of property in r.
func (r Rule) Get(property string) string {
	value := ""
	for _, d := range r.Declarations {
		if d.Property == property {
			value = d.Value
		}
	}
	return value
}

// FontFace mirrors an entry of the document.fonts registry.
type FontFace struct {
	Family string `json:"family"`
	Weight string `json:"weight"`
	Style  string `json:"style"`
}

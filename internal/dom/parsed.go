package dom

import (
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Parsed is a detached document built from raw HTML.
type Parsed struct {
	doc    *goquery.Document
	base   *url.URL
	sheets []StyleSheet
	rules  []styleRule

	// live overlays, populated only by NewLive
	props  map[*html.Node]map[string]string
	styles map[*html.Node]map[string]string
}

type options struct {
	external  map[string]string
	sheets    []StyleSheet
	useSheets bool
	scripting bool
}

// Option configures Parse.
type Option func(*options)

// WithStyleSheet supplies the text of an external stylesheet that the
// caller was able to load (same-origin). Sheets linked from the page
// without supplied text stay unreadable.
func WithStyleSheet(href, css string) Option {
	return func(o *options) {
		if o.external == nil {
			o.external = make(map[string]string)
		}
		o.external[href] = css
	}
}

// WithStyleSheets replaces stylesheet discovery with an explicit list, as
// reported by a live browser.
func WithStyleSheets(sheets []StyleSheet) Option {
	return func(o *options) {
		o.sheets = sheets
		o.useSheets = true
	}
}

// withScripting parses the way a scripting-enabled browser does, leaving
// <noscript> content as text. Serialized live DOMs need it so their
// elements line up with what the browser reported.
func withScripting() Option {
	return func(o *options) {
		o.scripting = true
	}
}

// Parse builds a Parsed document. pageURL is the address the markup was
// served from; a <base href> in the markup takes precedence over it, the
// way a browser resolves references. Scripting is disabled by default so
// <noscript> content is parsed as elements, as DOMParser does.
func Parse(r io.Reader, pageURL string, opts ...Option) (*Parsed, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	root, err := html.ParseWithOptions(r, html.ParseOptionEnableScripting(o.scripting))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	p := &Parsed{doc: goquery.NewDocumentFromNode(root)}

	if pageURL != "" {
		if u, err := url.Parse(pageURL); err == nil {
			p.base = u
		}
	}
	if href, ok := p.doc.Find("base[href]").First().Attr("href"); ok {
		if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
			if p.base != nil {
				u = p.base.ResolveReference(u)
			}
			if u.IsAbs() {
				p.base = u
			}
		}
	}

	if o.useSheets {
		p.sheets = o.sheets
	} else {
		p.sheets = p.discoverSheets(o.external)
	}
	p.rules = compileRules(p.sheets)

	return p, nil
}

// ParseString is Parse over an in-memory string.
func ParseString(markup, pageURL string, opts ...Option) (*Parsed, error) {
	return Parse(strings.NewReader(markup), pageURL, opts...)
}

// discoverSheets walks <style> and <link rel=stylesheet> in document order.
func (p *Parsed) discoverSheets(external map[string]string) []StyleSheet {
	var sheets []StyleSheet
	p.doc.Find(`style, link[rel~="stylesheet"]`).Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "style" {
			sheets = append(sheets, StyleSheet{Readable: true, Rules: ParseCSS(s.Text())})
			return
		}
		raw, _ := s.Attr("href")
		href := p.Resolve(raw)
		if css, ok := external[href]; ok {
			sheets = append(sheets, StyleSheet{Href: href, Readable: true, Rules: ParseCSS(css)})
			return
		}
		sheets = append(sheets, StyleSheet{Href: href})
	})
	return sheets
}

// LinkedStyleSheets returns the resolved hrefs of external stylesheets that
// share the page's origin. Collaborators use it to decide what to load.
func (p *Parsed) LinkedStyleSheets() []string {
	var hrefs []string
	for _, sheet := range p.sheets {
		if sheet.Readable || sheet.Href == "" || p.base == nil {
			continue
		}
		u, err := url.Parse(sheet.Href)
		if err != nil {
			continue
		}
		if strings.EqualFold(u.Scheme, p.base.Scheme) && strings.EqualFold(u.Host, p.base.Host) {
			hrefs = append(hrefs, sheet.Href)
		}
	}
	return hrefs
}

// Resolve turns a raw URL attribute into an absolute URL string.
func (p *Parsed) Resolve(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || p.base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return p.base.ResolveReference(ref).String()
}

// HTML renders the whole document.
func (p *Parsed) HTML() string {
	out, err := goquery.OuterHtml(p.doc.Selection)
	if err != nil {
		return ""
	}
	return out
}

func (p *Parsed) Query(selector string) Element {
	return p.wrapFirst(p.doc.Find(selector))
}

func (p *Parsed) QueryAll(selector string) []Element {
	return p.wrapAll(p.doc.Find(selector))
}

func (p *Parsed) ByID(id string) Element {
	return p.Query(`[id="` + strings.ReplaceAll(id, `"`, `\"`) + `"]`)
}

func (p *Parsed) StyleSheets() []StyleSheet {
	return p.sheets
}

// FontFaces is always empty for a detached document: nothing registers
// fonts without a rendering engine.
func (p *Parsed) FontFaces() []FontFace {
	return nil
}

func (p *Parsed) BaseURL() *url.URL {
	return p.base
}

func (p *Parsed) wrapFirst(s *goquery.Selection) Element {
	if s.Length() == 0 {
		return nil
	}
	return &element{sel: s.First(), doc: p}
}

func (p *Parsed) wrapAll(s *goquery.Selection) []Element {
	out := make([]Element, 0, s.Length())
	s.Each(func(_ int, item *goquery.Selection) {
		out = append(out, &element{sel: item, doc: p})
	})
	return out
}

// element adapts a single-node goquery selection.
type element struct {
	sel *goquery.Selection
	doc *Parsed
}

func (e *element) node() *html.Node {
	return e.sel.Get(0)
}

func (e *element) Tag() string {
	return goquery.NodeName(e.sel)
}

func (e *element) Attr(name string) (string, bool) {
	return e.sel.Attr(name)
}

func (e *element) AttrNames() []string {
	n := e.node()
	names := make([]string, 0, len(n.Attr))
	for _, a := range n.Attr {
		names = append(names, a.Key)
	}
	return names
}

func (e *element) Prop(name string) string {
	if overlay, ok := e.doc.props[e.node()]; ok {
		if v, ok := overlay[name]; ok {
			return v
		}
	}

	switch name {
	case "src", "data-src", "href", "action", "poster":
		raw, ok := e.sel.Attr(name)
		if !ok {
			return ""
		}
		return e.doc.Resolve(raw)
	case "width", "height":
		raw, _ := e.sel.Attr(name)
		return strconv.Itoa(parseDimension(raw))
	case "className":
		v, _ := e.sel.Attr("class")
		return v
	case "currentSrc", "naturalWidth", "naturalHeight":
		return ""
	default:
		v, _ := e.sel.Attr(name)
		return v
	}
}

func (e *element) Text() string {
	return e.sel.Text()
}

func (e *element) HTML() string {
	out, err := e.sel.Html()
	if err != nil {
		return ""
	}
	return out
}

func (e *element) Closest(selector string) Element {
	return e.doc.wrapFirst(e.sel.Closest(selector))
}

func (e *element) Query(selector string) Element {
	return e.doc.wrapFirst(e.sel.Find(selector))
}

func (e *element) QueryAll(selector string) []Element {
	return e.doc.wrapAll(e.sel.Find(selector))
}

// parseDimension reads a width/height attribute the lenient way browsers
// do: leading digits only, anything else is 0.
func parseDimension(raw string) int {
	raw = strings.TrimSpace(raw)
	end := 0
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(raw[:end])
	if err != nil {
		return 0
	}
	return n
}

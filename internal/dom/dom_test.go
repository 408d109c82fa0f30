package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, markup, pageURL string, opts ...Option) *Parsed {
	t.Helper()
	p, err := ParseString(markup, pageURL, opts...)
	require.NoError(t, err)
	return p
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		pageURL string
		want    string
	}{
		{"PageURL", `<img src="img/a.png">`, "https://example.com/blog/post", "https://example.com/blog/img/a.png"},
		{"BaseHref", `<head><base href="https://cdn.example.net/assets/"></head><img src="a.png">`, "https://example.com/", "https://cdn.example.net/assets/a.png"},
		{"RelativeBase", `<head><base href="/static/"></head><img src="a.png">`, "https://example.com/x/y", "https://example.com/static/a.png"},
		{"NoBase", `<img src="a.png">`, "", "a.png"},
		{"Absolute", `<img src="https://other.example.org/a.png">`, "https://example.com/", "https://other.example.org/a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustParse(t, tt.markup, tt.pageURL)
			img := p.Query("img")
			require.NotNil(t, img)
			assert.Equal(t, tt.want, img.Prop("src"))
		})
	}
}

func TestElementProps(t *testing.T) {
	p := mustParse(t, `<div class="hero wide"><img id="i" src="/a.png" width="120px" height="abc" data-src="/lazy.png"></div>`, "https://example.com/")

	img := p.ByID("i")
	require.NotNil(t, img)
	assert.Equal(t, "img", img.Tag())
	assert.Equal(t, "120", img.Prop("width"))
	assert.Equal(t, "0", img.Prop("height"))
	assert.Equal(t, "https://example.com/lazy.png", img.Prop("data-src"))
	assert.Empty(t, img.Prop("currentSrc"), "live-only properties are empty for parsed documents")
	assert.Equal(t, []string{"id", "src", "width", "height", "data-src"}, img.AttrNames())

	div := img.Closest("div")
	require.NotNil(t, div)
	assert.Equal(t, "hero wide", div.Prop("className"))
	assert.Nil(t, img.Closest("picture"))
	assert.Nil(t, p.Query("video"))
}

func TestNoscriptIsParsedAsElements(t *testing.T) {
	p := mustParse(t, `<body><noscript><img src="/pixel.gif"></noscript></body>`, "https://example.com/")
	assert.Len(t, p.QueryAll("img"), 1)
}

func TestStyleSheetDiscovery(t *testing.T) {
	markup := `<head>
<link rel="stylesheet" href="/theme.css">
<link rel="stylesheet" href="https://fonts.googleapis.com/css2?family=Inter">
<style>body { color: red }</style>
</head><body><h1>Theme</h1></body>`

	p := mustParse(t, markup, "https://example.com/page")
	sheets := p.StyleSheets()
	require.Len(t, sheets, 3)
	assert.False(t, sheets[0].Readable)
	assert.True(t, sheets[2].Readable)
	assert.Equal(t, []string{"https://example.com/theme.css"}, p.LinkedStyleSheets(), "only same-origin sheets are offered for loading")

	loaded := mustParse(t, markup, "https://example.com/page", WithStyleSheet("https://example.com/theme.css", "h1 { font-weight: bold }"))
	assert.True(t, loaded.StyleSheets()[0].Readable)
	assert.Empty(t, loaded.LinkedStyleSheets())
	assert.Equal(t, "700", loaded.ComputedStyle(loaded.Query("h1"), "font-weight"))
}

func TestComputedStyleCascade(t *testing.T) {
	markup := `<head><style>
body { font-family: "Open Sans", sans-serif; font-weight: 300 }
p { font-family: Georgia, serif }
.lead { font-family: Lato }
#intro { font-family: Roboto }
p.loud { font-weight: 900 !important }
#intro.loud { font-weight: 200 }
h1 { font: italic bold 2em/1.2 Montserrat, sans-serif }
div { margin: 0 }
</style></head>
<body>
  <h1>Title</h1>
  <p>Plain</p>
  <p class="lead">Lead</p>
  <p id="intro" class="lead loud">Intro</p>
  <p class="lead" style="font-family: Inline">Styled</p>
  <div><span>Nested</span></div>
</body>`
	p := mustParse(t, markup, "https://example.com/")
	ps := p.QueryAll("p")
	require.Len(t, ps, 4)

	tests := []struct {
		name     string
		el       Element
		property string
		want     string
	}{
		{"TypeSelector", ps[0], "font-family", "Georgia, serif"},
		{"ClassBeatsType", ps[1], "font-family", "Lato"},
		{"IDBeatsClass", ps[2], "font-family", "Roboto"},
		{"ImportantBeatsSpecificity", ps[2], "font-weight", "900"},
		{"InlineBeatsSheets", ps[3], "font-family", "Inline"},
		{"InheritedFromBody", p.Query("span"), "font-family", `"Open Sans", sans-serif`},
		{"InheritedWeight", ps[0], "font-weight", "300"},
		{"ShorthandFamily", p.Query("h1"), "font-family", "Montserrat, sans-serif"},
		{"ShorthandWeight", p.Query("h1"), "font-weight", "700"},
		{"ShorthandStyle", p.Query("h1"), "font-style", "italic"},
		{"NotInherited", p.Query("span"), "margin", ""},
		{"Unknown", ps[0], "font-variant", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.el)
			assert.Equal(t, tt.want, p.ComputedStyle(tt.el, tt.property))
		})
	}
}

func TestParseCSSIsolatesRules(t *testing.T) {
	const fontFace = `@font-face{font-family:"Foo";src:url(/a.woff2)}`
	tests := []struct {
		name   string
		prefix string
	}{
		{"Layer block", `@layer base { h1 { font-weight: 700 } }`},
		{"Layer statement", `@layer reset, base;`},
		{"Container", `@container card (min-width: 400px) { .title { font-size: 2rem } }`},
		{"Nested rule", `.a { color: red; &:hover { color: blue } }`},
		{"Media", `@media (min-width: 600px) { h1 { font-size: 3rem } }`},
		{"Keyframes", `@keyframes spin { from { transform: rotate(0) } to { transform: rotate(360deg) } }`},
		{"Import", `@import url("/reset.css");`},
		{"Stray brace", `} h1 { color: red }`},
		{"Braces in strings and comments", `/* { */ .q::before { content: "}" }`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var faces []Rule
			for _, r := range ParseCSS(tt.prefix + "\n" + fontFace) {
				if r.AtRule == "font-face" {
					faces = append(faces, r)
				}
			}
			require.Len(t, faces, 1)
			assert.Equal(t, `"Foo"`, faces[0].Get("font-family"))
		})
	}
}

func TestParseCSSHoistsLayerAndContainerRules(t *testing.T) {
	p := mustParse(t, `<head><style>
@layer base {
  h1 { font-family: Lato }
  @media (min-width: 1px) { h2 { font-family: Merriweather } }
}
@container sidebar (min-width: 200px) { p { font-family: Roboto } }
</style></head><body><h1>a</h1><h2>b</h2><p>c</p></body>`, "https://example.com/")

	assert.Equal(t, "Lato", p.ComputedStyle(p.Query("h1"), "font-family"))
	assert.Equal(t, "Merriweather", p.ComputedStyle(p.Query("h2"), "font-family"))
	assert.Equal(t, "Roboto", p.ComputedStyle(p.Query("p"), "font-family"))
}

func TestComputedStyleCustomProperties(t *testing.T) {
	p := mustParse(t, `<head><style>
:root { --font-inter: "Inter"; --stack: var(--font-inter), system-ui; }
body { font-family: var(--font-inter), sans-serif; font-weight: 300; font-style: italic }
.card { --font-inter: Lato }
.card h2 { font-family: var(--font-inter) }
h3 { font-family: var(--missing, Georgia) }
h4 { font-family: var(--missing) }
.stack { font-family: var(--stack) }
p { font-weight: inherit; font-style: initial }
em { font-family: initial }
.loop { --a: var(--b); --b: var(--a); font-family: var(--a) }
</style></head>
<body>
  <div class="card"><h2>Card</h2></div>
  <h3>Fallback</h3>
  <h4>Missing</h4>
  <div class="stack">Stack</div>
  <p>Para <em>em</em></p>
  <div class="loop">Loop</div>
</body>`, "https://example.com/")

	tests := []struct {
		name     string
		selector string
		property string
		want     string
	}{
		{"RootVariable", "body", "font-family", `"Inter", sans-serif`},
		{"NearestDefinitionWins", ".card h2", "font-family", "Lato"},
		{"Fallback", "h3", "font-family", "Georgia"},
		{"MissingActsAsUnset", "h4", "font-family", `"Inter", sans-serif`},
		{"NestedVariable", ".stack", "font-family", `"Inter", system-ui`},
		{"Inherit", "p", "font-weight", "300"},
		{"Initial", "p", "font-style", ""},
		{"InitialStopsInheritance", "em", "font-family", ""},
		{"CycleActsAsUnset", ".loop", "font-family", `"Inter", sans-serif`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el := p.Query(tt.selector)
			require.NotNil(t, el)
			assert.Equal(t, tt.want, p.ComputedStyle(el, tt.property))
		})
	}
}

func TestComputedStyleForeignElement(t *testing.T) {
	a := mustParse(t, `<p style="color: red">x</p>`, "")
	b := mustParse(t, `<p>y</p>`, "")
	assert.Empty(t, b.ComputedStyle(a.Query("p"), "color"))
	assert.Empty(t, b.ComputedStyle(nil, "color"))
}

func TestExpandFont(t *testing.T) {
	tests := []struct {
		value, property string
		want            string
		ok              bool
	}{
		{"16px Inter", "font-family", "Inter", true},
		{"16px Inter", "font-weight", "normal", true},
		{"600 1rem/1.5 system-ui, sans-serif", "font-weight", "600", true},
		{"oblique small-caps 12pt Georgia", "font-style", "oblique", true},
		{"inherit", "font-family", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.value+"/"+tt.property, func(t *testing.T) {
			got, ok := expandFont(tt.value, tt.property)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLive(t *testing.T) {
	snap := &Snapshot{
		URL:  "https://shop.example.com/",
		HTML: `<html><body><h1>Hi</h1><img src="/a.jpg"><img src="/b.jpg"></body></html>`,
		Images: []ImageState{
			{Src: "https://shop.example.com/a.jpg", CurrentSrc: "https://shop.example.com/a-800.avif", NaturalWidth: 800, NaturalHeight: 600},
		},
		Styles: map[string]map[string]string{
			"h1": {"Font-Family": "Poppins, sans-serif"},
		},
		FontFaces: []FontFace{{Family: "Poppins", Weight: "700", Style: "normal"}},
		StyleSheets: []SheetText{
			{Href: "https://cdn.example.net/x.css", Readable: false},
			{Href: "https://shop.example.com/site.css", CSS: "img { font-family: Serifa }", Readable: true},
		},
		Globals: map[string]any{"Shopify": map[string]any{"theme": map[string]any{"name": "Dawn"}}},
	}

	live, err := NewLive(snap)
	require.NoError(t, err)

	imgs := live.QueryAll("img")
	require.Len(t, imgs, 2)
	assert.Equal(t, "https://shop.example.com/a-800.avif", imgs[0].Prop("currentSrc"))
	assert.Equal(t, "800", imgs[0].Prop("naturalWidth"))
	assert.Empty(t, imgs[1].Prop("currentSrc"), "images beyond the snapshot keep parsed properties")
	assert.Equal(t, "https://shop.example.com/b.jpg", imgs[1].Prop("src"))

	assert.Equal(t, "Poppins, sans-serif", live.ComputedStyle(live.Query("h1"), "font-family"))
	assert.Equal(t, "Serifa", live.ComputedStyle(imgs[0], "font-family"))
	assert.Equal(t, snap.FontFaces, live.FontFaces())
	require.Len(t, live.StyleSheets(), 2)
	assert.False(t, live.StyleSheets()[0].Readable)

	name, ok := live.Probe().Lookup("Shopify.theme.name")
	assert.True(t, ok)
	assert.Equal(t, "Dawn", name)
}

func TestNewLiveKeepsNoscriptAsText(t *testing.T) {
	markup := `<html><head><noscript><img src="https://www.facebook.com/tr?id=1"></noscript></head><body>
<noscript><p>Enable JavaScript</p><img src="/fallback.png"></noscript>
<p>Real copy</p>
<img src="https://cdn.example.com/i/123">
</body></html>`
	snap := &Snapshot{
		URL:  "https://shop.example.com/",
		HTML: markup,
		Images: []ImageState{
			{Src: "https://cdn.example.com/i/123", CurrentSrc: "https://cdn.example.com/i/123.webp", NaturalWidth: 640, NaturalHeight: 480},
		},
		Styles: map[string]map[string]string{
			"p": {"font-family": "Inter"},
		},
	}

	live, err := NewLive(snap)
	require.NoError(t, err)

	imgs := live.QueryAll("img")
	require.Len(t, imgs, 1, "noscript content is text in a scripting browser")
	assert.Equal(t, "https://cdn.example.com/i/123.webp", imgs[0].Prop("currentSrc"))
	assert.Equal(t, "640", imgs[0].Prop("naturalWidth"))

	ps := live.QueryAll("p")
	require.Len(t, ps, 1)
	assert.Equal(t, "Real copy", ps[0].Text())
	assert.Equal(t, "Inter", live.ComputedStyle(ps[0], "font-family"))

	parsed := mustParse(t, snap.HTML, snap.URL)
	assert.Len(t, parsed.QueryAll("img"), 3, "detached documents still parse noscript content")
}

func TestMapProbeLookup(t *testing.T) {
	m := MapProbe{
		"React.version": "18.2.0",
		"Shopify":       map[string]any{"shop": "x.myshopify.com"},
		"flag":          true,
	}

	v, ok := m.Lookup("React.version")
	assert.True(t, ok, "exact dotted keys win")
	assert.Equal(t, "18.2.0", v)

	v, ok = m.Lookup("Shopify.shop")
	assert.True(t, ok)
	assert.Equal(t, "x.myshopify.com", v)

	_, ok = m.Lookup("flag.nested")
	assert.False(t, ok)
	_, ok = m.Lookup("")
	assert.False(t, ok)
	_, ok = MapProbe(nil).Lookup("anything")
	assert.False(t, ok)
}

func TestNewScriptProbe(t *testing.T) {
	markup := `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"page":"/","buildId":"abc"}</script>
<script>
  window.Shopify = {"shop": "demo.myshopify.com"};
  Shopify.theme = {"name": "Dawn", "id": 1};
  var dataLayer = [];
  function gtag(){dataLayer.push(arguments);}
  window.jQuery = makeJQuery();
  unknownRoot.prop = 1;
</script>
<script type="application/ld+json">{"@type":"Thing"}</script>
<script type="text/template">window.Template = 1;</script>
</body></html>`

	probe := NewScriptProbe(mustParse(t, markup, "https://example.com/"))

	tests := []struct {
		path   string
		want   any
		exists bool
	}{
		{"Shopify.shop", "demo.myshopify.com", true},
		{"Shopify.theme.name", "Dawn", true},
		{"gtag", true, true},
		{"jQuery", true, true},
		{"__NEXT_DATA__.buildId", "abc", true},
		{"unknownRoot", nil, false},
		{"Template", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := probe.Lookup(tt.path)
			assert.Equal(t, tt.exists, ok)
			if tt.exists {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestTruthy(t *testing.T) {
	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(""))
	assert.False(t, Truthy(float64(0)))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy("x"))
	assert.True(t, Truthy(float64(2)))
	assert.True(t, Truthy(map[string]any{}))
}

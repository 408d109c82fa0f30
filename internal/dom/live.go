package dom

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// Snapshot is everything a browser capture reports about a rendered page.
// The field names follow the JSON produced by the capture script.
type Snapshot struct {
	URL         string                       `json:"url"`
	HTML        string                       `json:"html"`
	Images      []ImageState                 `json:"images"`
	Styles      map[string]map[string]string `json:"styles"`
	FontFaces   []FontFace                   `json:"fontFaces"`
	StyleSheets []SheetText                  `json:"styleSheets"`
	Globals     map[string]any               `json:"globals"`
}

// ImageState carries the rendered properties of an <img>, in document order.
type ImageState struct {
	Src           string `json:"src"`
	CurrentSrc    string `json:"currentSrc"`
	NaturalWidth  int    `json:"naturalWidth"`
	NaturalHeight int    `json:"naturalHeight"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
}

// SheetText is one document.styleSheets entry. CSS is empty when the sheet
// was cross-origin and its rules could not be read.
type SheetText struct {
	Href     string `json:"href"`
	CSS      string `json:"css"`
	Readable bool   `json:"readable"`
}

// Live is a captured rendered page: the serialized DOM plus the runtime
// state a detached parse cannot see.
type Live struct {
	*Parsed
	faces []FontFace
	probe MapProbe
}

// NewLive builds a Live document from a browser snapshot.
func NewLive(s *Snapshot) (*Live, error) {
	sheets := make([]StyleSheet, 0, len(s.StyleSheets))
	for _, st := range s.StyleSheets {
		sheet := StyleSheet{Href: st.Href, Readable: st.Readable}
		if st.Readable {
			sheet.Rules = ParseCSS(st.CSS)
		}
		sheets = append(sheets, sheet)
	}

	p, err := ParseString(s.HTML, s.URL, WithStyleSheets(sheets), withScripting())
	if err != nil {
		return nil, err
	}

	p.props = make(map[*html.Node]map[string]string)
	for i, el := range p.QueryAll("img") {
		if i >= len(s.Images) {
			break
		}
		img := s.Images[i]
		p.props[el.(*element).node()] = map[string]string{
			"src":           img.Src,
			"currentSrc":    img.CurrentSrc,
			"naturalWidth":  strconv.Itoa(img.NaturalWidth),
			"naturalHeight": strconv.Itoa(img.NaturalHeight),
			"width":         strconv.Itoa(img.Width),
			"height":        strconv.Itoa(img.Height),
		}
	}

	p.styles = make(map[*html.Node]map[string]string)
	for selector, values := range s.Styles {
		el := p.Query(selector)
		if el == nil {
			continue
		}
		normalized := make(map[string]string, len(values))
		for k, v := range values {
			normalized[strings.ToLower(k)] = v
		}
		p.styles[el.(*element).node()] = normalized
	}

	return &Live{Parsed: p, faces: s.FontFaces, probe: MapProbe(s.Globals)}, nil
}

func (l *Live) FontFaces() []FontFace {
	return l.faces
}

// Probe returns the window globals captured with the page.
func (l *Live) Probe() Probe {
	return l.probe
}

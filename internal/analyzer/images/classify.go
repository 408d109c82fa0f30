// Package images classifies <img> elements by format.
package images

import (
	"regexp"
	"strconv"
	"strings"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

// unresolved is the internal marker for "no step matched yet". It never
// leaves this package.
const unresolved = ""

var knownFormats = []string{"webp", "avif", "png", "jpg", "jpeg", "svg", "gif", "ico", "bmp"}

var (
	dataURIType = regexp.MustCompile(`^data:image/([a-zA-Z0-9+-]+);`)

	// tried in order against the whole URL, query string included
	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\.(webp|avif|png|jpg|jpeg|svg|gif|ico|bmp)(?:\?|#|$)`),
		regexp.MustCompile(`(?i)[?&](?:format|fm|ext|type|output)=([^&?#]+)`),
		regexp.MustCompile(`(?i)/(webp|avif|png|jpg|jpeg|svg|gif|ico|bmp)(?:/|$)`),
	}

	keywordPatterns = compileKeywords()
)

func compileKeywords() []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(knownFormats))
	for i, k := range knownFormats {
		out[i] = regexp.MustCompile(`(?i)\b` + k + `\b|\.` + k)
	}
	return out
}

// Scan classifies every <img> in document order.
func Scan(doc dom.Document) []model.ImageRecord {
	imgs := doc.QueryAll("img")
	records := make([]model.ImageRecord, 0, len(imgs))
	for _, img := range imgs {
		records = append(records, Record(img))
	}
	return records
}

// Record builds the ImageRecord for one <img>.
func Record(img dom.Element) model.ImageRecord {
	src := img.Prop("src")
	if src == "" {
		src = img.Prop("data-src")
	}
	alt, _ := img.Attr("alt")
	title, _ := img.Attr("title")

	return model.ImageRecord{
		Src:    src,
		Alt:    alt,
		Title:  title,
		Width:  dimension(img, "naturalWidth", "width"),
		Height: dimension(img, "naturalHeight", "height"),
		Type:   Classify(img),
	}
}

// Classify returns the normalized format tag of an image element. The
// heuristics run in a fixed order and the first hit wins.
func Classify(img dom.Element) (tag string) {
	defer func() {
		if r := recover(); r != nil {
			tag = model.ImageErr
		}
	}()
	return normalize(classify(img))
}

func classify(img dom.Element) string {
	active := activeSource(img)
	if active == "" {
		return model.ImageNone
	}

	if strings.HasPrefix(active, "data:") {
		m := dataURIType.FindStringSubmatch(active)
		if m == nil {
			return model.ImageData
		}
		subtype := strings.ToLower(strings.SplitN(m[1], "+", 2)[0])
		if !isKnown(subtype) {
			return model.ImageData
		}
		return subtype
	}

	for _, re := range urlPatterns {
		m := re.FindStringSubmatch(active)
		if m == nil || m[1] == "" {
			continue
		}
		if t := strings.ToLower(m[1]); isKnown(t) {
			return t
		}
	}

	if t := pictureSourceType(img); t != unresolved {
		return t
	}

	for i, re := range keywordPatterns {
		if re.MatchString(active) {
			return knownFormats[i]
		}
	}

	return unresolved
}

// activeSource prefers what the browser actually rendered.
func activeSource(img dom.Element) string {
	if s := img.Prop("currentSrc"); s != "" {
		return s
	}
	if s := img.Prop("src"); s != "" {
		return s
	}
	return img.Prop("data-src")
}

func pictureSourceType(img dom.Element) string {
	picture := img.Closest("picture")
	if picture == nil {
		return unresolved
	}
	source := picture.Query("source")
	if source == nil {
		return unresolved
	}
	mime, _ := source.Attr("type")
	_, subtype, ok := strings.Cut(mime, "/")
	if !ok {
		return unresolved
	}
	subtype = strings.ToLower(strings.TrimSpace(strings.SplitN(subtype, "+", 2)[0]))
	if !isKnown(subtype) {
		return unresolved
	}
	return subtype
}

func normalize(t string) string {
	switch t {
	case "jpeg":
		return model.ImageJPG
	case unresolved:
		return model.ImageImg
	}
	return t
}

func isKnown(t string) bool {
	for _, k := range knownFormats {
		if k == t {
			return true
		}
	}
	return false
}

func dimension(img dom.Element, natural, declared string) int {
	if n, err := strconv.Atoi(img.Prop(natural)); err == nil && n > 0 {
		return n
	}
	if n, err := strconv.Atoi(img.Prop(declared)); err == nil && n > 0 {
		return n
	}
	return 0
}

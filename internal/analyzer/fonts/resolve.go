// Package fonts works out which font families a page declares or renders
// and where they are hosted.
package fonts

import (
	"net/url"
	"path"
	"regexp"
	"strings"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

const (
	specimenBase = "https://fonts.google.com/specimen/"
	adobeFonts   = "https://fonts.adobe.com/"
)

// well-known families served by Google Fonts, used to tag families that
// only show up in computed styles
var knownGoogleFonts = map[string]bool{
	"Inter": true, "Roboto": true, "Open Sans": true, "Lato": true, "Montserrat": true,
	"Poppins": true, "Raleway": true, "Oswald": true, "Source Sans Pro": true,
	"Source Sans 3": true, "Nunito": true, "Playfair Display": true, "Merriweather": true,
	"Ubuntu": true, "Noto Sans": true, "PT Sans": true, "Rubik": true, "Work Sans": true,
	"Fira Sans": true, "Quicksand": true, "Barlow": true, "Mulish": true, "DM Sans": true,
	"Outfit": true, "Space Grotesk": true, "Plus Jakarta Sans": true, "Manrope": true,
	"JetBrains Mono": true, "Fira Code": true, "Source Code Pro": true,
	"IBM Plex Sans": true, "IBM Plex Mono": true, "Libre Franklin": true,
	"Crimson Text": true, "Bitter": true, "Josefin Sans": true, "Cabin": true,
	"Karla": true, "Exo 2": true, "Archivo": true, "Overpass": true, "Sora": true,
	"Lexend": true, "Geist": true,
}

var firstURL = regexp.MustCompile(`url\(["']?([^"')]+)["']?\)`)

// Resolve merges the page's font evidence into one record per family.
// Stages run strongest first; later stages only add families or grow the
// weight and style sets of families already known.
func Resolve(doc dom.Document) []model.FontRecord {
	if doc == nil {
		panic("fonts: nil document")
	}
	reg := newRegistry()
	mergeGoogleLinks(reg, doc)
	mergeTypekitLinks(reg, doc)
	mergeFontFaceRules(reg, doc)
	mergeFontRegistry(reg, doc)
	mergeComputed(reg, doc)
	return reg.list()
}

// SpecimenURL is the Google Fonts page of a family.
func SpecimenURL(family string) string {
	return specimenBase + url.PathEscape(strings.TrimSpace(family))
}

func mergeGoogleLinks(reg *registry, doc dom.Document) {
	for _, link := range doc.QueryAll(`link[href*="fonts.googleapis.com"]`) {
		href := link.Prop("href")
		for _, fam := range ParseGoogleFamilies(href) {
			cssURL := href
			specimen := SpecimenURL(fam.Name)
			reg.upsert(fam.Name, &model.FontRecord{
				Family:  fam.Name,
				Source:  model.FontGoogle,
				Weights: fam.Weights,
				Styles:  appendUnique([]string{"normal"}, fam.Styles...),
				URL:     &specimen,
				CSSURL:  &cssURL,
			})
		}
	}
}

func mergeTypekitLinks(reg *registry, doc dom.Document) {
	for _, link := range doc.QueryAll(`link[href*="use.typekit.net"]`) {
		href := link.Prop("href")
		family := "Adobe Fonts"
		if kit := typekitKit(href); kit != "" {
			family += " (" + kit + ")"
		}
		cssURL := href
		home := adobeFonts
		reg.insert("typekit:"+href, &model.FontRecord{
			Family:  family,
			Source:  model.FontTypekit,
			Weights: []string{},
			Styles:  []string{},
			URL:     &home,
			CSSURL:  &cssURL,
		})
	}
}

// typekitKit returns the kit id of a use.typekit.net stylesheet URL.
func typekitKit(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func mergeFontFaceRules(reg *registry, doc dom.Document) {
	for _, sheet := range doc.StyleSheets() {
		if !sheet.Readable {
			continue
		}
		for _, rule := range sheet.Rules {
			if rule.AtRule != "font-face" {
				continue
			}
			family := normalizeFamily(rule.Get("font-family"))
			if family == "" {
				continue
			}
			weight := orDefault(rule.Get("font-weight"), "400")
			style := orDefault(rule.Get("font-style"), "normal")
			if reg.enrich(family, []string{weight}, []string{style}) {
				continue
			}

			src := rule.Get("src")
			rec := &model.FontRecord{
				Family:  family,
				Source:  sourceOf(src),
				Weights: []string{weight},
				Styles:  []string{style},
			}
			if m := firstURL.FindStringSubmatch(src); m != nil {
				cssURL := m[1]
				rec.CSSURL = &cssURL
			}
			if rec.Source == model.FontGoogle {
				specimen := SpecimenURL(family)
				rec.URL = &specimen
			}
			reg.insert(family, rec)
		}
	}
}

func sourceOf(src string) model.FontSource {
	switch {
	case strings.Contains(src, "fonts.gstatic.com"), strings.Contains(src, "fonts.googleapis.com"):
		return model.FontGoogle
	case strings.Contains(src, "typekit"):
		return model.FontTypekit
	}
	return model.FontCustom
}

// mergeFontRegistry only enriches: a family registered at runtime but never
// declared anywhere is too weak a signal on its own.
func mergeFontRegistry(reg *registry, doc dom.Document) {
	for _, face := range doc.FontFaces() {
		family := normalizeFamily(face.Family)
		if family == "" {
			continue
		}
		reg.enrich(family, []string{orDefault(face.Weight, "400")}, []string{orDefault(face.Style, "normal")})
	}
}

var representative = []string{"h1", "h2", "p", "a", "button"}

func mergeComputed(reg *registry, doc dom.Document) {
	var els []dom.Element
	if body := doc.Query("body"); body != nil {
		els = append(els, body)
	}
	for _, sel := range representative {
		if el := doc.Query(sel); el != nil {
			els = append(els, el)
		}
	}

	for _, el := range els {
		stack := doc.ComputedStyle(el, "font-family")
		if stack == "" {
			continue
		}
		weight := orDefault(doc.ComputedStyle(el, "font-weight"), "400")
		style := orDefault(doc.ComputedStyle(el, "font-style"), "normal")

		for _, raw := range strings.Split(stack, ",") {
			family := normalizeFamily(raw)
			if family == "" {
				continue
			}
			rec := &model.FontRecord{
				Family:  family,
				Source:  model.FontSystem,
				Weights: []string{weight},
				Styles:  []string{style},
			}
			if !reg.insert(family, rec) {
				continue
			}
			if knownGoogleFonts[family] {
				specimen := SpecimenURL(family)
				rec.Source = model.FontGoogle
				rec.URL = &specimen
			}
		}
	}
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

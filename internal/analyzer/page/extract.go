// Package page scrapes the plain SEO fields of a document: head metadata,
// headings, links, social tags and embedded videos.
package page

import (
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

const (
	defaultRobots  = "index, follow"
	defaultCharset = "UTF-8"

	maxHeadingText = 200
	maxLinkText    = 120
)

// Info reads the <head> level SEO fields.
func Info(doc dom.Document) model.PageInfo {
	info := model.PageInfo{
		Title:       collapse(text(doc.Query("title"))),
		Description: meta(doc, "name", "description"),
		Robots:      meta(doc, "name", "robots"),
		Author:      meta(doc, "name", "author"),
		Viewport:    meta(doc, "name", "viewport"),
		Charset:     defaultCharset,
	}
	if base := doc.BaseURL(); base != nil {
		info.URL = base.String()
	}
	if info.Robots == "" {
		info.Robots = defaultRobots
	}
	if el := doc.Query(`link[rel="canonical"]`); el != nil {
		info.Canonical = el.Prop("href")
	}
	if el := doc.Query("html"); el != nil {
		info.Language, _ = el.Attr("lang")
	}
	if el := doc.Query("meta[charset]"); el != nil {
		info.Charset, _ = el.Attr("charset")
	}
	info.TitleLength = utf8.RuneCountInString(info.Title)
	info.DescriptionLength = utf8.RuneCountInString(info.Description)
	return info
}

// Headings lists h1-h6 in document order, numbered from 1.
func Headings(doc dom.Document) []model.Heading {
	els := doc.QueryAll("h1, h2, h3, h4, h5, h6")
	out := make([]model.Heading, 0, len(els))
	for i, el := range els {
		out = append(out, model.Heading{
			Tag:   strings.ToUpper(el.Tag()),
			Text:  truncate(strings.TrimSpace(el.Text()), maxHeadingText),
			Order: i + 1,
		})
	}
	return out
}

// Links lists every a[href]. A link is external when its hostname differs
// from the page's.
func Links(doc dom.Document) []model.Link {
	var host string
	if base := doc.BaseURL(); base != nil {
		host = base.Hostname()
	}

	els := doc.QueryAll("a[href]")
	out := make([]model.Link, 0, len(els))
	for _, el := range els {
		href := el.Prop("href")
		rel, _ := el.Attr("rel")
		link := model.Link{
			Href: href,
			Text: truncate(strings.TrimSpace(el.Text()), maxLinkText),
			Rel:  rel,
		}
		if u, err := url.Parse(href); err == nil && u.Hostname() != "" && host != "" {
			link.IsExternal = !strings.EqualFold(u.Hostname(), host)
		}
		out = append(out, link)
	}
	return out
}

func Social(doc dom.Document) model.Social {
	return model.Social{
		OGTitle:            meta(doc, "property", "og:title"),
		OGDescription:      meta(doc, "property", "og:description"),
		OGImage:            meta(doc, "property", "og:image"),
		OGURL:              meta(doc, "property", "og:url"),
		OGType:             meta(doc, "property", "og:type"),
		TwitterCard:        meta(doc, "name", "twitter:card"),
		TwitterTitle:       meta(doc, "name", "twitter:title"),
		TwitterDescription: meta(doc, "name", "twitter:description"),
		TwitterImage:       meta(doc, "name", "twitter:image"),
		TwitterSite:        meta(doc, "name", "twitter:site"),
	}
}

// Videos lists YouTube and Vimeo embeds. HasSchema is set when the page
// also describes a VideoObject in its structured data.
func Videos(doc dom.Document, schemas []model.SchemaRecord) []model.Video {
	hasSchema := false
	for _, s := range schemas {
		for _, t := range strings.Split(s.Type, ", ") {
			if t == "VideoObject" {
				hasSchema = true
			}
		}
	}

	out := make([]model.Video, 0)
	for _, el := range doc.QueryAll("iframe") {
		src := el.Prop("src")
		var kind string
		switch {
		case strings.Contains(src, "youtube.com"), strings.Contains(src, "youtu.be"):
			kind = "youtube"
		case strings.Contains(src, "vimeo.com"):
			kind = "vimeo"
		default:
			continue
		}
		out = append(out, model.Video{Type: kind, ID: videoID(src), URL: src, HasSchema: hasSchema})
	}
	return out
}

// videoID is the last path segment of an embed URL.
func videoID(src string) string {
	u, err := url.Parse(src)
	if err != nil {
		return ""
	}
	id := path.Base(u.Path)
	if id == "." || id == "/" {
		return ""
	}
	return id
}

func meta(doc dom.Document, attr, value string) string {
	el := doc.Query(`meta[` + attr + `="` + value + `"]`)
	if el == nil {
		return ""
	}
	content, _ := el.Attr("content")
	return content
}

func text(el dom.Element) string {
	if el == nil {
		return ""
	}
	return el.Text()
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

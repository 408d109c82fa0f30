package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"

	"pageaudit/internal/model"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func cell(s string) string {
	return cellEscaper.Replace(orDash(s))
}

// WriteMarkdown renders the audit as a Markdown document with one section
// per finding category.
func WriteMarkdown(w io.Writer, a *model.Audit) error {
	md := markdown.NewMarkdown(w)

	title := a.Title
	if title == "" {
		title = a.URL
	}
	md.H1("Page audit: " + cell(title))
	md.PlainText("")

	s := summarize(a)
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", cell(a.URL)},
			{"Mode", cell(a.Mode)},
			{"Source", cell(a.Source)},
			{"Title", fmt.Sprintf("%s (%d chars)", cell(a.Title), a.TitleLength)},
			{"Description", fmt.Sprintf("%s (%d chars)", cell(a.Description), a.DescriptionLength)},
			{"Canonical", cell(a.Canonical)},
			{"Robots", cell(a.Robots)},
			{"Language", cell(a.Language)},
			{"Charset", cell(a.Charset)},
			{"Viewport", cell(a.Viewport)},
			{"Images without alt", strconv.Itoa(s.missingAlt)},
			{"Broken links", strconv.Itoa(s.broken)},
			{"Failing security headers", strconv.Itoa(s.secFailures)},
			{"Invalid JSON-LD items", strconv.Itoa(s.invalid)},
		},
	})
	md.PlainText("")

	writeTech(md, a.Tech)
	writeSecurity(md, a.Security)
	writeHeadings(md, a.Headers)
	writeImages(md, a.Images)
	writeLinks(md, a.Links)
	writeFonts(md, a.Fonts)
	writeSchemas(md, a.Schemas)
	writeSocial(md, a.Social, a.Videos)

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}
	return nil
}

func writeTech(md *markdown.Markdown, techs []model.TechSignature) {
	md.H2("Technologies")
	if len(techs) == 0 {
		md.PlainText("No technologies detected.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(techs))
	for _, t := range techs {
		rows = append(rows, []string{t.Icon + " " + cell(t.Name), cell(t.Category), strconv.Itoa(t.Confidence) + "%"})
	}
	md.Table(markdown.TableSet{Header: []string{"Name", "Category", "Confidence"}, Rows: rows})
	md.PlainText("")
}

var statusMarks = map[model.HeaderStatus]string{
	model.StatusPass: "✅ pass",
	model.StatusWarn: "⚠️ warn",
	model.StatusFail: "❌ fail",
}

func writeSecurity(md *markdown.Markdown, headers []model.SecurityHeader) {
	md.H2("Security headers")
	rows := make([][]string, 0, len(headers))
	for _, h := range headers {
		rows = append(rows, []string{h.Header, statusMarks[h.Status], cell(deref(h.Value)), cell(h.Recommendation)})
	}
	md.Table(markdown.TableSet{Header: []string{"Header", "Status", "Value", "Recommendation"}, Rows: rows})
	md.PlainText("")
}

func writeHeadings(md *markdown.Markdown, headings []model.Heading) {
	md.H2("Headings")
	if len(headings) == 0 {
		md.PlainText("No headings found.")
		md.PlainText("")
		return
	}
	items := make([]string, 0, len(headings))
	for _, h := range headings {
		items = append(items, markdown.Code(h.Tag)+" "+orDash(h.Text))
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writeImages(md *markdown.Markdown, images []model.ImageRecord) {
	md.H2(fmt.Sprintf("Images (%d)", len(images)))
	if len(images) == 0 {
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(images))
	for _, img := range images {
		src := img.Src
		if strings.HasPrefix(src, "data:") && len(src) > 40 {
			src = src[:40] + "…"
		}
		rows = append(rows, []string{
			cell(src), img.Type, cell(img.Alt),
			fmt.Sprintf("%dx%d", img.Width, img.Height), sizeLabel(img.Size),
		})
	}
	md.Table(markdown.TableSet{Header: []string{"Source", "Type", "Alt", "Dimensions", "Size"}, Rows: rows})
	md.PlainText("")
}

func writeLinks(md *markdown.Markdown, links []model.Link) {
	md.H2(fmt.Sprintf("Links (%d)", len(links)))
	if len(links) == 0 {
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		kind := "internal"
		if l.IsExternal {
			kind = "external"
		}
		status := "-"
		if l.IsBroken != nil {
			status = strings.TrimSpace(fmt.Sprintf("%d %s", l.Status, l.StatusText))
			if *l.IsBroken {
				status = "❌ " + status
			}
		}
		rows = append(rows, []string{cell(l.Href), cell(l.Text), kind, cell(status)})
	}
	md.Table(markdown.TableSet{Header: []string{"Href", "Text", "Kind", "Status"}, Rows: rows})
	md.PlainText("")
}

func writeFonts(md *markdown.Markdown, fonts []model.FontRecord) {
	md.H2("Fonts")
	if len(fonts) == 0 {
		md.PlainText("No fonts detected.")
		md.PlainText("")
		return
	}
	rows := make([][]string, 0, len(fonts))
	for _, f := range fonts {
		name := cell(f.Family)
		if u := deref(f.URL); u != "" {
			name = markdown.Link(name, u)
		}
		rows = append(rows, []string{name, string(f.Source), cell(strings.Join(f.Weights, ", ")), cell(strings.Join(f.Styles, ", "))})
	}
	md.Table(markdown.TableSet{Header: []string{"Family", "Source", "Weights", "Styles"}, Rows: rows})
	md.PlainText("")
}

func writeSchemas(md *markdown.Markdown, schemas []model.SchemaRecord) {
	md.H2("Structured data")
	if len(schemas) == 0 {
		md.PlainText("No JSON-LD found.")
		md.PlainText("")
		return
	}
	items := make([]string, 0, len(schemas))
	for _, s := range schemas {
		line := markdown.Bold(s.Type)
		if s.IsValid {
			line += " ✅"
		} else {
			line += " ❌ " + strings.Join(s.Errors, "; ")
		}
		if len(s.Warnings) > 0 {
			line += " (warnings: " + strings.Join(s.Warnings, "; ") + ")"
		}
		items = append(items, line)
	}
	md.BulletList(items...)
	md.PlainText("")
}

func writeSocial(md *markdown.Markdown, s model.Social, videos []model.Video) {
	md.H2("Social")
	md.Table(markdown.TableSet{
		Header: []string{"Tag", "Value"},
		Rows: [][]string{
			{"og:title", cell(s.OGTitle)},
			{"og:description", cell(s.OGDescription)},
			{"og:image", cell(s.OGImage)},
			{"og:url", cell(s.OGURL)},
			{"og:type", cell(s.OGType)},
			{"twitter:card", cell(s.TwitterCard)},
			{"twitter:title", cell(s.TwitterTitle)},
			{"twitter:site", cell(s.TwitterSite)},
		},
	})
	md.PlainText("")

	if len(videos) == 0 {
		return
	}
	md.H2("Videos")
	items := make([]string, 0, len(videos))
	for _, v := range videos {
		item := fmt.Sprintf("%s %s", v.Type, markdown.Link(v.ID, v.URL))
		if !v.HasSchema {
			item += " (no VideoObject schema)"
		}
		items = append(items, item)
	}
	md.BulletList(items...)
	md.PlainText("")
}

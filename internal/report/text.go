package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"pageaudit/internal/model"
)

type styles struct {
	title   *color.Color
	heading *color.Color
	label   *color.Color
	pass    *color.Color
	warn    *color.Color
	fail    *color.Color
	dim     *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		title:   color.New(color.Bold, color.FgHiWhite),
		heading: color.New(color.Bold, color.FgHiBlue),
		label:   color.New(color.Bold),
		pass:    color.New(color.FgHiGreen),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgHiRed),
		dim:     color.New(color.FgHiBlack),
	}
	for _, c := range []*color.Color{s.title, s.heading, s.label, s.pass, s.warn, s.fail, s.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

func (s *styles) status(st model.HeaderStatus) string {
	switch st {
	case model.StatusPass:
		return s.pass.Sprint("PASS")
	case model.StatusWarn:
		return s.warn.Sprint("WARN")
	}
	return s.fail.Sprint("FAIL")
}

// WriteText prints a terminal summary of the audit.
func WriteText(w io.Writer, a *model.Audit, colored bool) error {
	s := newStyles(colored)
	p := &printer{w: w}

	p.linef("%s %s", s.title.Sprint("Page audit"), a.URL)
	p.linef("%s %s  %s %s", s.label.Sprint("Mode:"), orDash(a.Mode), s.label.Sprint("Source:"), orDash(a.Source))
	p.line("")

	p.line(s.heading.Sprint("SEO"))
	p.linef("  %s %s %s", s.label.Sprint("Title:"), orDash(a.Title), s.dim.Sprintf("(%d chars)", a.TitleLength))
	p.linef("  %s %s %s", s.label.Sprint("Description:"), orDash(a.Description), s.dim.Sprintf("(%d chars)", a.DescriptionLength))
	p.linef("  %s %s", s.label.Sprint("Canonical:"), orDash(a.Canonical))
	p.linef("  %s %s", s.label.Sprint("Robots:"), a.Robots)
	p.linef("  %s %s  %s %s", s.label.Sprint("Language:"), orDash(a.Language), s.label.Sprint("Charset:"), a.Charset)
	p.line("")

	p.line(s.heading.Sprint("Technologies"))
	if len(a.Tech) == 0 {
		p.line("  none detected")
	}
	for _, t := range a.Tech {
		p.linef("  %-28s %-14s %3d%%", t.Name, t.Category, t.Confidence)
	}
	p.line("")

	p.line(s.heading.Sprint("Security headers"))
	for _, h := range a.Security {
		p.linef("  %s %-26s %s", s.status(h.Status), h.Header, s.dim.Sprint(h.Recommendation))
	}
	p.line("")

	sum := summarize(a)
	p.line(s.heading.Sprint("Content"))
	p.linef("  %d headings, %d images (%d without alt), %d links (%d external, %d broken)",
		len(a.Headers), len(a.Images), sum.missingAlt, len(a.Links), sum.external, sum.broken)
	for _, l := range a.Links {
		if l.IsBroken != nil && *l.IsBroken {
			p.linef("  %s %s %s", s.fail.Sprint("broken"), l.Href, s.dim.Sprintf("%d %s", l.Status, l.StatusText))
		}
	}
	p.line("")

	p.line(s.heading.Sprint("Fonts"))
	if len(a.Fonts) == 0 {
		p.line("  none detected")
	}
	for _, f := range a.Fonts {
		p.linef("  %-28s %-8s %s", f.Family, f.Source, strings.Join(f.Weights, " "))
	}
	p.line("")

	p.line(s.heading.Sprint("Structured data"))
	if len(a.Schemas) == 0 {
		p.line("  no JSON-LD")
	}
	for _, sc := range a.Schemas {
		mark := s.pass.Sprint("valid")
		if !sc.IsValid {
			mark = s.fail.Sprint(strings.Join(sc.Errors, ", "))
		}
		p.linef("  %-28s %s", sc.Type, mark)
		for _, warn := range sc.Warnings {
			p.linef("    %s %s", s.warn.Sprint("warning:"), warn)
		}
	}

	return p.err
}

// printer remembers the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(s string) {
	if p.err == nil {
		_, p.err = fmt.Fprintln(p.w, s)
	}
}

func (p *printer) linef(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

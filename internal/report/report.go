// Package report renders an audit for people and machines: JSON, YAML,
// Markdown and a colored terminal summary.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"pageaudit/internal/model"
)

type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatJSON, nil
	case FormatJSON, FormatYAML, FormatMarkdown, FormatText:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown report format %q (want json, yaml, markdown or text)", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// Write renders audit in format f. color only affects FormatText.
func Write(w io.Writer, f Format, audit *model.Audit, color bool) error {
	switch f {
	case FormatJSON, "":
		return WriteJSON(w, audit)
	case FormatYAML:
		return WriteYAML(w, audit)
	case FormatMarkdown:
		return WriteMarkdown(w, audit)
	case FormatText:
		return WriteText(w, audit, color)
	}
	return fmt.Errorf("unknown report format %q", f)
}

func WriteJSON(w io.Writer, audit *model.Audit) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(audit); err != nil {
		return fmt.Errorf("failed to encode JSON report: %w", err)
	}
	return nil
}

func WriteYAML(w io.Writer, audit *model.Audit) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(audit); err != nil {
		return fmt.Errorf("failed to encode YAML report: %w", err)
	}
	return enc.Close()
}

func sizeLabel(size *int64) string {
	if size == nil {
		return "-"
	}
	n := float64(*size)
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", n/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", n/(1<<10))
	}
	return fmt.Sprintf("%d B", *size)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// summary counts the findings a reader usually looks at first.
type summary struct {
	missingAlt  int
	broken      int
	external    int
	secFailures int
	invalid     int
}

func summarize(a *model.Audit) summary {
	var s summary
	for _, img := range a.Images {
		if strings.TrimSpace(img.Alt) == "" {
			s.missingAlt++
		}
	}
	for _, l := range a.Links {
		if l.IsExternal {
			s.external++
		}
		if l.IsBroken != nil && *l.IsBroken {
			s.broken++
		}
	}
	for _, h := range a.Security {
		if h.Status == model.StatusFail {
			s.secFailures++
		}
	}
	for _, sc := range a.Schemas {
		if !sc.IsValid {
			s.invalid++
		}
	}
	return s
}

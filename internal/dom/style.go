package dom

import (
	"regexp"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/aymerick/douceur/css"
	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"
)

// hoistedAtRules wrap ordinary style rules behind a condition or a cascade
// layer. Their rules are read as if the condition held.
var hoistedAtRules = map[string]bool{
	"media":     true,
	"supports":  true,
	"layer":     true,
	"container": true,
}

// ParseCSS parses stylesheet text into flattened rules. Rules nested in
// conditional and layer at-rules are hoisted. The text is parsed one
// top-level rule at a time, so a construct the parser does not understand
// only costs its own rule.
func ParseCSS(text string) []Rule {
	var out []Rule
	for _, chunk := range splitTopLevel(text) {
		if name, body, ok := blockAtRule(chunk); ok && hoistedAtRules[name] {
			out = append(out, ParseCSS(body)...)
			continue
		}
		sheet, err := parser.Parse(chunk)
		if err != nil || sheet == nil {
			continue
		}
		out = append(out, convertRules(sheet.Rules)...)
	}
	return out
}

// splitTopLevel cuts text after every top-level "}" or ";", skipping
// strings, escapes and comments.
func splitTopLevel(text string) []string {
	var chunks []string
	push := func(chunk string) {
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}

	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '"', '\'':
			i = stringEnd(text, i)
		case '/':
			if strings.HasPrefix(text[i:], "/*") {
				end := strings.Index(text[i+2:], "*/")
				if end < 0 {
					i = len(text)
				} else {
					i += end + 3
				}
			}
		case '{':
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 {
				push(text[start : i+1])
				start = i + 1
			}
		case ';':
			if depth == 0 {
				push(text[start : i+1])
				start = i + 1
			}
		}
	}
	if start < len(text) {
		push(text[start:])
	}
	return chunks
}

// stringEnd returns the index of the quote closing the string opened at i.
func stringEnd(text string, i int) int {
	quote := text[i]
	for j := i + 1; j < len(text); j++ {
		switch text[j] {
		case '\\':
			j++
		case quote, '\n':
			return j
		}
	}
	return len(text) - 1
}

// blockAtRule splits "@name prelude { body }" into its lowercased name and
// body.
func blockAtRule(chunk string) (name, body string, ok bool) {
	chunk = strings.TrimSpace(chunk)
	for strings.HasPrefix(chunk, "/*") {
		_, rest, found := strings.Cut(chunk[2:], "*/")
		if !found {
			return "", "", false
		}
		chunk = strings.TrimSpace(rest)
	}
	if !strings.HasPrefix(chunk, "@") || !strings.HasSuffix(chunk, "}") {
		return "", "", false
	}
	open := strings.IndexByte(chunk, '{')
	if open < 0 {
		return "", "", false
	}
	end := strings.IndexAny(chunk[1:], " \t\r\n({")
	if end < 0 {
		return "", "", false
	}
	return strings.ToLower(chunk[1 : 1+end]), chunk[open+1 : len(chunk)-1], true
}

func convertRules(in []*css.Rule) []Rule {
	var out []Rule
	for _, r := range in {
		if r == nil {
			continue
		}
		switch r.Kind {
		case css.QualifiedRule:
			out = append(out, Rule{
				Selectors:    r.Selectors,
				Declarations: convertDeclarations(r.Declarations),
			})
		case css.AtRule:
			name := strings.ToLower(strings.TrimPrefix(r.Name, "@"))
			switch name {
			case "media", "supports":
				out = append(out, convertRules(r.Rules)...)
			default:
				out = append(out, Rule{
					AtRule:       name,
					Declarations: convertDeclarations(r.Declarations),
				})
			}
		}
	}
	return out
}

func convertDeclarations(in []*css.Declaration) []Declaration {
	out := make([]Declaration, 0, len(in))
	for _, d := range in {
		if d == nil {
			continue
		}
		out = append(out, Declaration{
			Property:  strings.ToLower(strings.TrimSpace(d.Property)),
			Value:     strings.TrimSpace(d.Value),
			Important: d.Important,
		})
	}
	return out
}

// parseInlineStyle parses a style="" attribute.
func parseInlineStyle(text string) []Declaration {
	// the last declaration is only committed on ";" or "}"
	text = strings.TrimSpace(text)
	if text != "" && !strings.HasSuffix(text, ";") {
		text += ";"
	}
	decls, err := parser.ParseDeclarations(text)
	if err != nil {
		return nil
	}
	return convertDeclarations(decls)
}

type styleRule struct {
	sel   cascadia.Sel
	order int
	decls []Declaration
}

func compileRules(sheets []StyleSheet) []styleRule {
	var out []styleRule
	order := 0
	for _, sheet := range sheets {
		if !sheet.Readable {
			continue
		}
		for _, rule := range sheet.Rules {
			if rule.AtRule != "" {
				continue
			}
			for _, raw := range rule.Selectors {
				sel, err := cascadia.Parse(strings.TrimSpace(raw))
				if err != nil || sel.PseudoElement() != "" {
					continue
				}
				out = append(out, styleRule{sel: sel, order: order, decls: rule.Declarations})
				order++
			}
		}
	}
	return out
}

var inheritedProperties = map[string]bool{
	"font-family": true,
	"font-weight": true,
	"font-style":  true,
	"font-size":   true,
	"color":       true,
	"line-height": true,
}

// ComputedStyle approximates getComputedStyle for a detached document: the
// winning declaration from readable stylesheets and inline styles, walking
// up the tree for inherited properties. var() references are substituted
// and the inherit, initial and unset keywords applied. Values captured
// from a live browser take precedence.
func (p *Parsed) ComputedStyle(el Element, property string) string {
	e, ok := el.(*element)
	if !ok || e.doc != p {
		return ""
	}
	property = strings.ToLower(property)
	inherited := inheritedProperties[property]

	for n := e.node(); n != nil && n.Type == html.ElementNode; n = n.Parent {
		if live, ok := p.styles[n]; ok {
			if v, ok := live[property]; ok && v != "" {
				return v
			}
		}

		v, ok := p.declared(n, property)
		if !ok {
			if !inherited {
				break
			}
			continue
		}

		// an unresolvable var() makes the declaration behave as unset
		v, ok = p.substituteVars(n, v, 0)
		if !ok {
			v = "unset"
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "inherit":
			continue
		case "initial":
			return ""
		case "unset", "revert":
			if inherited {
				continue
			}
			return ""
		}
		return normalizeStyleValue(property, v)
	}
	return ""
}

const maxVarDepth = 16

// substituteVars replaces every var(--name[, fallback]) in value with the
// custom property as seen from n. Custom properties always inherit.
func (p *Parsed) substituteVars(n *html.Node, value string, depth int) (string, bool) {
	if depth > maxVarDepth {
		return "", false
	}
	var b strings.Builder
	rest := value
	for {
		i := strings.Index(strings.ToLower(rest), "var(")
		if i < 0 {
			b.WriteString(rest)
			return strings.TrimSpace(b.String()), true
		}
		b.WriteString(rest[:i])

		args, after, ok := parenContents(rest[i+len("var("):])
		if !ok {
			return "", false
		}
		name, fallback, hasFallback := splitVarArgs(args)

		resolved, found := p.customProperty(n, name)
		if !found {
			if !hasFallback {
				return "", false
			}
			resolved = fallback
		}
		resolved, ok = p.substituteVars(n, resolved, depth+1)
		if !ok {
			return "", false
		}
		b.WriteString(resolved)
		rest = after
	}
}

func (p *Parsed) customProperty(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if !strings.HasPrefix(name, "--") {
		return "", false
	}
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if v, ok := p.declared(n, name); ok {
			return v, true
		}
	}
	return "", false
}

// parenContents reads up to the parenthesis closing an already opened one.
func parenContents(s string) (inner, after string, ok bool) {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return "", "", false
}

// splitVarArgs cuts var() arguments at the first top-level comma.
func splitVarArgs(args string) (name, fallback string, ok bool) {
	depth := 0
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				return strings.TrimSpace(args[:i]), strings.TrimSpace(args[i+1:]), true
			}
		}
	}
	return strings.TrimSpace(args), "", false
}

type candidate struct {
	value     string
	important bool
	inline    bool
	spec      cascadia.Specificity
	order     int
}

func (c candidate) beats(o candidate) bool {
	if c.important != o.important {
		return c.important
	}
	if c.inline != o.inline {
		return c.inline
	}
	for i := range c.spec {
		if c.spec[i] != o.spec[i] {
			return c.spec[i] > o.spec[i]
		}
	}
	return c.order >= o.order
}

func (p *Parsed) declared(n *html.Node, property string) (string, bool) {
	var best *candidate
	consider := func(c candidate) {
		if best == nil || c.beats(*best) {
			cc := c
			best = &cc
		}
	}

	for _, r := range p.rules {
		if !r.sel.Match(n) {
			continue
		}
		for i, d := range r.decls {
			if v, ok := lookupDeclaration(d, property); ok {
				consider(candidate{value: v, important: d.Important, spec: r.sel.Specificity(), order: r.order*1000 + i})
			}
		}
	}

	for _, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		for i, d := range parseInlineStyle(a.Val) {
			if v, ok := lookupDeclaration(d, property); ok {
				consider(candidate{value: v, important: d.Important, inline: true, order: i})
			}
		}
	}

	if best == nil {
		return "", false
	}
	return best.value, true
}

func lookupDeclaration(d Declaration, property string) (string, bool) {
	if d.Property == property {
		return d.Value, true
	}
	if d.Property == "font" {
		return expandFont(d.Value, property)
	}
	return "", false
}

var fontSizeToken = regexp.MustCompile(`(?i)(?:^|\s)(?:\d*\.?\d+(?:px|em|rem|%|pt|pc|ex|ch|vw|vh|vmin|vmax|cm|mm|in)|xx-small|x-small|small|medium|large|x-large|xx-large|smaller|larger)(?:\s*/\s*\S+)?\s+`)

// expandFont pulls a longhand out of the font shorthand. The shorthand
// resets omitted longhands to their initial values.
func expandFont(value, property string) (string, bool) {
	loc := fontSizeToken.FindStringIndex(value)
	if loc == nil {
		return "", false
	}
	prefix := strings.Fields(strings.ToLower(value[:loc[0]]))

	switch property {
	case "font-family":
		return strings.TrimSpace(value[loc[1]:]), true
	case "font-weight":
		for _, tok := range prefix {
			if tok == "bold" || tok == "bolder" || tok == "lighter" || isNumericWeight(tok) {
				return tok, true
			}
		}
		return "normal", true
	case "font-style":
		for _, tok := range prefix {
			if tok == "italic" || tok == "oblique" {
				return tok, true
			}
		}
		return "normal", true
	}
	return "", false
}

func isNumericWeight(tok string) bool {
	if len(tok) != 3 || tok[1:] != "00" {
		return false
	}
	return tok[0] >= '1' && tok[0] <= '9'
}

func normalizeStyleValue(property, value string) string {
	if property != "font-weight" {
		return value
	}
	switch strings.ToLower(value) {
	case "normal":
		return "400"
	case "bold":
		return "700"
	}
	return value
}

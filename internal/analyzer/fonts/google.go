package fonts

import (
	"net/url"
	"strings"
)

// GoogleFamily is one family requested from a Google Fonts stylesheet URL.
type GoogleFamily struct {
	Name    string
	Weights []string
	Styles  []string
}

// ParseGoogleFamilies reads the families of a fonts.googleapis.com URL. It
// understands the css2 shape (one family= per family, "Inter:ital,wght@0,400;1,700")
// and the legacy css shape ("Open+Sans:400,700italic|Roboto"). Unparsable
// URLs yield nothing.
func ParseGoogleFamilies(href string) []GoogleFamily {
	u, err := url.Parse(href)
	if err != nil {
		return nil
	}

	var out []GoogleFamily
	for _, value := range familyParams(u.RawQuery) {
		for _, entry := range strings.Split(value, "|") {
			name, spec, _ := strings.Cut(entry, ":")
			name = strings.TrimSpace(strings.ReplaceAll(name, "+", " "))
			if name == "" {
				continue
			}
			fam := GoogleFamily{Name: name, Weights: []string{}, Styles: []string{}}
			if axes, tuples, ok := strings.Cut(spec, "@"); ok {
				fam.Weights, fam.Styles = parseAxes(axes, tuples)
			} else if spec != "" {
				fam.Weights, fam.Styles = parseLegacyVariants(spec)
			}
			out = append(out, fam)
		}
	}
	return out
}

// familyParams collects every family= value. url.ParseQuery is not used
// because it rejects the ";" separators of css2 axis tuples.
func familyParams(rawQuery string) []string {
	var values []string
	for _, pair := range strings.Split(rawQuery, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key != "family" {
			continue
		}
		if unescaped, err := url.QueryUnescape(value); err == nil {
			value = unescaped
		}
		values = append(values, value)
	}
	return values
}

// parseAxes reads css2 axis tuples: "wght" + "400;700" or
// "ital,wght" + "0,400;1,700".
func parseAxes(axes, tuples string) (weights, styles []string) {
	weights, styles = []string{}, []string{}
	names := strings.Split(axes, ",")
	for _, tuple := range strings.Split(tuples, ";") {
		values := strings.Split(tuple, ",")
		for i, name := range names {
			if i >= len(values) {
				break
			}
			v := strings.TrimSpace(values[i])
			switch strings.TrimSpace(name) {
			case "wght":
				if v != "" {
					weights = appendUnique(weights, strings.ReplaceAll(v, "..", " "))
				}
			case "ital":
				if v == "1" {
					styles = appendUnique(styles, "italic")
				} else if v == "0" {
					styles = appendUnique(styles, "normal")
				}
			}
		}
	}
	return weights, styles
}

// parseLegacyVariants reads css variant lists such as "400,700italic",
// "regular,bold" or "300i,b".
func parseLegacyVariants(spec string) (weights, styles []string) {
	weights, styles = []string{}, []string{}
	for _, variant := range strings.Split(spec, ",") {
		variant = strings.ToLower(strings.TrimSpace(variant))
		if variant == "" {
			continue
		}
		digits := 0
		for digits < len(variant) && variant[digits] >= '0' && variant[digits] <= '9' {
			digits++
		}
		weight, rest := variant[:digits], variant[digits:]

		switch rest {
		case "", "r", "regular":
			if weight == "" {
				weight = "400"
			}
			styles = appendUnique(styles, "normal")
		case "i", "italic":
			if weight == "" {
				weight = "400"
			}
			styles = appendUnique(styles, "italic")
		case "b", "bold":
			weight = "700"
			styles = appendUnique(styles, "normal")
		case "bi", "bolditalic":
			weight = "700"
			styles = appendUnique(styles, "italic")
		default:
			continue
		}
		weights = appendUnique(weights, weight)
	}
	return weights, styles
}

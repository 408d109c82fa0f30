// Package schema extracts and validates JSON-LD structured data.
package schema

import (
	"encoding/json"
	"strings"

	"pageaudit/internal/dom"
	"pageaudit/internal/model"
)

const unknownType = "unknown"

// rule lists the properties a schema.org type must (errors) and should
// (warnings) carry.
type rule struct {
	required    []string
	recommended []string
}

var articleRule = rule{required: []string{"headline"}, recommended: []string{"image"}}

var rules = map[string]rule{
	"Article":      articleRule,
	"NewsArticle":  articleRule,
	"BlogPosting":  articleRule,
	"Product":      {required: []string{"name"}, recommended: []string{"offers"}},
	"Organization": {required: []string{"name"}, recommended: []string{"url"}},
}

// Validate reads every JSON-LD block of doc in document order. Malformed
// blocks contribute nothing.
func Validate(doc dom.Document) []model.SchemaRecord {
	if doc == nil {
		panic("schema: nil document")
	}
	records := make([]model.SchemaRecord, 0)
	for _, script := range doc.QueryAll(`script[type="application/ld+json"]`) {
		records = append(records, ValidateJSON(script.Text())...)
	}
	return records
}

// ValidateJSON validates one JSON-LD block. Top-level arrays and @graph
// containers expand into one record per item.
func ValidateJSON(text string) []model.SchemaRecord {
	var root any
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &root); err != nil {
		return nil
	}

	var items []any
	if arr, ok := root.([]any); ok {
		items = arr
	} else {
		items = []any{root}
	}

	var records []model.SchemaRecord
	for _, item := range items {
		for _, node := range expandGraph(item) {
			// a null item invalidates the whole block
			if node == nil {
				return nil
			}
			records = append(records, validateItem(node))
		}
	}
	return records
}

func expandGraph(item any) []any {
	obj, ok := item.(map[string]any)
	if !ok {
		return []any{item}
	}
	if graph, ok := obj["@graph"].([]any); ok {
		return graph
	}
	return []any{item}
}

func validateItem(item any) model.SchemaRecord {
	obj, _ := item.(map[string]any)
	types := typeNames(obj["@type"])

	rec := model.SchemaRecord{
		Type:     unknownType,
		Data:     item,
		Errors:   []string{},
		Warnings: []string{},
	}
	if len(types) > 0 {
		rec.Type = strings.Join(types, ", ")
	}

	// rules apply to a single string @type only; an array of types is
	// reported but not checked
	if t, ok := obj["@type"].(string); ok {
		if r, ok := rules[t]; ok {
			for _, prop := range r.required {
				if missing(obj, prop) {
					rec.Errors = append(rec.Errors, "missing "+prop)
				}
			}
			for _, prop := range r.recommended {
				if missing(obj, prop) {
					rec.Warnings = append(rec.Warnings, "missing "+prop)
				}
			}
		}
	}

	rec.IsValid = len(rec.Errors) == 0
	return rec
}

// typeNames reads @type as a list. Non-string members are ignored.
func typeNames(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// missing treats absent, null, "", false and 0 as missing.
func missing(obj map[string]any, prop string) bool {
	v, ok := obj[prop]
	if !ok {
		return true
	}
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}

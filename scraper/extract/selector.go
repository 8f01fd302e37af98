// Package extract turns fetched documents into loosely typed items, either through CSS selector
// schemas or by lifting JSON-ish payloads out of inline scripts.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item is a loosely typed bag of extracted fields.
type Item map[string]string

func (i Item) Get(name string) string { return i[name] }

// Field describes how to read one value relative to a container element.
// Attr lists attributes in fallback order; the pseudo attribute "text" reads element text.
// Without Attr the element text is used.
type Field struct {
	Name     string   `yaml:"name" validate:"required"`
	Selector string   `yaml:"selector"`
	Attr     []string `yaml:"attr"`
	Required bool     `yaml:"required"`
}

type Schema struct {
	Container string   `yaml:"container" validate:"required"`
	Fallbacks []string `yaml:"fallbacks"`
	Fields    []Field  `yaml:"fields" validate:"required,min=1,dive"`
}

// Select applies schema to root. Items missing any required field are dropped. When the primary
// container yields nothing, fallback containers are tried in order and the first non-empty result wins.
func Select(root *goquery.Selection, schema Schema) []Item {
	containers := append([]string{schema.Container}, schema.Fallbacks...)
	for _, container := range containers {
		if container == "" {
			continue
		}
		if items := selectIn(root, container, schema.Fields); len(items) > 0 {
			return items
		}
	}
	return []Item{}
}

func selectIn(root *goquery.Selection, container string, fields []Field) []Item {
	items := make([]Item, 0)
	root.Find(container).Each(func(_ int, s *goquery.Selection) {
		item := make(Item, len(fields))
		for _, f := range fields {
			v := fieldValue(s, f)
			if v == "" && f.Required {
				return
			}
			item[f.Name] = v
		}
		items = append(items, item)
	})
	return items
}

func fieldValue(s *goquery.Selection, f Field) string {
	sel := s
	if f.Selector != "" {
		sel = s.Find(f.Selector).First()
		if sel.Length() == 0 {
			return ""
		}
	}
	if len(f.Attr) == 0 {
		return CollapseSpace(sel.Text())
	}
	return Attr(sel, f.Attr...)
}

// Attr returns the first non-empty attribute of sel in the given order.
func Attr(sel *goquery.Selection, attrs ...string) string {
	for _, a := range attrs {
		if a == "text" {
			if v := CollapseSpace(sel.Text()); v != "" {
				return v
			}
			continue
		}
		if v, ok := sel.Attr(a); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// FirstText returns the collapsed text of the first selector that matches something non-empty.
func FirstText(root *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if v := CollapseSpace(root.Find(sel).First().Text()); v != "" {
			return v
		}
	}
	return ""
}

// FirstAttr is FirstText for attributes.
func FirstAttr(root *goquery.Selection, selectors []string, attrs ...string) string {
	for _, sel := range selectors {
		if v := Attr(root.Find(sel).First(), attrs...); v != "" {
			return v
		}
	}
	return ""
}

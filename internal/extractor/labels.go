package extractor

import (
	"html"
	"regexp"
	"sort"
	"strings"
)

// LabelParser scrapes labeled values out of loosely structured markup such
// as "Länge in cm: 12,7<br/>". A value runs from its label to the next line
// break.
type LabelParser struct {
	fields   []string
	patterns map[string]*regexp.Regexp
}

// NewLabelParser builds a parser from a field-name to label-prefix map.
func NewLabelParser(labels map[string]string) *LabelParser {
	p := &LabelParser{patterns: make(map[string]*regexp.Regexp, len(labels))}
	for field, label := range labels {
		p.fields = append(p.fields, field)
		p.patterns[field] = regexp.MustCompile(regexp.QuoteMeta(label) + `[ \t]*(.*?)[ \t]*<br\s*/?>`)
	}
	sort.Strings(p.fields)
	return p
}

// Parse returns the first match for each label found in markup. Fields
// whose label does not occur are absent from the result.
func (p *LabelParser) Parse(markup string) map[string]string {
	values := make(map[string]string)
	for _, field := range p.fields {
		m := p.patterns[field].FindStringSubmatch(markup)
		if m == nil {
			continue
		}
		values[field] = strings.TrimSpace(html.UnescapeString(m[1]))
	}
	return values
}

// Fields lists the configured field names in sorted order.
func (p *LabelParser) Fields() []string {
	return append([]string(nil), p.fields...)
}

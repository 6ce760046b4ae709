package materials

import (
	"html"
	"regexp"
	"strings"
)

// variantRule describes one spelling of a token in template markup.
type variantRule struct {
	open, close string
	upper       bool
}

func (r variantRule) pattern(token string) string {
	if r.upper {
		token = strings.ToUpper(token)
	}
	return r.open + token + r.close
}

// canonicalRule is tried first for every token; variantRules follow in table order.
var (
	canonicalRule = variantRule{open: "{{", close: "}}"}
	variantRules  = []variantRule{
		{open: "{{ ", close: " }}"},
		{open: "{{", close: "}}", upper: true},
		{open: "{{ ", close: " }}", upper: true},
		{open: "{", close: "}"},
		{open: "[", close: "]"},
		{open: "%", close: "%"},
	}
)

// patternOpeners holds the first byte of every rule's opening delimiter.
const patternOpeners = "{[%"

// Escape encodes &, <, >, " and ' for embedding in container markup.
func Escape(s string) string {
	return html.EscapeString(s)
}

// Substituter replaces placeholder tokens in markup with escaped workshop values.
type Substituter struct {
	replacer *strings.Replacer
	patterns []string
}

// NewSubstituter prepares the pattern table for values.
// Canonical forms of all tokens are listed before any tolerant variant, so a canonical match always wins.
func NewSubstituter(values Values) *Substituter {
	keys := values.Keys()
	pairs := make([]string, 0, 2*len(keys)*(1+len(variantRules)))
	patterns := make([]string, 0, len(keys)*(1+len(variantRules)))
	seen := make(map[string]struct{})
	add := func(pattern, value string) {
		if _, dup := seen[pattern]; dup {
			return
		}
		seen[pattern] = struct{}{}
		pairs = append(pairs, pattern, Escape(value))
		patterns = append(patterns, pattern)
	}
	for _, k := range keys {
		add(canonicalRule.pattern(k), values[k])
	}
	for _, k := range keys {
		for _, r := range variantRules {
			add(r.pattern(k), values[k])
		}
	}
	return &Substituter{replacer: strings.NewReplacer(pairs...), patterns: patterns}
}

// Apply returns text with every matched placeholder replaced and whether anything changed.
// Replacement output is never rescanned, so substituted values are escaped exactly once.
func (s *Substituter) Apply(text string) (string, bool) {
	out := s.replacer.Replace(text)
	return out, out != text
}

// Matches lists the patterns Apply would consume in text, in table order.
// Like the replacer, it scans left to right without overlaps and takes the first pattern listed at each position.
func (s *Substituter) Matches(text string) []string {
	hit := make(map[string]bool)
	for i := 0; i < len(text); {
		j := strings.IndexAny(text[i:], patternOpeners)
		if j < 0 {
			break
		}
		i += j
		if p := s.patternAt(text[i:]); p != "" {
			hit[p] = true
			i += len(p)
			continue
		}
		i++
	}
	var found []string
	for _, p := range s.patterns {
		if hit[p] {
			found = append(found, p)
		}
	}
	return found
}

func (s *Substituter) patternAt(text string) string {
	for _, p := range s.patterns {
		if strings.HasPrefix(text, p) {
			return p
		}
	}
	return ""
}

var anyPlaceholder = regexp.MustCompile(`\{\{[^}]+\}\}`)

// FindPlaceholders returns the distinct {{...}} tokens present in text.
func FindPlaceholders(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range anyPlaceholder.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

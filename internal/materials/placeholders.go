package materials

import (
	"regexp"
	"strings"
)

var mappingToken = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// Placeholder is one declared token from a template's field-mapping notes.
type Placeholder struct {
	Token       string `json:"token"`
	Placeholder string `json:"placeholder"`
	Description string `json:"description"`
}

// PlaceholderMap keeps declared placeholders in first-seen order.
type PlaceholderMap struct {
	items   []Placeholder
	byToken map[string]int
}

// Len returns the number of declared tokens.
func (m *PlaceholderMap) Len() int { return len(m.items) }

// Items returns the placeholders in declaration order.
func (m *PlaceholderMap) Items() []Placeholder {
	out := make([]Placeholder, len(m.items))
	copy(out, m.items)
	return out
}

// Get returns the placeholder declared for token.
func (m *PlaceholderMap) Get(token string) (Placeholder, bool) {
	i, ok := m.byToken[token]
	if !ok {
		return Placeholder{}, false
	}
	return m.items[i], true
}

func (m *PlaceholderMap) set(p Placeholder) {
	if i, ok := m.byToken[p.Token]; ok {
		m.items[i] = p
		return
	}
	m.byToken[p.Token] = len(m.items)
	m.items = append(m.items, p)
}

// ParseFieldMappings reads one placeholder per line, e.g. "{{workshop_date}} Date of the workshop".
// Lines without a {{token}} are skipped. A repeated token keeps its first position and its last description.
func ParseFieldMappings(text string) *PlaceholderMap {
	m := &PlaceholderMap{byToken: make(map[string]int)}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := mappingToken.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		placeholder := "{{" + match[1] + "}}"
		m.set(Placeholder{
			Token:       match[1],
			Placeholder: placeholder,
			Description: strings.TrimSpace(strings.ReplaceAll(line, placeholder, "")),
		})
	}
	return m
}

package materials

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/google/uuid"

	"github.com/bhfe/cfp-workshops/internal/models"
)

// MemberTokens lists the placeholders found in one container part.
type MemberTokens struct {
	Member string   `json:"member"`
	Tokens []string `json:"tokens"`
}

// Inspection describes the placeholders a template declares and, for presentations, contains.
type Inspection struct {
	TemplateID uuid.UUID      `json:"template_id"`
	Declared   []Placeholder  `json:"declared"`
	Found      []MemberTokens `json:"found,omitempty"`
	Undeclared []string       `json:"undeclared,omitempty"`
}

// ScanPresentation reads the slide, master and layout parts of a presentation
// without extracting it and returns the tokens found in each, in member order.
func ScanPresentation(archivePath string) ([]MemberTokens, error) {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		if errors.Is(err, zip.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrCorruptArchive, err)
		}
		return nil, err
	}
	defer zr.Close()

	var out []MemberTokens
	for _, f := range zr.File {
		if !inPresentationGroup(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorruptArchive, f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptArchive, f.Name, err)
		}
		if tokens := FindPlaceholders(string(body)); len(tokens) > 0 {
			out = append(out, MemberTokens{Member: f.Name, Tokens: tokens})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member < out[j].Member })
	return out, nil
}

func inPresentationGroup(name string) bool {
	for _, g := range presentationGroups {
		if ok, _ := path.Match(g.pattern, name); ok {
			return true
		}
	}
	return false
}

// Inspect parses t's mapping notes and, for presentation templates, scans its file.
func Inspect(t models.Template) (*Inspection, error) {
	declared := ParseFieldMappings(t.FieldMappings)
	ins := &Inspection{TemplateID: t.ID, Declared: declared.Items()}
	if t.Type != models.TemplatePresentation {
		return ins, nil
	}
	found, err := ScanPresentation(t.FilePath)
	if err != nil {
		return nil, err
	}
	ins.Found = found
	seen := make(map[string]struct{})
	for _, m := range found {
		for _, tok := range m.Tokens {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			if _, ok := declared.Get(trimBraces(tok)); !ok {
				ins.Undeclared = append(ins.Undeclared, tok)
			}
		}
	}
	return ins, nil
}

func trimBraces(tok string) string {
	if len(tok) >= 4 {
		return tok[2 : len(tok)-2]
	}
	return tok
}

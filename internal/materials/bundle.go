package materials

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Artifact kinds.
const (
	KindPDF          = "pdf"
	KindPresentation = "presentation"
	KindBundle       = "bundle"
)

// Artifact is a generated file waiting to be streamed. Name is the suggested download name.
type Artifact struct {
	Path string
	Name string
	Kind string
}

var downloadNameCleaner = strings.NewReplacer("/", "-", `\`, "-", `"`, "-")

// BundleName is the download name for a multi-artifact archive.
func BundleName(customer, date string) string {
	return downloadNameCleaner.Replace(fmt.Sprintf("workshop-materials-%s-%s.zip", customer, date))
}

// Bundle packs artifacts into one archive at path, each under its Name, then removes the inputs.
// Inputs are left in place if the archive cannot be written. Inputs that cannot be removed are logged.
func Bundle(path string, artifacts []Artifact, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	members := make([]Member, 0, len(artifacts))
	for _, a := range artifacts {
		body, err := os.ReadFile(a.Path)
		if err != nil {
			return fmt.Errorf("read %s: %w", a.Name, err)
		}
		members = append(members, Member{Name: a.Name, Body: body})
	}
	if err := WriteArchive(path, members); err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := os.Remove(a.Path); err != nil {
			logger.Warn("remove bundled artifact", zap.String("path", a.Path), zap.Error(err))
		}
	}
	return nil
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// TemplateType identifies how a template is merged with workshop data.
type TemplateType string

const (
	TemplatePDF          TemplateType = "pdf"
	TemplatePresentation TemplateType = "presentation"
)

// ParseTemplateType normalizes a form value; "powerpoint" is accepted for presentation.
func ParseTemplateType(s string) (TemplateType, bool) {
	switch s {
	case "pdf":
		return TemplatePDF, true
	case "presentation", "powerpoint":
		return TemplatePresentation, true
	}
	return "", false
}

// Template is an uploaded handout or slide deck with its placeholder mapping notes.
type Template struct {
	ID               uuid.UUID    `json:"id"`
	Name             string       `json:"template_name"`
	Type             TemplateType `json:"template_type"`
	FilePath         string       `json:"-"`
	OriginalFilename string       `json:"original_filename"`
	FieldMappings    string       `json:"field_mappings"`
	IsActive         bool         `json:"is_active"`
	MirrorKey        string       `json:"mirror_key,omitempty"`
	UploadedAt       time.Time    `json:"upload_date"`
}

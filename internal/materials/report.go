package materials

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var labelCaser = cases.Title(language.English)

// Label turns a token name into a heading, e.g. "instructor_cfp_id" -> "Instructor Cfp Id".
func Label(token string) string {
	return labelCaser.String(strings.ReplaceAll(token, "_", " "))
}

// PlainTextMaterials is the handout written for PDF templates: every non-empty value, one per line.
func PlainTextMaterials(values Values) string {
	var b strings.Builder
	b.WriteString("WORKSHOP MATERIALS\n")
	b.WriteString("==================\n\n")
	b.WriteString("Generated from template with workshop data:\n\n")
	for _, k := range values.Keys() {
		if v := values[k]; v != "" {
			fmt.Fprintf(&b, "%s: %s\n", Label(k), v)
		}
	}
	b.WriteString("\n\n[Placeholder handout. The template design is not overlaid; the workshop data above fills its declared fields.]\n")
	return b.String()
}

// DetailedSlidesReport is written when neither the template nor the scratch builder produced a presentation.
func DetailedSlidesReport(values Values, mappings *PlaceholderMap, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("WORKSHOP PRESENTATION SLIDES - DETAILED GENERATION LOG\n")
	b.WriteString("=====================================================\n\n")
	b.WriteString("Template Processing Result: presentation generation attempted\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("WORKSHOP DETAILS:\n")
	b.WriteString("-----------------\n")
	for _, k := range values.Keys() {
		if v := values[k]; v != "" {
			fmt.Fprintf(&b, "%-20s: %s\n", Label(k), v)
		}
	}

	b.WriteString("\nFIELD MAPPINGS FOUND:\n")
	b.WriteString("---------------------\n")
	if mappings == nil || mappings.Len() == 0 {
		b.WriteString("No field mappings defined in template.\n")
	} else {
		for _, m := range mappings.Items() {
			fmt.Fprintf(&b, "%-20s: %s\n", m.Placeholder, m.Description)
		}
	}

	b.WriteString("\nNOTE: This is a fallback text file. To generate presentation files:\n")
	b.WriteString("1. Ensure your template contains placeholders like {{workshop_date}} on its slides\n")
	b.WriteString("2. Verify the template file is a valid .pptx file\n")
	b.WriteString("3. Check that the generated materials directory is writable\n")
	return b.String()
}

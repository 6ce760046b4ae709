package materials

import (
	"bytes"
	"fmt"
	"text/template"
)

// Part names of the minimal presentation package.
const (
	PartContentTypes      = "[Content_Types].xml"
	PartPackageRels       = "_rels/.rels"
	PartPresentation      = "ppt/presentation.xml"
	PartPresentationRels  = "ppt/_rels/presentation.xml.rels"
	PartSlide             = "ppt/slides/slide1.xml"
	PartTheme             = "ppt/theme/theme1.xml"
	defaultSlideTitle     = "Ethics Workshop"
	slideTitleSuffix      = " Workshop"
	slideTitleSize        = 4400
	slideDateSize         = 2800
	slideDetailSize       = 2400
	xmlDeclaration        = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	nsPresentationML      = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML           = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsOfficeRelationships = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// SkeletonParts lists every member of a scratch presentation in write order.
var SkeletonParts = []string{
	PartContentTypes,
	PartPackageRels,
	PartPresentationRels,
	PartPresentation,
	PartSlide,
	PartTheme,
}

var fixedParts = map[string]string{
	PartContentTypes: xmlDeclaration + `<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-presentationml.presentation.main+xml"/>
  <Override PartName="/ppt/slides/slide1.xml" ContentType="application/vnd.openxmlformats-presentationml.slide+xml"/>
  <Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>
</Types>`,
	PartPackageRels: xmlDeclaration + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="` + nsOfficeRelationships + `/officeDocument" Target="ppt/presentation.xml"/>
</Relationships>`,
	PartPresentationRels: xmlDeclaration + `<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="` + nsOfficeRelationships + `/slide" Target="slides/slide1.xml"/>
  <Relationship Id="rId2" Type="` + nsOfficeRelationships + `/theme" Target="theme/theme1.xml"/>
</Relationships>`,
	PartPresentation: xmlDeclaration + `<p:presentation xmlns:p="` + nsPresentationML + `" xmlns:r="` + nsOfficeRelationships + `">
  <p:sldMasterIdLst/>
  <p:sldIdLst>
    <p:sldId id="256" r:id="rId1"/>
  </p:sldIdLst>
  <p:sldSz cx="9144000" cy="6858000"/>
</p:presentation>`,
	PartTheme: xmlDeclaration + `<a:theme xmlns:a="` + nsDrawingML + `" name="Office Theme">
  <a:themeElements>
    <a:clrScheme name="Office">
      <a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>
      <a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>
    </a:clrScheme>
    <a:fontScheme name="Office">
      <a:majorFont><a:latin typeface="Calibri Light"/></a:majorFont>
      <a:minorFont><a:latin typeface="Calibri"/></a:minorFont>
    </a:fontScheme>
    <a:fmtScheme name="Office"/>
  </a:themeElements>
</a:theme>`,
}

var slideTemplate = template.Must(template.New("slide").Funcs(template.FuncMap{"escape": Escape}).Parse(
	xmlDeclaration + `<p:sld xmlns:p="{{.NSP}}" xmlns:a="{{.NSA}}" xmlns:r="{{.NSR}}">
  <p:cSld>
    <p:spTree>
      <p:nvGrpSpPr>
        <p:cNvPr id="1" name=""/>
        <p:cNvGrpSpPr/>
        <p:nvPr/>
      </p:nvGrpSpPr>
      <p:grpSpPr>
        <a:xfrm>
          <a:off x="0" y="0"/>
          <a:ext cx="0" cy="0"/>
          <a:chOff x="0" y="0"/>
          <a:chExt cx="0" cy="0"/>
        </a:xfrm>
      </p:grpSpPr>
      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="2" name="Title"/>
          <p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr>
          <p:nvPr><p:ph type="ctrTitle"/></p:nvPr>
        </p:nvSpPr>
        <p:spPr/>
        <p:txBody>
          <a:bodyPr/>
          <a:lstStyle/>
          <a:p><a:r><a:rPr lang="en-US" sz="{{.TitleSize}}" b="1"/><a:t>{{escape .Content.Title}}</a:t></a:r></a:p>
        </p:txBody>
      </p:sp>
      <p:sp>
        <p:nvSpPr>
          <p:cNvPr id="3" name="Content"/>
          <p:cNvSpPr><a:spLocks noGrp="1"/></p:cNvSpPr>
          <p:nvPr><p:ph type="body" idx="1"/></p:nvPr>
        </p:nvSpPr>
        <p:spPr/>
        <p:txBody>
          <a:bodyPr/>
          <a:lstStyle/>
{{- range .Content.Lines}}
          <a:p><a:r><a:rPr lang="en-US" sz="{{.Size}}"/><a:t>{{escape .Text}}</a:t></a:r></a:p>
{{- else}}
          <a:p/>
{{- end}}
        </p:txBody>
      </p:sp>
    </p:spTree>
  </p:cSld>
</p:sld>`))

// SlideLine is one paragraph of the generated slide body.
type SlideLine struct {
	Text string
	Size int
}

// SlideContent is the text placed on the generated slide, before escaping.
type SlideContent struct {
	Title string
	Lines []SlideLine
}

// SlideContentFor picks the title and body lines for values. Empty lines are omitted.
func SlideContentFor(values Values) SlideContent {
	c := SlideContent{Title: defaultSlideTitle}
	if name := values[TokenChapterName]; name != "" {
		c.Title = name + slideTitleSuffix
	}
	if d := values[TokenWorkshopDate]; d != "" {
		c.Lines = append(c.Lines, SlideLine{Text: d, Size: slideDateSize})
	}
	if in := values[TokenInstructorName]; in != "" {
		c.Lines = append(c.Lines, SlideLine{Text: "Instructor: " + in, Size: slideDetailSize})
	}
	if loc := values[TokenLocation]; loc != "" {
		c.Lines = append(c.Lines, SlideLine{Text: "Location: " + loc, Size: slideDetailSize})
	}
	return c
}

// RenderSlide produces the slide part for content.
func RenderSlide(content SlideContent) ([]byte, error) {
	var buf bytes.Buffer
	err := slideTemplate.Execute(&buf, struct {
		NSP, NSA, NSR string
		TitleSize     int
		Content       SlideContent
	}{nsPresentationML, nsDrawingML, nsOfficeRelationships, slideTitleSize, content})
	if err != nil {
		return nil, fmt.Errorf("render slide: %w", err)
	}
	return buf.Bytes(), nil
}

// ScratchMembers returns the complete member list of a single-slide presentation for values.
func ScratchMembers(values Values) ([]Member, error) {
	slide, err := RenderSlide(SlideContentFor(values))
	if err != nil {
		return nil, err
	}
	members := make([]Member, 0, len(SkeletonParts))
	for _, name := range SkeletonParts {
		body := []byte(fixedParts[name])
		if name == PartSlide {
			body = slide
		}
		members = append(members, Member{Name: name, Body: body})
	}
	return members, nil
}

// BuildScratchPresentation writes a minimal single-slide presentation for values to outputPath.
func BuildScratchPresentation(outputPath string, values Values) error {
	members, err := ScratchMembers(values)
	if err != nil {
		return err
	}
	return WriteArchive(outputPath, members)
}

package materials

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const templateSlide = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<p:sld xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main" xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main">
<p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>{{chapter_name}} presents</a:t></a:r></a:p>
<a:p><a:r><a:t>Led by {{ INSTRUCTOR_NAME }}</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld>
</p:sld>`

const staticSlide = `<p:sld><a:t>Agenda</a:t></p:sld>`

func readMember(t *testing.T, archive, name string) string {
	t.Helper()
	zr, err := zip.OpenReader(archive)
	require.NoError(t, err)
	defer zr.Close()
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		b, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(b)
	}
	t.Fatalf("member %s not found in %s", name, archive)
	return ""
}

func scratchEntries(t *testing.T, root string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return entries
}

func TestProcessPersonalizesSlides(t *testing.T) {
	dir := t.TempDir()
	scratchRoot := filepath.Join(dir, "scratch")
	tpl := filepath.Join(dir, "template.pptx")
	writeZip(t, tpl,
		Member{Name: "[Content_Types].xml", Body: []byte(fixedParts[PartContentTypes])},
		Member{Name: "ppt/slides/slide1.xml", Body: []byte(templateSlide)},
		Member{Name: "ppt/slides/slide2.xml", Body: []byte(staticSlide)},
		Member{Name: "ppt/slideMasters/slideMaster1.xml", Body: []byte(`<p:sldMaster><a:t>{{workshop_date}}</a:t></p:sldMaster>`)},
	)
	before, err := os.ReadFile(tpl)
	require.NoError(t, err)

	p := NewTemplateProcessor(scratchRoot, zaptest.NewLogger(t))
	out := filepath.Join(dir, "out.pptx")
	ok, err := p.Process(tpl, out, sampleValues())
	require.NoError(t, err)
	require.True(t, ok)

	slide := readMember(t, out, "ppt/slides/slide1.xml")
	assert.Contains(t, slide, "Rocky Mountain FPA presents")
	assert.Contains(t, slide, "Led by Jane Doe")
	assertWellFormed(t, "slide1", []byte(slide))
	assert.Equal(t, staticSlide, readMember(t, out, "ppt/slides/slide2.xml"))
	assert.Contains(t, readMember(t, out, "ppt/slideMasters/slideMaster1.xml"), "March 14, 2025")

	after, err := os.ReadFile(tpl)
	require.NoError(t, err)
	assert.Equal(t, before, after, "template file is never modified")
	assert.Empty(t, scratchEntries(t, scratchRoot))
}

func TestProcessMasterOnlyChangesFail(t *testing.T) {
	dir := t.TempDir()
	scratchRoot := filepath.Join(dir, "scratch")
	tpl := filepath.Join(dir, "template.pptx")
	writeZip(t, tpl,
		Member{Name: "ppt/slides/slide1.xml", Body: []byte(staticSlide)},
		Member{Name: "ppt/slideLayouts/slideLayout1.xml", Body: []byte(`<p:sldLayout><a:t>{{chapter_name}}</a:t></p:sldLayout>`)},
	)

	out := filepath.Join(dir, "out.pptx")
	ok, err := NewTemplateProcessor(scratchRoot, zaptest.NewLogger(t)).Process(tpl, out, sampleValues())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoFileExists(t, out)
	assert.Empty(t, scratchEntries(t, scratchRoot))
}

func TestProcessMissingTemplate(t *testing.T) {
	dir := t.TempDir()
	scratchRoot := filepath.Join(dir, "scratch")
	p := NewTemplateProcessor(scratchRoot, zaptest.NewLogger(t))

	ok, err := p.Process(filepath.Join(dir, "gone.pptx"), filepath.Join(dir, "out.pptx"), sampleValues())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoDirExists(t, scratchRoot)

	out := filepath.Join(dir, "fallback.pptx")
	require.NoError(t, BuildScratchPresentation(out, sampleValues()))
	assert.FileExists(t, out)
}

func TestProcessCorruptTemplate(t *testing.T) {
	dir := t.TempDir()
	scratchRoot := filepath.Join(dir, "scratch")
	tpl := filepath.Join(dir, "broken.pptx")
	require.NoError(t, os.WriteFile(tpl, []byte("PK not really"), 0o644))

	ok, err := NewTemplateProcessor(scratchRoot, zaptest.NewLogger(t)).Process(tpl, filepath.Join(dir, "out.pptx"), sampleValues())
	assert.False(t, ok)
	require.ErrorIs(t, err, ErrCorruptArchive)
	var se *StepError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StepExtract, se.Step)
	assert.Empty(t, scratchEntries(t, scratchRoot))
}

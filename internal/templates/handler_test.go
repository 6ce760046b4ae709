package templates

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/bhfe/cfp-workshops/internal/materials"
	"github.com/bhfe/cfp-workshops/internal/models"
	"github.com/bhfe/cfp-workshops/pkg/queue"
)

type memStore struct {
	rows      map[uuid.UUID]*models.Template
	createErr error
}

func newMemStore() *memStore { return &memStore{rows: make(map[uuid.UUID]*models.Template)} }

func (m *memStore) Create(_ context.Context, t *models.Template) error {
	if m.createErr != nil {
		return m.createErr
	}
	t.ID = uuid.New()
	t.IsActive = true
	t.UploadedAt = time.Now()
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memStore) List(context.Context) ([]models.Template, error) {
	var out []models.Template
	for _, t := range m.rows {
		out = append(out, *t)
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Template, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memStore) Toggle(_ context.Context, id uuid.UUID) (*models.Template, error) {
	t, ok := m.rows[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	t.IsActive = !t.IsActive
	cp := *t
	return &cp, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.rows[id]; !ok {
		return models.ErrNotFound
	}
	delete(m.rows, id)
	return nil
}

type fakeMirror struct{ jobs []queue.TemplateMirrorPayload }

func (f *fakeMirror) EnqueueTemplateMirror(_ context.Context, p queue.TemplateMirrorPayload) error {
	f.jobs = append(f.jobs, p)
	return nil
}

type fakeObjects struct{ deleted []string }

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeObjects) PresignDownload(_ context.Context, key, _ string) (string, error) {
	return "https://bucket.example/" + key + "?sig=1", nil
}

type fixture struct {
	router  *gin.Engine
	store   *memStore
	mirror  *fakeMirror
	objects *fakeObjects
	dir     string
}

func newFixture(t *testing.T, maxBytes int64) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{store: newMemStore(), mirror: &fakeMirror{}, objects: &fakeObjects{}, dir: filepath.Join(t.TempDir(), "templates")}
	h := NewHandler(f.store, f.dir, maxBytes, f.mirror, f.objects, zaptest.NewLogger(t))
	h.newID = func() uuid.UUID { return uuid.MustParse("11111111-2222-3333-4444-555555555555") }
	r := gin.New()
	r.POST("/templates", h.Upload)
	r.GET("/templates", h.List)
	r.POST("/templates/:id/toggle", h.Toggle)
	r.DELETE("/templates/:id", h.Delete)
	r.GET("/templates/:id/download", h.Download)
	r.GET("/templates/:id/placeholders", h.Placeholders)
	f.router = r
	return f
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func uploadRequest(t *testing.T, fields map[string]string, filename string, body []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/templates", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func presentationBytes(t *testing.T) []byte {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	require.NoError(t, materials.WriteArchive(path, []materials.Member{
		{Name: "ppt/slides/slide1.xml", Body: []byte("<a:t>{{chapter_name}}</a:t>")},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}

func TestCheckExtension(t *testing.T) {
	assert.NoError(t, CheckExtension(models.TemplatePDF, "Handout.PDF"))
	assert.NoError(t, CheckExtension(models.TemplatePresentation, "deck.ppt"))
	assert.NoError(t, CheckExtension(models.TemplatePresentation, "deck.pptx"))
	assert.Error(t, CheckExtension(models.TemplatePDF, "deck.pptx"))
	assert.Error(t, CheckExtension(models.TemplatePresentation, "notes.docx"))
}

func TestStoredFilename(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "cfp_template_11111111-2222-3333-4444-555555555555.pptx", StoredFilename(id, ".PPTX"))
}

func TestUploadStoresAndEnqueuesMirror(t *testing.T) {
	f := newFixture(t, 1<<20)
	rec := f.do(uploadRequest(t, map[string]string{
		"template_name":  "Slides",
		"template_type":  "powerpoint",
		"field_mappings": "{{chapter_name}} Chapter",
	}, "Deck Final.pptx", presentationBytes(t)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	require.Len(t, f.store.rows, 1)
	var tmpl *models.Template
	for _, v := range f.store.rows {
		tmpl = v
	}
	assert.Equal(t, models.TemplatePresentation, tmpl.Type)
	assert.Equal(t, "Deck Final.pptx", tmpl.OriginalFilename)
	assert.Equal(t, filepath.Join(f.dir, "cfp_template_11111111-2222-3333-4444-555555555555.pptx"), tmpl.FilePath)
	assert.FileExists(t, tmpl.FilePath)

	require.Len(t, f.mirror.jobs, 1)
	assert.Equal(t, tmpl.ID, f.mirror.jobs[0].TemplateID)
	assert.Equal(t, tmpl.FilePath, f.mirror.jobs[0].FilePath)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/templates/"+tmpl.ID.String()+"/placeholders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"member":"ppt/slides/slide1.xml"`)
}

func TestUploadValidation(t *testing.T) {
	f := newFixture(t, 16)
	cases := []struct {
		name   string
		fields map[string]string
		file   string
		body   []byte
		status int
	}{
		{"missing name", map[string]string{"template_type": "pdf"}, "a.pdf", []byte("x"), http.StatusBadRequest},
		{"bad type", map[string]string{"template_name": "A", "template_type": "doc"}, "a.pdf", []byte("x"), http.StatusBadRequest},
		{"missing file", map[string]string{"template_name": "A", "template_type": "pdf"}, "", nil, http.StatusBadRequest},
		{"mismatched extension", map[string]string{"template_name": "A", "template_type": "pdf"}, "a.pptx", []byte("x"), http.StatusBadRequest},
		{"too large", map[string]string{"template_name": "A", "template_type": "pdf"}, "a.pdf", bytes.Repeat([]byte("x"), 64), http.StatusRequestEntityTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(uploadRequest(t, tc.fields, tc.file, tc.body))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
	assert.Empty(t, f.store.rows)
	assert.Empty(t, f.mirror.jobs)
}

func TestUploadInsertFailureRemovesFile(t *testing.T) {
	f := newFixture(t, 0)
	f.store.createErr = errors.New("db down")
	rec := f.do(uploadRequest(t, map[string]string{"template_name": "A", "template_type": "pdf"}, "a.pdf", []byte("%PDF")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, f.mirror.jobs)
}

func seed(t *testing.T, f *fixture, mirrorKey string, withFile bool) *models.Template {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfp_template_x.pdf")
	if withFile {
		require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	}
	tmpl := &models.Template{Name: "Handout", Type: models.TemplatePDF, FilePath: path, OriginalFilename: "handout.pdf", MirrorKey: mirrorKey}
	require.NoError(t, f.store.Create(context.Background(), tmpl))
	return tmpl
}

func TestDownloadLocalFile(t *testing.T) {
	f := newFixture(t, 0)
	tmpl := seed(t, f, "", true)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/templates/"+tmpl.ID.String()+"/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "handout.pdf")
	assert.FileExists(t, tmpl.FilePath)
}

func TestDownloadFallsBackToMirror(t *testing.T) {
	f := newFixture(t, 0)
	tmpl := seed(t, f, "templates/abc/handout.pdf", false)
	rec := f.do(httptest.NewRequest(http.MethodGet, "/templates/"+tmpl.ID.String()+"/download", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://bucket.example/templates/abc/handout.pdf?sig=1", rec.Header().Get("Location"))

	missing := seed(t, f, "", false)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/templates/"+missing.ID.String()+"/download", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleAndDelete(t *testing.T) {
	f := newFixture(t, 0)
	tmpl := seed(t, f, "templates/abc/handout.pdf", true)

	rec := f.do(httptest.NewRequest(http.MethodPost, "/templates/"+tmpl.ID.String()+"/toggle", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.store.rows[tmpl.ID].IsActive)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/templates/"+tmpl.ID.String(), nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, f.store.rows)
	assert.NoFileExists(t, tmpl.FilePath)
	assert.Equal(t, []string{"templates/abc/handout.pdf"}, f.objects.deleted)

	assert.Equal(t, http.StatusNotFound, f.do(httptest.NewRequest(http.MethodDelete, "/templates/"+tmpl.ID.String(), nil)).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(httptest.NewRequest(http.MethodPost, "/templates/bad/toggle", nil)).Code)
}

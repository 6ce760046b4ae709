package importer

import (
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bhfe/cfp-workshops/pkg/response"
)

// Handler exposes CSV import over HTTP.
type Handler struct {
	importer *Importer
	logger   *zap.Logger
}

// NewHandler creates an import handler.
func NewHandler(importer *Importer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{importer: importer, logger: logger}
}

// Import handles POST /workshops/import (multipart field: import_file).
func (h *Handler) Import(c *gin.Context) {
	fh, err := c.FormFile("import_file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: import_file)")
		return
	}
	if !strings.EqualFold(filepath.Ext(fh.Filename), ".csv") {
		response.BadRequest(c, "For Excel files, please first export to CSV format and then import.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "could not open file")
		return
	}
	defer f.Close()

	res, err := h.importer.Import(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("workshop import", zap.Error(err), zap.Int("imported", res.Imported), zap.Int("updated", res.Updated))
		response.Internal(c, "import failed: "+err.Error())
		return
	}
	response.OK(c, res)
}

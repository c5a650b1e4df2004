package handler

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/edupulse/wellness-api/pkg/errors"
	"github.com/edupulse/wellness-api/pkg/response"
)

type exportService interface {
	OpenExport(token string) (io.ReadCloser, string, error)
}

// ExportHandler streams stored weekly exports to holders of a valid signed
// token.
type ExportHandler struct {
	service exportService
}

func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Download validates the token and streams the file.
func (h *ExportHandler) Download(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}

	file, relPath, err := h.service.OpenExport(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	filename := filepath.Base(relPath)
	contentType := "application/octet-stream"
	switch filepath.Ext(filename) {
	case ".csv":
		contentType = "text/csv"
	case ".pdf":
		contentType = "application/pdf"
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

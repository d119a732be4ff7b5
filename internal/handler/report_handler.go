package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"propveris/internal/report"
)

// ReportHandler handles verification history export endpoints.
type ReportHandler struct {
	reportService *report.Service
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reportService *report.Service) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// Export handles GET /api/v1/verifications/export and streams an XLSX
// workbook of verification history.
func (h *ReportHandler) Export(c *gin.Context) {
	data, err := h.reportService.ExportVerificationsXLSX(c.Request.Context())
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := fmt.Sprintf("verifications-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

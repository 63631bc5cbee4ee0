package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hermes-backend/services"
)

// AdminController exposes dashboard counts and snapshot exports.
type AdminController struct {
	admin   *services.AdminService
	export  *services.ExportService
	records map[string]*services.RecordService
}

// NewAdminController wires the admin handlers. export may be nil when no
// bucket is configured.
func NewAdminController(admin *services.AdminService, export *services.ExportService, records map[string]*services.RecordService) *AdminController {
	return &AdminController{admin: admin, export: export, records: records}
}

func (h *AdminController) GetAdminMetricsHandler(c *gin.Context) {
	metrics, err := h.admin.GetAdminMetrics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": metrics})
}

// ExportHandler uploads a snapshot of :variant to S3.
func (h *AdminController) ExportHandler(c *gin.Context) {
	if h.export == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "Export tidak dikonfigurasi (AWS_BUCKET_NAME kosong)"})
		return
	}
	records, ok := h.records[c.Param("variant")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Variant tidak dikenal"})
		return
	}

	res, err := h.export.Export(c.Request.Context(), records)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "message": "Gagal mengekspor data", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": res})
}

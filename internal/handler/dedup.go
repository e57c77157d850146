package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"asset-dedup/internal/model"
	"asset-dedup/pkg/errors"
	"asset-dedup/pkg/validator"
)

// DedupService runs duplicate checks and removals.
type DedupService interface {
	Run(ctx context.Context, mode model.Mode, scope []string, ids []int64) (*model.Report, error)
	Inventory(ctx context.Context, prefix string) ([]model.AssetUsage, error)
}

// AssetUploader stores and catalogs a new asset.
type AssetUploader interface {
	Upload(ctx context.Context, reader io.Reader, filename, folder string) (*model.Asset, error)
}

// ReportSaver persists a report artifact. May be nil.
type ReportSaver interface {
	Write(r *model.Report) (string, error)
}

type DedupHandler struct {
	dedup    DedupService
	uploader AssetUploader
	reports  ReportSaver
	logger   *zap.Logger
}

func NewDedupHandler(dedup DedupService, uploader AssetUploader, reports ReportSaver, logger *zap.Logger) *DedupHandler {
	return &DedupHandler{
		dedup:    dedup,
		uploader: uploader,
		reports:  reports,
		logger:   logger,
	}
}

// Register mounts the admin routes on r.
func (h *DedupHandler) Register(r gin.IRouter) {
	api := r.Group("/api/v1")
	{
		api.POST("/duplicates", h.Duplicates)
		api.GET("/assets", h.ListAssets)
		api.POST("/assets", h.Upload)
	}
}

type duplicatesRequest struct {
	FolderPath string  `json:"folderPath"`
	Action     string  `json:"action"`
	RemoveIDs  []int64 `json:"removeIds"`
}

// Duplicates runs a check over folderPath, or removes removeIds.
func (h *DedupHandler) Duplicates(c *gin.Context) {
	var req duplicatesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var (
		mode  model.Mode
		scope []string
	)
	switch req.Action {
	case "", string(model.ModeCheck):
		mode = model.ModeCheck
		if folder := strings.TrimSpace(req.FolderPath); folder != "" {
			scope = []string{folder}
		}
	case string(model.ModeRemove):
		mode = model.ModeRemove
		if len(req.RemoveIDs) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "removeIds required for remove"})
			return
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown action: %s", req.Action)})
		return
	}

	report, err := h.dedup.Run(c.Request.Context(), mode, scope, req.RemoveIDs)
	if err != nil {
		h.logger.Error("dedup run failed", zap.Error(err), zap.String("action", string(mode)))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errors.SanitizeError(err)})
		return
	}

	if h.reports != nil {
		if _, err := h.reports.Write(report); err != nil {
			// The run already happened; the response still carries the report
			h.logger.Error("failed to save report", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, report)
}

// ListAssets returns catalog entries under ?prefix= with usage counts.
func (h *DedupHandler) ListAssets(c *gin.Context) {
	prefix := c.Query("prefix")

	assets, err := h.dedup.Inventory(c.Request.Context(), prefix)
	if err != nil {
		h.logger.Error("inventory failed", zap.Error(err), zap.String("prefix", prefix))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errors.SanitizeError(err)})
		return
	}

	unused := 0
	for _, a := range assets {
		if a.UsageCount == 0 {
			unused++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"assets": assets,
		"total":  len(assets),
		"unused": unused,
	})
}

// Upload stores a multipart "file" under the "folder" form field.
func (h *DedupHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.logger.Error("failed to get form file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file upload"})
		return
	}

	if err := validator.ValidateImage(file.Filename, file.Size); err != nil {
		h.logger.Warn("upload rejected", zap.Error(err), zap.String("filename", file.Filename))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reader, err := file.Open()
	if err != nil {
		h.logger.Error("failed to open uploaded file", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to process file"})
		return
	}
	defer reader.Close()

	asset, err := h.uploader.Upload(c.Request.Context(), reader, file.Filename, c.PostForm("folder"))
	if err != nil {
		h.logger.Error("upload failed", zap.Error(err), zap.String("filename", file.Filename))
		c.JSON(http.StatusInternalServerError, gin.H{"error": errors.SanitizeError(err)})
		return
	}

	c.JSON(http.StatusCreated, asset)
}

// Health reports liveness.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "asset-dedup",
	})
}

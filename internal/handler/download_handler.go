package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wms-imagery/internal/dto"
	"github.com/noah-isme/wms-imagery/internal/models"
	"github.com/noah-isme/wms-imagery/internal/service"
	appErrors "github.com/noah-isme/wms-imagery/pkg/errors"
	"github.com/noah-isme/wms-imagery/pkg/response"
)

type downloadService interface {
	Intervals(rawDate string, final bool) (*dto.IntervalsResponse, error)
	StartRequest(ctx context.Context, req dto.DownloadRequest) (*models.Run, error)
	Get(ctx context.Context, id string) (*models.Run, error)
}

type tileLinker interface {
	Links(run *models.Run) ([]dto.TileLink, error)
	Open(token string) (*os.File, string, error)
}

type manifestGenerator interface {
	Generate(run *models.Run, format models.ManifestFormat) (*service.ManifestResult, error)
	Open(relPath string) (*os.File, error)
}

// DownloadHandler exposes interval listing, download runs and tile retrieval.
type DownloadHandler struct {
	downloads downloadService
	tiles     tileLinker
	manifests manifestGenerator
	apiPrefix string
}

// NewDownloadHandler constructs the handler.
func NewDownloadHandler(downloads downloadService, tiles tileLinker, manifests manifestGenerator, apiPrefix string) *DownloadHandler {
	return &DownloadHandler{downloads: downloads, tiles: tiles, manifests: manifests, apiPrefix: strings.TrimRight(apiPrefix, "/")}
}

// Intervals godoc
// @Summary List half-hour slot labels for a date
// @Tags Intervals
// @Produce json
// @Param date query string true "Date (YYYYMMDD)"
// @Param final query bool false "Treat the date as the last day of a range"
// @Success 200 {object} response.Envelope
// @Router /intervals [get]
func (h *DownloadHandler) Intervals(c *gin.Context) {
	date := c.Query("date")
	if strings.TrimSpace(date) == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date is required"))
		return
	}
	final := false
	if raw := c.Query("final"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "final must be a boolean"))
			return
		}
		final = parsed
	}
	result, err := h.downloads.Intervals(date, final)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Create godoc
// @Summary Start a download run over an inclusive date range
// @Tags Downloads
// @Accept json
// @Produce json
// @Param payload body dto.DownloadRequest true "Date range"
// @Success 202 {object} response.Envelope
// @Router /downloads [post]
func (h *DownloadHandler) Create(c *gin.Context) {
	var req dto.DownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid request body"))
		return
	}
	run, err := h.downloads.StartRequest(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, run, fmt.Sprintf("%s/downloads/%s", h.apiPrefix, run.ID))
}

// Get godoc
// @Summary Download run status with signed tile links
// @Tags Downloads
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /downloads/{id} [get]
func (h *DownloadHandler) Get(c *gin.Context) {
	run, err := h.downloads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	out := dto.RunResponse{Run: run}
	if h.tiles != nil {
		links, err := h.tiles.Links(run)
		if err != nil {
			response.Error(c, err)
			return
		}
		out.Links = links
	}
	response.JSON(c, http.StatusOK, out)
}

// Manifest godoc
// @Summary Download the run manifest
// @Tags Downloads
// @Produce octet-stream
// @Param id path string true "Run ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} binary
// @Router /downloads/{id}/manifest [get]
func (h *DownloadHandler) Manifest(c *gin.Context) {
	if h.manifests == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "manifest service not configured"))
		return
	}
	format, ok := models.ParseManifestFormat(c.Query("format"))
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf"))
		return
	}
	run, err := h.downloads.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !run.Done() {
		response.Error(c, appErrors.Clone(appErrors.ErrConflict, "run is still in progress"))
		return
	}
	result, err := h.manifests.Generate(run, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.manifests.Open(result.RelativePath)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open manifest"))
		return
	}
	defer file.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", path.Base(result.RelativePath)))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, int64(result.Size), format.ContentType(), file, nil)
}

// Tile godoc
// @Summary Download a saved tile via signed token
// @Tags Tiles
// @Produce png
// @Param token path string true "Signed token"
// @Success 200 {file} binary
// @Router /tiles/{token} [get]
func (h *DownloadHandler) Tile(c *gin.Context) {
	if h.tiles == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "tile service not configured"))
		return
	}
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, name, err := h.tiles.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat tile"))
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", path.Base(name)))
	c.Header("Cache-Control", "private, max-age=300")
	c.DataFromReader(http.StatusOK, info.Size(), "image/png", file, nil)
}

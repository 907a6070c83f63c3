package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/wms-imagery/internal/dto"
	"github.com/noah-isme/wms-imagery/pkg/response"
)

type recordReader interface {
	ByRun(ctx context.Context, runID string) (*dto.RunRecordsResponse, error)
}

// RecordHandler serves the fetch ledger of a run.
type RecordHandler struct {
	records recordReader
}

// NewRecordHandler constructs the handler.
func NewRecordHandler(records recordReader) *RecordHandler {
	return &RecordHandler{records: records}
}

// List godoc
// @Summary Fetch ledger rows of a download run
// @Tags Downloads
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /downloads/{id}/records [get]
func (h *RecordHandler) List(c *gin.Context) {
	out, err := h.records.ByRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, out)
}

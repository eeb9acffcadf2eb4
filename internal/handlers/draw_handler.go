package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ArowuTest/prizedraw-engine/internal/models"
	"github.com/ArowuTest/prizedraw-engine/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// DrawHandler handles draw-related HTTP requests
type DrawHandler struct {
	drawService services.DrawService
}

// NewDrawHandler creates a new DrawHandler
func NewDrawHandler(drawService services.DrawService) *DrawHandler {
	return &DrawHandler{
		drawService: drawService,
	}
}

// CreateDraw handles POST /draws
func (h *DrawHandler) CreateDraw(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	var request services.CreateDrawInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	draw, err := h.drawService.CreateDraw(c.Request.Context(), cl, request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, draw)
}

// ListDraws handles GET /draws
func (h *DrawHandler) ListDraws(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	draws, err := h.drawService.ListDraws(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draws)
}

// GetDraw handles GET /draws/:id
func (h *DrawHandler) GetDraw(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	draw, err := h.drawService.GetDraw(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// AnnounceDraw handles POST /draws/:id/announce
func (h *DrawHandler) AnnounceDraw(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	draw, err := h.drawService.AnnounceDraw(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// RevertDraw handles POST /draws/:id/revert
func (h *DrawHandler) RevertDraw(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	draw, err := h.drawService.RevertDraw(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, draw)
}

// CreatePrize handles POST /draws/:id/prizes
func (h *DrawHandler) CreatePrize(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	drawID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request services.CreatePrizeInput
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	request.DrawID = drawID
	request.AwardKind = models.AwardKind(strings.ToUpper(string(request.AwardKind)))

	prize, err := h.drawService.CreatePrize(c.Request.Context(), cl, request)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, prize)
}

// ListPrizes handles GET /draws/:id/prizes
func (h *DrawHandler) ListPrizes(c *gin.Context) {
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	prizes, err := h.drawService.ListPrizes(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prizes)
}

// DeactivatePrize handles POST /prizes/:id/deactivate
func (h *DrawHandler) DeactivatePrize(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	prize, err := h.drawService.DeactivatePrize(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, prize)
}

// EnterDraw handles POST /draws/:id/entries
func (h *DrawHandler) EnterDraw(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	entry, err := h.drawService.EnterDraw(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

// RunSelection handles POST /draws/:id/selection.
// A partial failure still returns the prizes that were processed.
func (h *DrawHandler) RunSelection(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.drawService.RunSelection(c.Request.Context(), cl, id)
	if err != nil {
		if result != nil && len(result.Prizes) > 0 {
			slog.Error("Selection partially failed", "error", err, "drawId", id.Hex(), "requestId", c.GetString("RequestID"))
			c.JSON(http.StatusMultiStatus, gin.H{"error": "selection partially failed", "result": result})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ExpireAndRedraw handles POST /draws/:id/expire
func (h *DrawHandler) ExpireAndRedraw(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.drawService.ExpireAndRedraw(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListWinners handles GET /draws/:id/winners
func (h *DrawHandler) ListWinners(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	winners, err := h.drawService.ListWinners(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winners)
}

// AssignWinnerRequest is the body of POST /prizes/:id/winners
type AssignWinnerRequest struct {
	MemberID string `json:"memberId" binding:"required"`
}

// AssignManualWinner handles POST /prizes/:id/winners
func (h *DrawHandler) AssignManualWinner(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	prizeID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var request AssignWinnerRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	winner, err := h.drawService.AssignManualWinner(c.Request.Context(), cl, prizeID, request.MemberID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, winner)
}

// Claim handles POST /winners/:id/claim
func (h *DrawHandler) Claim(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	winner, err := h.drawService.Claim(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// MarkPaid handles POST /winners/:id/payout
func (h *DrawHandler) MarkPaid(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	id, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	winner, err := h.drawService.MarkPaid(c.Request.Context(), cl, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, winner)
}

// ListRollovers handles GET /rollovers?awardKind=&status=
func (h *DrawHandler) ListRollovers(c *gin.Context) {
	cl, ok := caller(c)
	if !ok {
		return
	}
	kind := models.AwardKind(strings.ToUpper(c.Query("awardKind")))
	status := models.RolloverStatus(strings.ToUpper(c.Query("status")))

	entries, err := h.drawService.ListRollovers(c.Request.Context(), cl, kind, status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

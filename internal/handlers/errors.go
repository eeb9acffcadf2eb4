package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/prizedraw-engine/internal/middleware"
	"github.com/ArowuTest/prizedraw-engine/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// errorStatus maps engine errors to HTTP status codes and client messages
var errorStatus = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrNotFound, http.StatusNotFound, "not found"},
	{services.ErrInvalidInput, http.StatusBadRequest, "invalid input"},
	{services.ErrForbidden, http.StatusForbidden, "forbidden"},
	{services.ErrNotOwner, http.StatusForbidden, "not the winner"},
	{services.ErrNotEligible, http.StatusForbidden, "not eligible"},
	{services.ErrAlreadyResolved, http.StatusConflict, "already claimed"},
	{services.ErrInvalidState, http.StatusConflict, "invalid state"},
	{services.ErrDeadlinePassed, http.StatusGone, "deadline passed"},
	{services.ErrSelectionBusy, http.StatusServiceUnavailable, "selection in progress, retry later"},
}

// respondError writes the error response for err
func respondError(c *gin.Context, err error) {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			slog.Info("Request rejected", "status", m.status, "error", err, "path", c.FullPath(), "requestId", c.GetString("RequestID"))
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}
	slog.Error("Unhandled engine error", "error", err, "path", c.FullPath(), "requestId", c.GetString("RequestID"))
	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// caller returns the authenticated caller or aborts with 401
func caller(c *gin.Context) (services.Caller, bool) {
	cl, ok := middleware.CallerFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	}
	return cl, ok
}

// objectIDParam parses the named path parameter or responds 400
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}

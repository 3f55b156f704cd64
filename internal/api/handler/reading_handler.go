package handler

import (
	"errors"
	"net/http"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/repository"
	"servidor_ocr/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ReadingHandler struct {
	lprService *service.LPRService
}

func NewReadingHandler(lprService *service.LPRService) *ReadingHandler {
	return &ReadingHandler{lprService: lprService}
}

// GET /api/v1/readings?plate=&limit=
func (h *ReadingHandler) ListReadings(c *gin.Context) {
	var filter domain.PlateReadingFilterDTO
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}

	readings, err := h.lprService.ListReadings(c.Request.Context(), filter)
	if err != nil {
		writeReadingError(c, err)
		return
	}
	c.JSON(http.StatusOK, readings)
}

// GET /api/v1/readings/:id
func (h *ReadingHandler) GetReading(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid reading ID"})
		return
	}

	reading, err := h.lprService.GetReading(c.Request.Context(), id)
	if err != nil {
		writeReadingError(c, err)
		return
	}
	c.JSON(http.StatusOK, reading)
}

func writeReadingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryDisabled):
		c.JSON(http.StatusNotImplemented, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Reading not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error loading readings", "details": err.Error()})
	}
}

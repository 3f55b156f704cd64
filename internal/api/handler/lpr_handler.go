package handler

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"servidor_ocr/internal/domain"
	"servidor_ocr/internal/service"
	"servidor_ocr/internal/storage"
	"strings"

	"github.com/gin-gonic/gin"
)

type LPRHandler struct {
	lprService *service.LPRService
}

func NewLPRHandler(lprService *service.LPRService) *LPRHandler {
	return &LPRHandler{lprService: lprService}
}

// POST /upload (multipart, field "image")
func (h *LPRHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		log.Println("LPRHandler: no file was uploaded")
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file", "details": err.Error()})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file", "details": err.Error()})
		return
	}

	h.read(c, domain.ImageInput{FileName: fileHeader.Filename, Data: data, Source: domain.SourceUpload})
}

// POST /api/v1/lpr/process-image
func (h *LPRHandler) ProcessImage(c *gin.Context) {
	var req domain.LPRRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	data, ext, err := decodeBase64Image(req.ImageBase64)
	if err != nil {
		log.Printf("LPRHandler: error decoding base64 image: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = "image" + ext
	}
	h.read(c, domain.ImageInput{FileName: fileName, Data: data, Source: domain.SourceBase64})
}

// POST /api/v1/lpr/extract
func (h *LPRHandler) Extract(c *gin.Context) {
	var req domain.ExtractTextDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	res := h.lprService.ExtractText(req.Text)
	resp := domain.LPRResponseDTO{Message: res.Message}
	if res.Found {
		resp.Plate = &res.Plate
	}
	c.JSON(http.StatusOK, resp)
}

func (h *LPRHandler) read(c *gin.Context, in domain.ImageInput) {
	reading, err := h.lprService.ReadImage(c.Request.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrEmptyFile):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Uploaded file is empty"})
		case errors.Is(err, service.ErrOCRFailed):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error processing image with the OCR service"})
		default:
			log.Printf("LPRHandler: error reading image: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Error storing image", "details": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, domain.NewLPRResponse(reading))
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
	"image/bmp":  ".bmp",
}

// decodeBase64Image accepts raw base64 or a data URL and returns the bytes
// plus a file extension guessed from the data URL media type.
func decodeBase64Image(s string) ([]byte, string, error) {
	ext := ".jpg"
	if strings.HasPrefix(s, "data:") {
		idx := strings.Index(s, ";base64,")
		if idx < 0 {
			return nil, "", fmt.Errorf("data URL is not base64 encoded")
		}
		if e, ok := imageExtensions[strings.ToLower(s[len("data:"):idx])]; ok {
			ext = e
		}
		s = s[idx+len(";base64,"):]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, "", fmt.Errorf("error decoding base64: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image data")
	}
	return data, ext, nil
}

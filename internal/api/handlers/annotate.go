package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/helpers"
	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services"
	"waste-ninja-go/internal/services/annotator"
)

// uploadStreamID labels stills in logs and metrics; uploads are never published.
const uploadStreamID = "upload"

type AnnotateHandler struct {
	container *services.ServiceContainer
}

func NewAnnotateHandler(container *services.ServiceContainer) *AnnotateHandler {
	return &AnnotateHandler{container: container}
}

type AnnotateResponse struct {
	Width   int             `json:"width" example:"640"`
	Height  int             `json:"height" example:"480"`
	Count   int             `json:"count" example:"1"`
	Regions []models.Region `json:"regions"`
}

// Annotate detects blue regions in an uploaded still
// @Summary Annotate an image
// @Description Draw boxes around blue regions in an uploaded image. Returns the annotated JPEG, or the regions when format=json.
// @Tags annotate
// @Accept multipart/form-data
// @Produce image/jpeg
// @Produce json
// @Param image formData file true "Image (JPEG, PNG, GIF, BMP or TIFF)"
// @Param format query string false "Set to json to receive regions instead of an image"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/annotate [post]
func (h *AnnotateHandler) Annotate(c *gin.Context) {
	cfg := h.container.Config
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, cfg.MaxUploadBytes)

	fileHeader, err := c.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds " + strconv.FormatInt(cfg.MaxUploadBytes, 10) + " bytes"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to open uploaded image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		return
	}
	defer file.Close()

	img, err := helpers.DecodeUpload(file)
	if err != nil {
		logging.Warn(c).Err(err).Str("filename", fileHeader.Filename).Msg("Undecodable upload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not decode image: " + err.Error()})
		return
	}

	mat, err := helpers.ImageToBGRMat(img)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer mat.Close()

	result, err := h.container.Processor.ProcessFrame(uploadStreamID, models.FrameSourceUpload, mat)
	if err != nil {
		if errors.Is(err, annotator.ErrInvalidFrame) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logging.Error(c).Err(err).Msg("Annotation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "annotation failed"})
		return
	}
	defer result.Mat.Close()

	regions := result.Frame.Regions
	if regions == nil {
		regions = []models.Region{}
	}

	logging.Info(c).
		Str("filename", fileHeader.Filename).
		Int("width", result.Frame.Width).
		Int("height", result.Frame.Height).
		Int("regions", len(regions)).
		Msg("Upload annotated")

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, AnnotateResponse{
			Width:   result.Frame.Width,
			Height:  result.Frame.Height,
			Count:   len(regions),
			Regions: regions,
		})
		return
	}

	jpeg, err := helpers.EncodeJPEG(result.Mat, cfg.OutputJPEGQuality)
	if err != nil {
		logging.Error(c).Err(err).Msg("Failed to encode annotated image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode image"})
		return
	}

	c.Header("X-Regions-Count", strconv.Itoa(len(regions)))
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

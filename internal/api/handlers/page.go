package handlers

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type PageHandler struct {
	container *services.ServiceContainer
}

func NewPageHandler(container *services.ServiceContainer) *PageHandler {
	return &PageHandler{container: container}
}

type pageButton struct {
	Category models.Category
	Label    string
	Active   bool
}

type pageData struct {
	Title     string
	Query     string
	Buttons   []pageButton
	Result    *models.Classification
	CameraURL string
}

var buttonLabels = map[models.Category]string{
	models.CategoryPaper:   "Paper",
	models.CategoryPlastic: "Plastic",
	models.CategoryFood:    "Food",
}

// Index serves the demo page
// @Summary Demo page
// @Description Text box with Paper/Plastic/Food buttons and a webcam panel. A q parameter pre-classifies on the server.
// @Tags page
// @Produce html
// @Param q query string false "Text to classify before rendering"
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (h *PageHandler) Index(c *gin.Context) {
	data := pageData{
		Title: "UCD Waste Ninja",
		Query: c.Query("q"),
	}

	// Blank input still lands in the default bin.
	result := h.container.Classify(data.Query)
	data.Result = &result

	for _, cat := range models.Categories {
		data.Buttons = append(data.Buttons, pageButton{
			Category: cat,
			Label:    buttonLabels[cat],
			Active:   result.Category == cat,
		})
	}

	if capture := h.container.Capture; capture != nil {
		data.CameraURL = h.container.Config.MJPEGURL(capture.Stats().StreamID)
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		logging.Error(c).Err(err).Msg("Failed to render page")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

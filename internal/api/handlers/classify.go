package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/logging"
	"waste-ninja-go/internal/models"
	"waste-ninja-go/internal/services"
)

// maxClassifyBody bounds JSON bodies; descriptions are a few words.
const maxClassifyBody = 64 * 1024

type ClassifyHandler struct {
	container *services.ServiceContainer
}

func NewClassifyHandler(container *services.ServiceContainer) *ClassifyHandler {
	return &ClassifyHandler{container: container}
}

type ClassifyRequest struct {
	Text string `json:"text" example:"empty soda bottle"`
}

type ClassifyResponse struct {
	Category models.Category `json:"category" example:"plastic"`
	Keyword  string          `json:"keyword,omitempty" example:"bottle"`
	Matched  bool            `json:"matched" example:"true"`
}

type CategoriesResponse struct {
	Rules   []models.KeywordRule `json:"rules"`
	Default models.Category      `json:"default" example:"paper"`
}

// Classify classifies a trash description
// @Summary Classify a trash description
// @Description Pick a bin for free text. Any string is accepted; unmatched text gets the default category.
// @Tags classify
// @Accept json
// @Produce json
// @Param q query string false "Text to classify (GET or form POST)"
// @Param request body ClassifyRequest false "Text to classify"
// @Success 200 {object} ClassifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 413 {object} ErrorResponse
// @Router /api/classify [get]
// @Router /api/classify [post]
func (h *ClassifyHandler) Classify(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxClassifyBody)

	text, err := classifyInput(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "request body exceeds " + strconv.Itoa(maxClassifyBody) + " bytes"})
			return
		}
		logging.Warn(c).Err(err).Msg("Invalid classify request body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
		return
	}

	result := h.container.Classify(text)

	logging.Debug(c).
		Str("category", result.Category.String()).
		Str("keyword", result.Keyword).
		Bool("matched", result.Matched).
		Msg("Text classified")

	c.JSON(http.StatusOK, ClassifyResponse{
		Category: result.Category,
		Keyword:  result.Keyword,
		Matched:  result.Matched,
	})
}

// classifyInput reads text from a JSON body, a form field or the q query
// parameter. Only a non-empty JSON body that fails to parse is an error.
func classifyInput(c *gin.Context) (string, error) {
	if c.Request.Method != http.MethodPost {
		return c.Query("q"), nil
	}

	if strings.HasPrefix(c.ContentType(), "application/json") {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return "", err
		}
		if len(strings.TrimSpace(string(body))) == 0 {
			return c.Query("q"), nil
		}
		var req ClassifyRequest
		if err := json.Unmarshal(body, &req); err != nil {
			return "", err
		}
		return req.Text, nil
	}

	if text, ok := c.GetPostForm("text"); ok {
		return text, nil
	}
	if text, ok := c.GetPostForm("q"); ok {
		return text, nil
	}
	return c.Query("q"), nil
}

// @Summary List categories
// @Description Ordered keyword table and the default category. Earlier rules win ties.
// @Tags classify
// @Produce json
// @Success 200 {object} CategoriesResponse
// @Router /api/categories [get]
func (h *ClassifyHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, CategoriesResponse{
		Rules:   h.container.Classifier.Rules(),
		Default: h.container.Classifier.Default(),
	})
}

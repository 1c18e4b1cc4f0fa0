package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/services"
	"waste-ninja-go/internal/services/publisher"
)

type StreamsHandler struct {
	container *services.ServiceContainer
}

func NewStreamsHandler(container *services.ServiceContainer) *StreamsHandler {
	return &StreamsHandler{container: container}
}

type StreamsResponse struct {
	Streams []publisher.StreamURLs `json:"streams"`
	Count   int                    `json:"count"`
}

// ListStreams lists active annotated streams
// @Summary List streams
// @Description Active annotated streams with their viewer URLs
// @Tags streams
// @Produce json
// @Success 200 {object} StreamsResponse
// @Router /streams [get]
func (h *StreamsHandler) ListStreams(c *gin.Context) {
	ids := h.container.Publisher.Streams()
	streams := make([]publisher.StreamURLs, 0, len(ids))
	for _, id := range ids {
		streams = append(streams, h.container.Publisher.StreamURLs(id))
	}
	c.JSON(http.StatusOK, StreamsResponse{Streams: streams, Count: len(streams)})
}

// MJPEG streams annotated frames as multipart JPEG
// @Summary Watch a stream
// @Description multipart/x-mixed-replace MJPEG of the annotated stream. A placeholder frame is sent until the first real frame arrives.
// @Tags streams
// @Produce multipart/x-mixed-replace
// @Param id path string true "Stream ID"
// @Success 200 {file} binary
// @Router /streams/{id}/mjpeg [get]
func (h *StreamsHandler) MJPEG(c *gin.Context) {
	h.container.Publisher.StreamMJPEGHTTP(c.Writer, c.Request, c.Param("id"))
}

// @Summary Latest frame
// @Description Most recent annotated JPEG of a stream
// @Tags streams
// @Produce image/jpeg
// @Param id path string true "Stream ID"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /streams/{id}/frame [get]
func (h *StreamsHandler) LatestFrame(c *gin.Context) {
	jpeg, ok := h.container.Publisher.LatestJPEG(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no frame available for stream"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/jpeg", jpeg)
}

// @Summary Stream URLs
// @Description MJPEG and, when publishing is enabled, WebRTC/WHIP URLs of a stream
// @Tags streams
// @Produce json
// @Param id path string true "Stream ID"
// @Success 200 {object} publisher.StreamURLs
// @Failure 404 {object} ErrorResponse
// @Router /streams/{id}/urls [get]
func (h *StreamsHandler) URLs(c *gin.Context) {
	id := c.Param("id")
	if !h.container.Publisher.HasStream(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}
	c.JSON(http.StatusOK, h.container.Publisher.StreamURLs(id))
}

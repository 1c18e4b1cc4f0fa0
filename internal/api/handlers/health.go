package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/services"
)

var startTime = time.Now()

type HealthHandler struct {
	container *services.ServiceContainer
}

func NewHealthHandler(container *services.ServiceContainer) *HealthHandler {
	return &HealthHandler{container: container}
}

type HealthResponse struct {
	Status     string            `json:"status" example:"healthy"`
	InstanceID string            `json:"instance_id" example:"waste-ninja-1"`
	Components map[string]string `json:"components"`
}

type InfoResponse struct {
	Title        string            `json:"title" example:"UCD Waste Ninja API"`
	InstanceID   string            `json:"instance_id"`
	Version      string            `json:"version"`
	Environment  string            `json:"environment"`
	StartTime    time.Time         `json:"start_time"`
	SwaggerUI    string            `json:"swagger_ui"`
	Capabilities []string          `json:"capabilities"`
	Endpoints    map[string]string `json:"endpoints"`
}

// @Summary Health check
// @Description Report whether the service and its optional integrations are up. Optional integrations never make the service unhealthy.
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	sc := h.container
	components := map[string]string{
		"classifier": "ok",
		"annotator":  "ok",
		"nats":       "disabled",
		"camera":     "disabled",
		"webrtc":     "disabled",
		"grpc":       "disabled",
	}
	status := "healthy"

	if sc.Config.NatsEnabled {
		if sc.Messaging.IsConnected() {
			components["nats"] = "ok"
		} else {
			components["nats"] = "unavailable"
			status = "degraded"
		}
	}
	if sc.Capture != nil {
		if sc.Capture.Stats().Connected {
			components["camera"] = "ok"
		} else {
			components["camera"] = "reconnecting"
			status = "degraded"
		}
	}
	if sc.Config.WHIPEnabled {
		components["webrtc"] = "ok"
	}
	if sc.Health != nil {
		components["grpc"] = "ok"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:     status,
		InstanceID: sc.Config.InstanceID,
		Components: components,
	})
}

// @Summary Service information
// @Description Basic service information, capabilities and entry points
// @Tags health
// @Produce json
// @Success 200 {object} InfoResponse
// @Router /api/info [get]
func (h *HealthHandler) Info(c *gin.Context) {
	cfg := h.container.Config
	capabilities := []string{"text_classification", "still_annotation", "browser_frame_annotation", "mjpeg_streaming"}
	if h.container.Capture != nil {
		capabilities = append(capabilities, "camera_capture")
	}
	if cfg.WHIPEnabled {
		capabilities = append(capabilities, "webrtc_publishing")
	}
	if h.container.Events.Enabled() {
		capabilities = append(capabilities, "nats_events")
	}

	c.JSON(http.StatusOK, InfoResponse{
		Title:        "UCD Waste Ninja API",
		InstanceID:   cfg.InstanceID,
		Version:      cfg.Version,
		Environment:  cfg.Environment,
		StartTime:    startTime,
		SwaggerUI:    "/docs/index.html",
		Capabilities: capabilities,
		Endpoints: map[string]string{
			"page":       "/",
			"classify":   "/api/classify",
			"categories": "/api/categories",
			"annotate":   "/api/annotate",
			"frames_ws":  "/ws/frames",
			"streams":    "/streams",
			"health":     "/health",
			"system":     "/system/stats",
			"metrics":    "/metrics",
		},
	})
}

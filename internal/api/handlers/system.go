package handlers

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"waste-ninja-go/internal/services"
	"waste-ninja-go/internal/services/streamcapture"
)

// SystemHandler handles system-related endpoints
type SystemHandler struct {
	container *services.ServiceContainer
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(container *services.ServiceContainer) *SystemHandler {
	return &SystemHandler{container: container}
}

type SystemStats struct {
	InstanceID    string               `json:"instance_id"`
	UptimeSeconds int64                `json:"uptime_seconds"`
	MemoryMB      uint64               `json:"memory_mb"`
	CPUCores      int                  `json:"cpu_cores"`
	Goroutines    int                  `json:"goroutines"`
	GoVersion     string               `json:"go_version"`
	Streams       []string             `json:"streams"`
	Capture       *streamcapture.Stats `json:"capture,omitempty"`
}

// @Summary Get system stats
// @Description Runtime statistics, active streams and camera capture counters
// @Tags system
// @Produce json
// @Success 200 {object} SystemStats
// @Router /system/stats [get]
func (h *SystemHandler) GetStats(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := SystemStats{
		InstanceID:    h.container.Config.InstanceID,
		UptimeSeconds: int64(time.Since(startTime).Seconds()),
		MemoryMB:      m.Alloc / 1024 / 1024,
		CPUCores:      runtime.NumCPU(),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		Streams:       h.container.Publisher.Streams(),
	}
	if h.container.Capture != nil {
		cs := h.container.Capture.Stats()
		stats.Capture = &cs
	}

	c.JSON(http.StatusOK, stats)
}

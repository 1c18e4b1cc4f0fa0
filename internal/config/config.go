package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	InstanceID  string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Classifier
	DefaultCategory string

	// Detection (HSV is OpenCV 8-bit: H 0-179, S/V 0-255)
	HSVLower          [3]int
	HSVUpper          [3]int
	MinRegionArea     float64
	StrokeColor       string
	StrokeThickness   int
	MaxUploadBytes    int64
	OutputJPEGQuality int

	// Local camera capture. Empty source disables the capture loop.
	CameraSource      string
	CameraStreamID    string
	CaptureFPS        int
	MaxReadErrors     int
	ReconnectInterval time.Duration

	// MediaMTX / WHIP publishing
	WHIPEnabled    bool
	MediaMTXURL    string
	MediaMTXAPIURL string
	WHIPTimeout    time.Duration
	OutputWidth    int
	OutputHeight   int
	OutputBitrate  int
	PublishingFPS  int

	// WebRTC Configuration
	WebRTCICEServers []string

	// NATS (classification/detection events)
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	ClassifySubject    string
	DetectSubject      string

	// gRPC health endpoint, 0 disables it
	GRPCPort int

	// Swagger Configuration
	SwaggerHost string

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		InstanceID:  getEnv("INSTANCE_ID", "waste-ninja-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Classifier
		DefaultCategory: getEnv("CLASSIFIER_DEFAULT_CATEGORY", "paper"),

		// Detection, defaults target blue-ish objects
		HSVLower:          getEnvTriple("DETECT_HSV_LOWER", [3]int{100, 150, 50}),
		HSVUpper:          getEnvTriple("DETECT_HSV_UPPER", [3]int{140, 255, 255}),
		MinRegionArea:     getEnvFloat("DETECT_MIN_AREA", 500),
		StrokeColor:       getEnv("DETECT_STROKE_COLOR", "#0000FF"),
		StrokeThickness:   getEnvInt("DETECT_STROKE_THICKNESS", 2),
		MaxUploadBytes:    int64(getEnvInt("MAX_UPLOAD_BYTES", 10*1024*1024)), // 10MB
		OutputJPEGQuality: getEnvInt("OUTPUT_JPEG_QUALITY", 85),

		// Local camera
		CameraSource:      getEnv("CAMERA_SOURCE", ""),
		CameraStreamID:    getEnv("CAMERA_STREAM_ID", "trash-webcam"),
		CaptureFPS:        getEnvInt("CAPTURE_FPS", 15),
		MaxReadErrors:     getEnvInt("CAPTURE_MAX_READ_ERRORS", 10),
		ReconnectInterval: getEnvDuration("RECONNECT_INTERVAL", 5*time.Second),

		// MediaMTX Publishing
		WHIPEnabled:    getEnvBool("WHIP_ENABLED", false),
		MediaMTXURL:    getEnv("MEDIAMTX_URL", "http://localhost:8889"),
		MediaMTXAPIURL: getEnv("MEDIAMTX_API_URL", ""),
		WHIPTimeout:    getEnvDuration("WHIP_TIMEOUT", 10*time.Second),
		OutputWidth:    getEnvInt("OUTPUT_WIDTH", 640),
		OutputHeight:   getEnvInt("OUTPUT_HEIGHT", 480),
		OutputBitrate:  getEnvInt("OUTPUT_BITRATE", 1000),
		PublishingFPS:  getEnvInt("PUBLISHING_FPS", 15),

		// WebRTC Configuration
		WebRTCICEServers: getEnvList("WEBRTC_ICE_SERVERS", []string{"stun:stun.l.google.com:19302"}),

		// NATS
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		ClassifySubject:    getEnv("CLASSIFY_SUBJECT", "wasteninja.classifications"),
		DetectSubject:      getEnv("DETECT_SUBJECT", "wasteninja.detections"),

		GRPCPort: getEnvInt("GRPC_PORT", 0),

		SwaggerHost: getEnv("SWAGGER_HOST", "localhost:8000"),

		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
}

// Validate reports the first configuration value that cannot be used.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	for i, limit := range [3]int{179, 255, 255} {
		lo, hi := c.HSVLower[i], c.HSVUpper[i]
		if lo < 0 || hi > limit || lo > hi {
			return fmt.Errorf("invalid HSV bounds for channel %d: lower=%d upper=%d (max %d)", i, lo, hi, limit)
		}
	}
	if c.MinRegionArea < 0 {
		return fmt.Errorf("DETECT_MIN_AREA must not be negative, got %v", c.MinRegionArea)
	}
	if c.StrokeThickness <= 0 {
		return fmt.Errorf("DETECT_STROKE_THICKNESS must be positive, got %d", c.StrokeThickness)
	}
	if c.OutputJPEGQuality < 1 || c.OutputJPEGQuality > 100 {
		return fmt.Errorf("OUTPUT_JPEG_QUALITY must be 1-100, got %d", c.OutputJPEGQuality)
	}
	if c.CaptureFPS <= 0 {
		return fmt.Errorf("CAPTURE_FPS must be positive, got %d", c.CaptureFPS)
	}
	return nil
}

// MJPEGURL is the relative path browsers use to watch a stream.
func (c *Config) MJPEGURL(streamID string) string {
	return fmt.Sprintf("/streams/%s/mjpeg", streamID)
}

// WHIPURL is where annotated frames for streamID are published.
func (c *Config) WHIPURL(streamID string) string {
	return fmt.Sprintf("%s/live/%s/whip", strings.TrimRight(c.MediaMTXURL, "/"), streamID)
}

// WebRTCViewURL is the MediaMTX page for viewing streamID.
func (c *Config) WebRTCViewURL(streamID string) string {
	return fmt.Sprintf("%s/live/%s", strings.TrimRight(c.MediaMTXURL, "/"), streamID)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// getEnvTriple parses "h,s,v" style values. Malformed input keeps the default.
func getEnvTriple(key string, defaultValue [3]int) [3]int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		log.Warn().Str("key", key).Str("value", value).Msg("Expected three comma separated integers, using default")
		return defaultValue
	}
	var out [3]int
	for i, part := range parts {
		parsed, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer in triple, using default")
			return defaultValue
		}
		out[i] = parsed
	}
	return out
}

func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}
	if isRunningInDocker() {
		return "nats://nats:4222"
	}
	return "nats://localhost:4222"
}

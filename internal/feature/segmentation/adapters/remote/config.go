// Package remote provides a rooftop model backend that calls an HTTP inference server.
package remote

import (
	"os"
	"strconv"
	"time"
)

// DefaultPatchSize matches the input size the segmentation network was trained on.
const DefaultPatchSize = 128

// Config holds configuration for the inference server client.
type Config struct {
	BaseURL   string        // Base URL of the model server (e.g., "http://localhost:8501")
	APIKey    string        // Optional bearer token
	PatchSize int           // Square tile edge in pixels
	Timeout   time.Duration // HTTP request timeout
}

// LoadConfig loads model server configuration from environment variables.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:   os.Getenv("MODEL_SERVER_URL"),
		APIKey:    os.Getenv("MODEL_SERVER_API_KEY"),
		PatchSize: DefaultPatchSize,
		Timeout:   60 * time.Second,
	}
	if v, err := strconv.Atoi(os.Getenv("MODEL_PATCH_SIZE")); err == nil && v > 0 {
		cfg.PatchSize = v
	}
	return cfg
}

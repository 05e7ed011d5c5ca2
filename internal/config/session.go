// Package config loads the session tuning file: ROI layout, tracker and
// interactor parameters, and device paths. Fields are pointers so a partial
// JSON file keeps defaults; the Get accessors fall back per field.
package config

import (
	"encoding/json"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/arenalab/ethotrack/internal/arena"
)

// maxConfigSize caps the config file read for safety.
const maxConfigSize = 1 << 20

// ROIConfig is one region entry in the layout.
type ROIConfig struct {
	Idx int `json:"idx"`
	X   int `json:"x"`
	Y   int `json:"y"`
	W   int `json:"w"`
	H   int `json:"h"`
}

// SessionConfig is the root tuning document.
type SessionConfig struct {
	ROIs []ROIConfig `json:"rois"`

	// Tracker params
	TrackerQuantile     *float64 `json:"tracker_quantile,omitempty"`
	TrackerLearningRate *float64 `json:"tracker_learning_rate,omitempty"`

	// Interactor params
	DistanceThreshold *float64 `json:"distance_threshold,omitempty"`
	InactivityTime    *string  `json:"inactivity_time,omitempty"` // duration string like "90s"
	SpeedThreshold    *float64 `json:"speed_threshold,omitempty"`

	// Devices and outputs
	SerialPath *string  `json:"serial_path,omitempty"`
	SerialBaud *int     `json:"serial_baud,omitempty"`
	DBPath     *string  `json:"db_path,omitempty"`
	FPS        *float64 `json:"fps,omitempty"`
}

// Load reads and validates a SessionConfig from a JSON file.
func Load(path string) (*SessionConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := &SessionConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration values.
func (c *SessionConfig) Validate() error {
	if len(c.ROIs) == 0 {
		return fmt.Errorf("at least one roi is required")
	}
	seen := make(map[int]bool, len(c.ROIs))
	for _, r := range c.ROIs {
		if r.W <= 0 || r.H <= 0 {
			return fmt.Errorf("roi %d: non-positive size %dx%d", r.Idx, r.W, r.H)
		}
		if seen[r.Idx] {
			return fmt.Errorf("duplicate roi idx %d", r.Idx)
		}
		seen[r.Idx] = true
	}
	if c.TrackerQuantile != nil && (*c.TrackerQuantile <= 0 || *c.TrackerQuantile >= 1) {
		return fmt.Errorf("tracker_quantile must be in (0, 1), got %f", *c.TrackerQuantile)
	}
	if c.InactivityTime != nil && *c.InactivityTime != "" {
		if _, err := time.ParseDuration(*c.InactivityTime); err != nil {
			return fmt.Errorf("invalid inactivity_time %q: %w", *c.InactivityTime, err)
		}
	}
	return nil
}

// ArenaROIs converts the layout into arena ROIs.
func (c *SessionConfig) ArenaROIs() []arena.ROI {
	out := make([]arena.ROI, len(c.ROIs))
	for i, r := range c.ROIs {
		out[i] = arena.NewROI(r.Idx, image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H))
	}
	return out
}

// GetTrackerQuantile returns the tracker quantile or the default.
func (c *SessionConfig) GetTrackerQuantile() float64 {
	if c.TrackerQuantile == nil {
		return 0.99
	}
	return *c.TrackerQuantile
}

// GetTrackerLearningRate returns the background learning rate or the default.
func (c *SessionConfig) GetTrackerLearningRate() float64 {
	if c.TrackerLearningRate == nil {
		return 0.05
	}
	return *c.TrackerLearningRate
}

// GetDistanceThreshold returns the movement distance threshold or the default.
func (c *SessionConfig) GetDistanceThreshold() float64 {
	if c.DistanceThreshold == nil {
		return 1e-2
	}
	return *c.DistanceThreshold
}

// GetInactivityTime parses and returns the inactivity threshold as a duration.
func (c *SessionConfig) GetInactivityTime() time.Duration {
	if c.InactivityTime == nil || *c.InactivityTime == "" {
		return 90 * time.Second
	}
	d, err := time.ParseDuration(*c.InactivityTime)
	if err != nil {
		return 90 * time.Second
	}
	return d
}

// GetSpeedThreshold returns the moving/sleeping threshold or the default.
func (c *SessionConfig) GetSpeedThreshold() float64 {
	if c.SpeedThreshold == nil {
		return 0.0025
	}
	return *c.SpeedThreshold
}

// GetSerialPath returns the depriver serial device path or the default.
func (c *SessionConfig) GetSerialPath() string {
	if c.SerialPath == nil {
		return "/dev/ttyAMA0"
	}
	return *c.SerialPath
}

// GetSerialBaud returns the serial baud rate or the default.
func (c *SessionConfig) GetSerialBaud() int {
	if c.SerialBaud == nil {
		return 115200
	}
	return *c.SerialBaud
}

// GetDBPath returns the result database path or the default.
func (c *SessionConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "ethotrack.db"
	}
	return *c.DBPath
}

// GetFPS returns the nominal acquisition rate or the default.
func (c *SessionConfig) GetFPS() float64 {
	if c.FPS == nil {
		return 2.0
	}
	return *c.FPS
}

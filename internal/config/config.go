// Package config loads the detector configuration from YAML, with
// command-line flags layered on top by the entrypoints.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the complete detector configuration.
type Config struct {
	Model     ModelConfig     `yaml:"model"`
	Inference InferenceConfig `yaml:"inference"`
	Camera    CameraConfig    `yaml:"camera"`
	Output    OutputConfig    `yaml:"output"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Prompts   []string        `yaml:"prompts"`
}

// ModelConfig describes the external model runner subprocess.
type ModelConfig struct {
	// Runner is the executable that speaks the length-prefixed msgpack
	// protocol on stdin/stdout.
	Runner string `yaml:"runner"`
	// Path of the model weights, passed through to the runner.
	Path string `yaml:"path"`
	// Device selector (cpu:0, cuda:0, ...).
	Device string `yaml:"device"`
	// DType of the weights (q4f16, fp16, fp32, ...).
	DType string `yaml:"dtype"`
	// Confidence threshold for reported segmentations.
	Confidence float64 `yaml:"confidence"`
}

// InferenceConfig controls how inference results are produced and shown.
type InferenceConfig struct {
	// Every runs inference once per N frames; 0 disables inference.
	Every uint `yaml:"every"`
	// ShowMask overlays the segmentation masks on annotated frames.
	ShowMask bool `yaml:"show_mask"`
	// SaveDir receives frames saved interactively from the window.
	SaveDir string `yaml:"save_dir"`
}

// CameraConfig contains the live-capture settings.
type CameraConfig struct {
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

// OutputConfig selects the sink for annotated frames.
type OutputConfig struct {
	// SaveVideo re-encodes the stream to this path instead of opening a
	// display window.
	SaveVideo string `yaml:"save_video"`
}

// MQTTConfig enables result emission when a broker is set.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			Runner:     "models/run_worker.sh",
			Device:     "cpu:0",
			DType:      "q4f16",
			Confidence: 0.5,
		},
		Inference: InferenceConfig{
			Every: 3,
		},
		Camera: CameraConfig{
			Device: "/dev/video0",
			Width:  640,
			Height: 480,
		},
	}
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

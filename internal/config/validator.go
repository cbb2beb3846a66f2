package config

import "fmt"

// Validate checks the configuration and fills derivable defaults.
func Validate(cfg *Config) error {
	if cfg.Model.Runner == "" {
		return fmt.Errorf("model.runner is required")
	}
	if cfg.Model.Confidence <= 0 || cfg.Model.Confidence > 1 {
		return fmt.Errorf("model.confidence must be in (0, 1], got %.2f", cfg.Model.Confidence)
	}

	if cfg.Camera.Width <= 0 || cfg.Camera.Height <= 0 {
		return fmt.Errorf("invalid camera resolution: %dx%d", cfg.Camera.Width, cfg.Camera.Height)
	}
	// YUYV packs two pixels per macropixel, so capture width must be even.
	if cfg.Camera.Width%2 != 0 {
		return fmt.Errorf("camera.width must be even for YUYV capture, got %d", cfg.Camera.Width)
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "sam3-camera-detector"
		}
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = fmt.Sprintf("vision/segmentations/%s", cfg.MQTT.ClientID)
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
		}
	}

	return nil
}

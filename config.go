package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RunConfig holds the hyperparameters of one training run. It can be loaded
// from a YAML file and overridden by CLI flags; zero values fall back to the
// defaults.
type RunConfig struct {
	// Optimization
	LearningRate float64 `yaml:"learning_rate"`
	Schedule     string  `yaml:"lr_scheduler_type"`
	Epochs       int     `yaml:"num_train_epochs"`
	WarmupRatio  float64 `yaml:"warmup_ratio"`
	Temperature  float64 `yaml:"temperature"`

	// Data
	BatchSize int    `yaml:"batch_size"`
	TrainPath string `yaml:"train_path"`
	ValPath   string `yaml:"val_path"`
	TestPath  string `yaml:"test_path"`

	// Model
	Encoder EncoderConfig `yaml:"encoder"`

	// Hardware
	Device        string `yaml:"device"`
	Deterministic bool   `yaml:"deterministic"`
}

// DefaultRunConfig returns sensible defaults for CPU training.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		LearningRate: 5e-4,
		Schedule:     ScheduleConstant.String(),
		Epochs:       1,
		WarmupRatio:  0,
		Temperature:  0.07,
		BatchSize:    32,
		Encoder:      DefaultEncoderConfig(),
		Device:       DeviceCPU.String(),
	}
}

// LoadRunConfig reads a YAML run configuration, filling unset fields from
// the defaults.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := DefaultRunConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration surface: positive learning rate and
// batch size, warmup ratio in [0,1], non-negative epochs, recognized
// schedule and device names, positive encoder dimensions.
func (c *RunConfig) Validate() error {
	if c.LearningRate <= 0 {
		return fmt.Errorf("config: learning_rate must be positive, got %g", c.LearningRate)
	}
	if c.WarmupRatio < 0 || c.WarmupRatio > 1 {
		return fmt.Errorf("config: warmup_ratio must be in [0,1], got %g", c.WarmupRatio)
	}
	if c.Epochs < 0 {
		return fmt.Errorf("config: num_train_epochs must be non-negative, got %d", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batch_size must be positive, got %d", c.BatchSize)
	}
	if c.Temperature <= 0 {
		return fmt.Errorf("config: temperature must be positive, got %g", c.Temperature)
	}
	if _, err := ParseScheduleKind(c.Schedule); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := ParseDevice(c.Device); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.Encoder.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

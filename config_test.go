package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRunConfigIsValid(t *testing.T) {
	cfg := DefaultRunConfig()
	require.NoError(t, cfg.Validate())
}

func TestLoadRunConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
learning_rate: 0.001
lr_scheduler_type: cosine
num_train_epochs: 3
warmup_ratio: 0.1
batch_size: 16
encoder:
  embed_dim: 32
`), 0o644))

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)

	assert.InDelta(t, 0.001, cfg.LearningRate, 1e-12)
	assert.Equal(t, "cosine", cfg.Schedule)
	assert.Equal(t, 3, cfg.Epochs)
	assert.InDelta(t, 0.1, cfg.WarmupRatio, 1e-12)
	assert.Equal(t, 16, cfg.BatchSize)
	assert.Equal(t, 32, cfg.Encoder.EmbedDim)

	// Unset fields keep their defaults.
	assert.InDelta(t, 0.07, cfg.Temperature, 1e-12)
	assert.Equal(t, "cpu", cfg.Device)
}

func TestRunConfigValidation(t *testing.T) {
	check := func(mutate func(*RunConfig)) {
		cfg := DefaultRunConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}

	check(func(c *RunConfig) { c.LearningRate = 0 })
	check(func(c *RunConfig) { c.WarmupRatio = -0.1 })
	check(func(c *RunConfig) { c.WarmupRatio = 1.1 })
	check(func(c *RunConfig) { c.Epochs = -1 })
	check(func(c *RunConfig) { c.BatchSize = 0 })
	check(func(c *RunConfig) { c.Temperature = 0 })
	check(func(c *RunConfig) { c.Schedule = "exponential" })
	check(func(c *RunConfig) { c.Device = "tpu" })
	check(func(c *RunConfig) { c.Encoder.TextBuckets = 0 })
	check(func(c *RunConfig) { c.Encoder.EventBuckets = -1 })
	check(func(c *RunConfig) { c.Encoder.HiddenDim = 0 })
	check(func(c *RunConfig) { c.Encoder.EmbedDim = 0 })
}

func TestLoadRunConfigRejectsBadEncoderDims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
encoder:
  text_buckets: 0
  event_buckets: 16
  hidden_dim: 8
  embed_dim: 4
`), 0o644))

	// A zero dimension must fail at load time with a descriptive error,
	// before it can reach weight allocation and panic there.
	_, err := LoadRunConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text_buckets")
}

func TestLoadRunConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("learning_rate: [not a number"), 0o644))

	_, err := LoadRunConfig(path)
	require.Error(t, err)
}

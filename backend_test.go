package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDevice(t *testing.T) {
	d, err := ParseDevice("cpu")
	require.NoError(t, err)
	assert.Equal(t, DeviceCPU, d)

	// An empty name falls back to the CPU.
	d, err = ParseDevice("")
	require.NoError(t, err)
	assert.Equal(t, DeviceCPU, d)

	_, err = ParseDevice("tpu")
	assert.Error(t, err)
}

func TestNewBackendConfig(t *testing.T) {
	b := NewBackendConfig(DeviceCPU, false)
	assert.Equal(t, DeviceCPU, b.Device)
	assert.Equal(t, DefaultComputeConfig(), b.Compute)

	b = NewBackendConfig(DeviceCPU, true)
	assert.Equal(t, DeviceCPU, b.Device)
	assert.Equal(t, SingleThreadedConfig(), b.Compute)
	assert.False(t, b.Compute.Parallel)
}

func TestBackendConfigApply(t *testing.T) {
	original := GetGlobalComputeConfig()
	defer SetGlobalComputeConfig(original)

	NewBackendConfig(DeviceCPU, true).Apply()
	assert.Equal(t, SingleThreadedConfig(), GetGlobalComputeConfig())

	NewBackendConfig(DeviceCPU, false).Apply()
	assert.Equal(t, DefaultComputeConfig(), GetGlobalComputeConfig())
}

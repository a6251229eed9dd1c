package main

import "fmt"

// ===========================================================================
// COMPUTE BACKEND
// ===========================================================================
//
// Device placement for batch data. This is a pure Go build: the only real
// device is the CPU, but batches still move through an explicit placement
// step so the runner's contract (numeric fields live on the configured
// device before any forward pass) holds and an accelerator backend can slot
// in without touching the training loop.
//
// ===========================================================================

// Device identifies the compute target batches are placed on.
type Device int

const (
	// DeviceCPU executes everything on the host CPU.
	DeviceCPU Device = iota
)

// String returns the device name.
func (d Device) String() string {
	switch d {
	case DeviceCPU:
		return "cpu"
	default:
		return fmt.Sprintf("device(%d)", int(d))
	}
}

// ParseDevice maps a device name to a Device.
func ParseDevice(s string) (Device, error) {
	switch s {
	case "cpu", "":
		return DeviceCPU, nil
	default:
		return 0, fmt.Errorf("unknown device: %q", s)
	}
}

// BackendConfig bundles device placement with tensor compute settings.
type BackendConfig struct {
	Device  Device
	Compute ComputeConfig
}

// DefaultBackendConfig returns the default CPU configuration with parallel
// tensor operations enabled.
func DefaultBackendConfig() BackendConfig {
	return BackendConfig{
		Device:  DeviceCPU,
		Compute: DefaultComputeConfig(),
	}
}

// DeterministicBackendConfig returns a single-threaded CPU configuration for
// reproducible runs and debugging.
func DeterministicBackendConfig() BackendConfig {
	return BackendConfig{
		Device:  DeviceCPU,
		Compute: SingleThreadedConfig(),
	}
}

// NewBackendConfig returns the backend configuration for a device, switching
// to single-threaded compute when deterministic execution is requested.
func NewBackendConfig(device Device, deterministic bool) BackendConfig {
	cfg := DefaultBackendConfig()
	if deterministic {
		cfg = DeterministicBackendConfig()
	}
	cfg.Device = device
	return cfg
}

// Apply installs the backend's compute settings as the global tensor
// configuration. Call once at startup, before building the runner.
func (c BackendConfig) Apply() {
	SetGlobalComputeConfig(c.Compute)
}

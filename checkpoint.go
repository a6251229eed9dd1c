package main

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// ===========================================================================
// CHECKPOINT FORMAT
// ===========================================================================
//
// Flat binary format: a uint32 little-endian header length, a JSON-encoded
// EncoderConfig header, then the raw float64 data of every parameter tensor
// in Parameters() order. No quantization, no alignment tricks: the config
// header fully determines every tensor shape, so the payload needs no
// per-tensor framing.
//
// ===========================================================================

// maxHeaderLen bounds the JSON config header. A real header is well under a
// kilobyte, so anything larger means a corrupt or truncated file and must not
// drive an allocation.
const maxHeaderLen = 1 << 20

// SaveEncoder writes the encoder's config and parameters to a file.
func SaveEncoder(m *EventTextEncoder, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("checkpoint: failed to create file: %w", err)
	}
	defer f.Close()

	configJSON, err := json.Marshal(m.Config())
	if err != nil {
		return fmt.Errorf("checkpoint: failed to marshal config: %w", err)
	}

	headerLen := uint32(len(configJSON))
	if err := binary.Write(f, binary.LittleEndian, headerLen); err != nil {
		return fmt.Errorf("checkpoint: failed to write header length: %w", err)
	}
	if _, err := f.Write(configJSON); err != nil {
		return fmt.Errorf("checkpoint: failed to write config: %w", err)
	}

	for i, p := range m.Parameters() {
		if err := binary.Write(f, binary.LittleEndian, p.data); err != nil {
			return fmt.Errorf("checkpoint: failed to write parameter %d: %w", i, err)
		}
	}

	return nil
}

// LoadEncoder reads an encoder checkpoint written by SaveEncoder.
func LoadEncoder(filename string) (*EventTextEncoder, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: failed to open file: %w", err)
	}
	defer f.Close()

	var headerLen uint32
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("checkpoint: failed to read header length: %w", err)
	}
	if headerLen == 0 || headerLen > maxHeaderLen {
		return nil, fmt.Errorf("checkpoint: invalid header length %d", headerLen)
	}

	configJSON := make([]byte, headerLen)
	if _, err := io.ReadFull(f, configJSON); err != nil {
		return nil, fmt.Errorf("checkpoint: failed to read config: %w", err)
	}

	var config EncoderConfig
	if err := json.Unmarshal(configJSON, &config); err != nil {
		return nil, fmt.Errorf("checkpoint: failed to unmarshal config: %w", err)
	}

	model := NewEventTextEncoder(config)
	for i, p := range model.Parameters() {
		if err := binary.Read(f, binary.LittleEndian, p.data); err != nil {
			return nil, fmt.Errorf("checkpoint: failed to read parameter %d: %w", i, err)
		}
	}

	return model, nil
}

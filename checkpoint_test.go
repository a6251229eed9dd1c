package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpointRoundTrip(t *testing.T) {
	model := tinyEncoder()
	path := filepath.Join(t.TempDir(), "encoder.bin")

	require.NoError(t, SaveEncoder(model, path))

	loaded, err := LoadEncoder(path)
	require.NoError(t, err)

	assert.Equal(t, model.Config(), loaded.Config())

	origParams := model.Parameters()
	loadedParams := loaded.Parameters()
	require.Len(t, loadedParams, len(origParams))
	for i := range origParams {
		assert.Equal(t, origParams[i].data, loadedParams[i].data, "parameter %d", i)
	}
}

func TestCheckpointRoundTripPreservesEmbeddings(t *testing.T) {
	model := tinyEncoder()
	path := filepath.Join(t.TempDir(), "encoder.bin")
	require.NoError(t, SaveEncoder(model, path))

	loaded, err := LoadEncoder(path)
	require.NoError(t, err)

	batch := NewLoader(makeDataset(2), 2).Next()
	want, err := model.Embed(batch, KindEvent)
	require.NoError(t, err)
	got, err := loaded.Embed(batch, KindEvent)
	require.NoError(t, err)

	assert.Equal(t, want.data, got.data)
}

func TestLoadEncoderMissingFile(t *testing.T) {
	_, err := LoadEncoder(filepath.Join(t.TempDir(), "missing.bin"))
	require.Error(t, err)
}

func TestLoadEncoderRejectsCorruptHeader(t *testing.T) {
	// An absurd header length must be rejected up front instead of driving a
	// multi-gigabyte allocation before the read fails.
	path := filepath.Join(t.TempDir(), "corrupt.bin")
	require.NoError(t, os.WriteFile(path, []byte{0xff, 0xff, 0xff, 0xff}, 0o644))

	_, err := LoadEncoder(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid header length")

	// A zero-length header is equally malformed.
	require.NoError(t, os.WriteFile(path, []byte{0, 0, 0, 0}, 0o644))
	_, err = LoadEncoder(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid header length")
}

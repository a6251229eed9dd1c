package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempDataset(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestLoadDataset(t *testing.T) {
	path := writeTempDataset(t, `{"time_since_start":[0,1.5],"time_since_last_event":[0,1.5],"type_event":[0,1],"type_text":["login","logout"],"description":"a short session"}
{"time_since_start":[0],"time_since_last_event":[0],"type_event":[2],"type_text":["purchase"],"description":"one purchase"}
`)

	ds, err := LoadDataset(path)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	assert.Equal(t, []float64{0, 1.5}, ds.Examples[0].TimeSinceStart)
	assert.Equal(t, []string{"login", "logout"}, ds.Examples[0].TypeText)
	assert.Equal(t, "one purchase", ds.Examples[1].Description)
}

func TestLoadDatasetRejectsMismatchedLengths(t *testing.T) {
	path := writeTempDataset(t, `{"time_since_start":[0,1],"time_since_last_event":[0],"type_event":[0,1],"type_text":["a","b"],"description":"broken"}
`)

	_, err := LoadDataset(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mismatched lengths")
}

func TestLoadDatasetRejectsEmpty(t *testing.T) {
	path := writeTempDataset(t, "\n")
	_, err := LoadDataset(path)
	require.Error(t, err)
}

func TestLoadDatasetMissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "missing.jsonl"))
	require.Error(t, err)
}

func TestLoaderBatching(t *testing.T) {
	ds := makeDataset(5)
	loader := NewLoader(ds, 2)

	assert.Equal(t, 3, loader.Batches())

	sizes := []int{}
	for batch := loader.Next(); batch != nil; batch = loader.Next() {
		sizes = append(sizes, batch.Len())
	}
	assert.Equal(t, []int{2, 2, 1}, sizes)

	// Exhausted until reset.
	assert.Nil(t, loader.Next())
	loader.Reset()
	assert.NotNil(t, loader.Next())
}

func TestLoaderPanicsOnBadBatchSize(t *testing.T) {
	assert.Panics(t, func() { NewLoader(makeDataset(1), 0) })
}

func TestBatchTo(t *testing.T) {
	batch := NewLoader(makeDataset(2), 2).Next()
	placed := batch.To(DeviceCPU)

	assert.Equal(t, DeviceCPU, placed.Device())
	assert.Equal(t, batch.TimeSinceStart, placed.TimeSinceStart)
	assert.Equal(t, batch.Description, placed.Description)

	// Numeric fields are copies: mutating the placed batch must not leak
	// back into the source.
	placed.TimeSinceStart[0][0] = 99
	assert.NotEqual(t, 99.0, batch.TimeSinceStart[0][0])
}

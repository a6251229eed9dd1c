package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// ===========================================================================
// EVENT SEQUENCE DATA
// ===========================================================================
//
// A dataset is a list of event sequences, each paired with a free-text
// description. Sequences come from a temporal point process: every event has
// a timestamp (expressed both as time since sequence start and time since the
// previous event), a categorical type id, and the type's textual label.
//
// Datasets load from JSON Lines files, one example per line:
//
//   {"time_since_start": [0.0, 1.2, 3.4],
//    "time_since_last_event": [0.0, 1.2, 2.2],
//    "type_event": [0, 2, 1],
//    "type_text": ["login", "purchase", "logout"],
//    "description": "a short session ending in a purchase"}
//
// ===========================================================================

// Example is a single event sequence with its description.
// The four per-event fields are parallel: one entry per event.
type Example struct {
	TimeSinceStart     []float64 `json:"time_since_start"`
	TimeSinceLastEvent []float64 `json:"time_since_last_event"`
	TypeEvent          []int     `json:"type_event"`
	TypeText           []string  `json:"type_text"`
	Description        string    `json:"description"`
}

// Validate checks the parallel-length invariant across per-event fields.
func (e *Example) Validate() error {
	n := len(e.TimeSinceStart)
	if len(e.TimeSinceLastEvent) != n || len(e.TypeEvent) != n || len(e.TypeText) != n {
		return fmt.Errorf("example: per-event fields have mismatched lengths: %d/%d/%d/%d",
			n, len(e.TimeSinceLastEvent), len(e.TypeEvent), len(e.TypeText))
	}
	if n == 0 {
		return fmt.Errorf("example: empty event sequence")
	}
	return nil
}

// Batch is a group of examples with field-major layout: each field holds one
// entry per example. Numeric per-event fields are parallel in length to the
// event sequence of their example; text fields are one value per example.
type Batch struct {
	TimeSinceStart     [][]float64
	TimeSinceLastEvent [][]float64
	TypeEvent          [][]int
	TypeText           [][]string
	Description        []string

	device Device
}

// Len returns the number of examples in the batch.
func (b *Batch) Len() int {
	return len(b.Description)
}

// Device reports where the batch's numeric fields currently live.
func (b *Batch) Device() Device {
	return b.device
}

// To places the batch's numeric sequences on a device, copying them into
// fresh storage owned by the result. Text fields are shared: only numeric
// data participates in device transfer.
func (b *Batch) To(device Device) *Batch {
	out := &Batch{
		TimeSinceStart:     make([][]float64, len(b.TimeSinceStart)),
		TimeSinceLastEvent: make([][]float64, len(b.TimeSinceLastEvent)),
		TypeEvent:          make([][]int, len(b.TypeEvent)),
		TypeText:           b.TypeText,
		Description:        b.Description,
		device:             device,
	}
	for i, seq := range b.TimeSinceStart {
		out.TimeSinceStart[i] = append([]float64(nil), seq...)
	}
	for i, seq := range b.TimeSinceLastEvent {
		out.TimeSinceLastEvent[i] = append([]float64(nil), seq...)
	}
	for i, seq := range b.TypeEvent {
		out.TypeEvent[i] = append([]int(nil), seq...)
	}
	return out
}

// Dataset is an ordered collection of examples.
type Dataset struct {
	Examples []Example
}

// Len returns the number of examples.
func (d *Dataset) Len() int {
	return len(d.Examples)
}

// LoadDataset reads a JSON Lines dataset from a file, validating every
// example's parallel-length invariant.
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: failed to open %s: %w", path, err)
	}
	defer f.Close()

	ds := &Dataset{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var ex Example
		if err := json.Unmarshal(raw, &ex); err != nil {
			return nil, fmt.Errorf("dataset: %s line %d: %w", path, line, err)
		}
		if err := ex.Validate(); err != nil {
			return nil, fmt.Errorf("dataset: %s line %d: %w", path, line, err)
		}
		ds.Examples = append(ds.Examples, ex)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("dataset: failed to read %s: %w", path, err)
	}
	if len(ds.Examples) == 0 {
		return nil, fmt.Errorf("dataset: %s contains no examples", path)
	}

	return ds, nil
}

// BatchIterator yields batches of examples in a fixed order.
// Implementations must support repeated passes via Reset.
type BatchIterator interface {
	// Next returns the next batch, or nil once the pass is exhausted.
	Next() *Batch

	// Reset rewinds the iterator to the start of the dataset.
	Reset()

	// Batches returns the number of batches in one full pass.
	Batches() int
}

// Loader batches a dataset sequentially. The final batch may be smaller than
// the configured batch size.
type Loader struct {
	dataset   *Dataset
	batchSize int
	cursor    int
}

// NewLoader creates a loader over a dataset.
// Panics if batchSize is not positive.
func NewLoader(dataset *Dataset, batchSize int) *Loader {
	if batchSize <= 0 {
		panic(fmt.Sprintf("loader: batch size must be positive, got %d", batchSize))
	}
	return &Loader{dataset: dataset, batchSize: batchSize}
}

// Next returns the next batch, or nil at the end of the pass.
func (l *Loader) Next() *Batch {
	if l.cursor >= l.dataset.Len() {
		return nil
	}

	end := l.cursor + l.batchSize
	if end > l.dataset.Len() {
		end = l.dataset.Len()
	}

	examples := l.dataset.Examples[l.cursor:end]
	l.cursor = end

	batch := &Batch{
		TimeSinceStart:     make([][]float64, len(examples)),
		TimeSinceLastEvent: make([][]float64, len(examples)),
		TypeEvent:          make([][]int, len(examples)),
		TypeText:           make([][]string, len(examples)),
		Description:        make([]string, len(examples)),
	}
	for i, ex := range examples {
		batch.TimeSinceStart[i] = ex.TimeSinceStart
		batch.TimeSinceLastEvent[i] = ex.TimeSinceLastEvent
		batch.TypeEvent[i] = ex.TypeEvent
		batch.TypeText[i] = ex.TypeText
		batch.Description[i] = ex.Description
	}

	return batch
}

// Reset rewinds the loader to the start of the dataset.
func (l *Loader) Reset() {
	l.cursor = 0
}

// Batches returns the number of batches in one full pass.
func (l *Loader) Batches() int {
	return (l.dataset.Len() + l.batchSize - 1) / l.batchSize
}

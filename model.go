package main

import (
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// ===========================================================================
// DUAL-MODALITY EMBEDDING MODEL
// ===========================================================================
//
// One model, two input kinds. The same encoder embeds either a free-text
// description or an event sequence into a shared vector space:
//
//   text:  tokens -> hashed bag-of-words -> linear -> tanh -> projection
//   event: type labels + temporal stats  -> linear -> tanh -> projection
//
// The projection matrix is shared between modalities, so both paths update a
// common output space during contrastive training. Each modality keeps its
// own input featurizer and first linear layer.
//
// Backpropagation is manual, mirroring the two-matmul structure of the
// forward pass:
//
//   emb  = tanh(x @ W_kind) @ W_proj
//   dW_proj += a^T @ dEmb              (a = tanh activation)
//   dW_kind += x^T @ (dEmb @ W_proj^T * (1 - a^2))
//
// The forward pass caches x and a per input kind while in training mode;
// eval-mode forwards keep no caches and touch no gradient state.
//
// ===========================================================================

// InputKind selects which modality encoder a forward pass runs through.
type InputKind int

const (
	// KindText embeds the free-text description of each example.
	KindText InputKind = iota

	// KindEvent embeds the temporal event sequence of each example.
	KindEvent
)

// String returns the input kind label.
func (k InputKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEvent:
		return "event"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Model produces one embedding per batch example under a given input kind.
// Implementations own their parameters and gradient accumulation.
type Model interface {
	// Embed computes a (batch, embedDim) embedding matrix. In training mode
	// the model caches activations for a subsequent Backward call.
	Embed(batch *Batch, kind InputKind) (*Tensor, error)

	// Backward accumulates parameter gradients given dLoss/dEmbeddings from
	// the most recent training-mode Embed of the same kind.
	Backward(kind InputKind, grad *Tensor)

	// Parameters returns all trainable parameter tensors.
	Parameters() []*Tensor

	// SetTraining toggles training mode (activation caching) on or off.
	SetTraining(training bool)
}

// EncoderConfig holds the encoder's architecture hyperparameters.
type EncoderConfig struct {
	TextBuckets  int `json:"text_buckets" yaml:"text_buckets"`   // Hashed vocabulary size for description tokens
	EventBuckets int `json:"event_buckets" yaml:"event_buckets"` // Hashed vocabulary size for event type labels
	HiddenDim    int `json:"hidden_dim" yaml:"hidden_dim"`       // Width of the modality-specific hidden layer
	EmbedDim     int `json:"embed_dim" yaml:"embed_dim"`         // Output embedding dimension
}

// Validate checks that every dimension is positive. NewEventTextEncoder
// panics on a bad shape, so configuration loading must catch this first.
func (c EncoderConfig) Validate() error {
	checks := []struct {
		name string
		dim  int
	}{
		{"text_buckets", c.TextBuckets},
		{"event_buckets", c.EventBuckets},
		{"hidden_dim", c.HiddenDim},
		{"embed_dim", c.EmbedDim},
	}
	for _, ck := range checks {
		if ck.dim <= 0 {
			return fmt.Errorf("encoder: %s must be positive, got %d", ck.name, ck.dim)
		}
	}
	return nil
}

// numTemporalFeatures is the count of summary statistics appended to the
// hashed event-type features.
const numTemporalFeatures = 4

// DefaultEncoderConfig returns a small configuration suitable for CPU
// training.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		TextBuckets:  512,
		EventBuckets: 256,
		HiddenDim:    128,
		EmbedDim:     64,
	}
}

// forwardCache stores activations needed by the backward pass.
type forwardCache struct {
	input  *Tensor // (batch, features) featurized input
	hidden *Tensor // (batch, hiddenDim) tanh activations
}

// EventTextEncoder is the concrete dual-modality encoder.
type EventTextEncoder struct {
	config EncoderConfig

	wText  *Tensor // (textBuckets, hiddenDim)
	wEvent *Tensor // (eventBuckets + temporal features, hiddenDim)
	wProj  *Tensor // (hiddenDim, embedDim), shared across modalities

	training bool
	caches   map[InputKind]*forwardCache
}

// NewEventTextEncoder creates an encoder with randomly initialized weights.
func NewEventTextEncoder(config EncoderConfig) *EventTextEncoder {
	return &EventTextEncoder{
		config: config,
		wText:  NewTensorRand(config.TextBuckets, config.HiddenDim),
		wEvent: NewTensorRand(config.EventBuckets+numTemporalFeatures, config.HiddenDim),
		wProj:  NewTensorRand(config.HiddenDim, config.EmbedDim),
		caches: make(map[InputKind]*forwardCache),
	}
}

// Config returns the encoder's architecture configuration.
func (m *EventTextEncoder) Config() EncoderConfig {
	return m.config
}

// SetTraining toggles activation caching. Switching to eval mode drops any
// cached activations.
func (m *EventTextEncoder) SetTraining(training bool) {
	m.training = training
	if !training {
		m.caches = make(map[InputKind]*forwardCache)
	}
}

// Parameters returns all trainable parameter tensors.
func (m *EventTextEncoder) Parameters() []*Tensor {
	return []*Tensor{m.wText, m.wEvent, m.wProj}
}

// Embed computes one embedding per example for the given input kind.
func (m *EventTextEncoder) Embed(batch *Batch, kind InputKind) (*Tensor, error) {
	var (
		input   *Tensor
		weights *Tensor
	)

	switch kind {
	case KindText:
		input = m.featurizeText(batch)
		weights = m.wText
	case KindEvent:
		input = m.featurizeEvents(batch)
		weights = m.wEvent
	default:
		return nil, fmt.Errorf("unknown input kind: %v", kind)
	}

	hidden := Tanh(MatMul(input, weights))
	emb := MatMul(hidden, m.wProj)

	if m.training {
		m.caches[kind] = &forwardCache{input: input, hidden: hidden}
	}

	return emb, nil
}

// Backward accumulates gradients from dLoss/dEmbeddings into the parameter
// gradient buffers. Panics if no training-mode forward pass cached
// activations for the kind - that is a sequencing bug in the caller.
func (m *EventTextEncoder) Backward(kind InputKind, grad *Tensor) {
	cache, ok := m.caches[kind]
	if !ok {
		panic(fmt.Sprintf("encoder: Backward(%v) without a cached forward pass", kind))
	}
	delete(m.caches, kind)

	// dW_proj += a^T @ dEmb
	gradProj := MatMul(Transpose(cache.hidden), grad)
	accumulateGrad(m.wProj, gradProj)

	// dA = dEmb @ W_proj^T, then through tanh: dH = dA * (1 - a^2)
	gradHidden := MatMul(grad, Transpose(m.wProj))
	for i := range gradHidden.data {
		a := cache.hidden.data[i]
		gradHidden.data[i] *= 1 - a*a
	}

	// dW_kind += x^T @ dH
	gradIn := MatMul(Transpose(cache.input), gradHidden)
	switch kind {
	case KindText:
		accumulateGrad(m.wText, gradIn)
	case KindEvent:
		accumulateGrad(m.wEvent, gradIn)
	}
}

func accumulateGrad(param, grad *Tensor) {
	for i := range param.grad {
		param.grad[i] += grad.data[i]
	}
}

// featurizeText builds hashed bag-of-words vectors from descriptions.
func (m *EventTextEncoder) featurizeText(batch *Batch) *Tensor {
	out := NewTensor(batch.Len(), m.config.TextBuckets)

	for i, desc := range batch.Description {
		tokens := tokenize(desc)
		if len(tokens) == 0 {
			continue
		}
		weight := 1.0 / float64(len(tokens))
		row := out.Row(i)
		for _, tok := range tokens {
			row[hashBucket(tok, m.config.TextBuckets)] += weight
		}
	}

	return out
}

// featurizeEvents builds hashed event-type vectors with appended temporal
// summary statistics.
func (m *EventTextEncoder) featurizeEvents(batch *Batch) *Tensor {
	out := NewTensor(batch.Len(), m.config.EventBuckets+numTemporalFeatures)

	for i := range batch.Description {
		types := batch.TypeText[i]
		sinceStart := batch.TimeSinceStart[i]
		sinceLast := batch.TimeSinceLastEvent[i]
		row := out.Row(i)

		if len(types) > 0 {
			weight := 1.0 / float64(len(types))
			for _, label := range types {
				row[hashBucket(strings.ToLower(label), m.config.EventBuckets)] += weight
			}
		}

		// Temporal summary: duration, mean and max inter-event gap, length.
		// Log-compressed so heavy-tailed arrival times stay in range.
		var duration, meanGap, maxGap float64
		if n := len(sinceStart); n > 0 {
			duration = sinceStart[n-1]
		}
		if n := len(sinceLast); n > 0 {
			sum := 0.0
			for _, gap := range sinceLast {
				sum += gap
				if gap > maxGap {
					maxGap = gap
				}
			}
			meanGap = sum / float64(n)
		}

		base := m.config.EventBuckets
		row[base] = math.Log1p(duration)
		row[base+1] = math.Log1p(meanGap)
		row[base+2] = math.Log1p(maxGap)
		row[base+3] = math.Log1p(float64(len(types)))
	}

	return out
}

// tokenize lowercases and splits on non-alphanumeric runes.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// hashBucket maps a token to a feature bucket via FNV-1a.
func hashBucket(token string, buckets int) int {
	h := fnv.New32a()
	h.Write([]byte(token))
	return int(h.Sum32() % uint32(buckets))
}

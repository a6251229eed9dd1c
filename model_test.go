package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tinyEncoder() *EventTextEncoder {
	return NewEventTextEncoder(EncoderConfig{
		TextBuckets:  16,
		EventBuckets: 8,
		HiddenDim:    6,
		EmbedDim:     4,
	})
}

func TestEncoderEmbedShapes(t *testing.T) {
	model := tinyEncoder()
	batch := NewLoader(makeDataset(3), 3).Next()

	for _, kind := range []InputKind{KindText, KindEvent} {
		emb, err := model.Embed(batch, kind)
		require.NoError(t, err)
		assert.Equal(t, []int{3, 4}, emb.Shape())
	}
}

func TestEncoderUnknownKind(t *testing.T) {
	model := tinyEncoder()
	batch := NewLoader(makeDataset(1), 1).Next()

	_, err := model.Embed(batch, InputKind(9))
	require.Error(t, err)
}

func TestEncoderDeterministicForward(t *testing.T) {
	model := tinyEncoder()
	batch := NewLoader(makeDataset(2), 2).Next()

	a, err := model.Embed(batch, KindText)
	require.NoError(t, err)
	b, err := model.Embed(batch, KindText)
	require.NoError(t, err)

	assert.Equal(t, a.data, b.data)
}

func TestEncoderEvalKeepsNoCache(t *testing.T) {
	model := tinyEncoder()
	model.SetTraining(false)
	batch := NewLoader(makeDataset(2), 2).Next()

	_, err := model.Embed(batch, KindText)
	require.NoError(t, err)

	assert.Panics(t, func() {
		model.Backward(KindText, NewTensor(2, 4))
	})
}

func TestEncoderBackwardAccumulatesGradients(t *testing.T) {
	model := tinyEncoder()
	model.SetTraining(true)
	batch := NewLoader(makeDataset(2), 2).Next()

	emb, err := model.Embed(batch, KindText)
	require.NoError(t, err)

	grad := NewTensor(emb.shape...)
	for i := range grad.data {
		grad.data[i] = 1.0
	}
	model.Backward(KindText, grad)

	nonzero := func(p *Tensor) bool {
		for _, g := range p.grad {
			if g != 0 {
				return true
			}
		}
		return false
	}

	assert.True(t, nonzero(model.wProj), "projection gradients should be nonzero")
	assert.True(t, nonzero(model.wText), "text weights gradients should be nonzero")
	assert.False(t, nonzero(model.wEvent), "event weights untouched by a text backward")
}

// TestEncoderGradientNumerical checks the model's manual backward pass
// end-to-end through the contrastive loss with finite differences.
func TestEncoderGradientNumerical(t *testing.T) {
	model := NewEventTextEncoder(EncoderConfig{
		TextBuckets:  8,
		EventBuckets: 4,
		HiddenDim:    3,
		EmbedDim:     2,
	})
	lossFn := NewContrastiveLoss(0.5)
	batch := NewLoader(makeVariedDataset(3), 3).Next()

	forwardLoss := func() float64 {
		model.SetTraining(false)
		desc, err := model.Embed(batch, KindText)
		require.NoError(t, err)
		seq, err := model.Embed(batch, KindEvent)
		require.NoError(t, err)
		value, _, _ := lossFn.Loss(desc, seq)
		return value
	}

	// Analytic gradients.
	model.SetTraining(true)
	desc, err := model.Embed(batch, KindText)
	require.NoError(t, err)
	seq, err := model.Embed(batch, KindEvent)
	require.NoError(t, err)
	_, gradDesc, gradSeq := lossFn.Loss(desc, seq)
	for _, p := range model.Parameters() {
		p.ZeroGrad()
	}
	model.Backward(KindText, gradDesc)
	model.Backward(KindEvent, gradSeq)

	const h = 1e-6
	for _, p := range model.Parameters() {
		// A handful of entries per parameter keeps the test fast.
		for _, i := range []int{0, 1, len(p.data) / 2, len(p.data) - 1} {
			orig := p.data[i]

			p.data[i] = orig + h
			plus := forwardLoss()
			p.data[i] = orig - h
			minus := forwardLoss()
			p.data[i] = orig

			numeric := (plus - minus) / (2 * h)
			require.InDeltaf(t, numeric, p.grad[i], 1e-4,
				"parameter %v element %d", p.Shape(), i)
		}
	}
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"two", "logins", "then", "a", "refund"},
		tokenize("Two logins, then a refund!"))
	assert.Empty(t, tokenize("--- ???"))
}

func TestHashBucketStable(t *testing.T) {
	a := hashBucket("purchase", 64)
	b := hashBucket("purchase", 64)
	assert.Equal(t, a, b)
	assert.GreaterOrEqual(t, a, 0)
	assert.Less(t, a, 64)
}

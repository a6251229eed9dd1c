package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomEmbeddings(rows, cols int) *Tensor {
	t := NewTensorRand(rows, cols)
	// Spread values out so norms are far from the epsilon floor.
	for i := range t.data {
		t.data[i] *= 50
	}
	return t
}

func TestContrastiveLossPrefersAlignedPairs(t *testing.T) {
	lossFn := NewContrastiveLoss(0.1)

	// Perfectly aligned: identical orthogonal rows.
	aligned := NewTensor(3, 3)
	for i := 0; i < 3; i++ {
		aligned.Set(1, i, i)
	}
	alignedLoss, _, _ := lossFn.Loss(aligned, aligned.Clone())

	// Misaligned: each description matches the next sequence instead.
	shifted := NewTensor(3, 3)
	for i := 0; i < 3; i++ {
		shifted.Set(1, (i+1)%3, i)
	}
	shiftedLoss, _, _ := lossFn.Loss(aligned, shifted)

	assert.Less(t, alignedLoss, shiftedLoss)
}

func TestContrastiveLossGradientShapes(t *testing.T) {
	lossFn := NewContrastiveLoss(0.07)
	desc := randomEmbeddings(4, 6)
	seq := randomEmbeddings(4, 6)

	_, gradDesc, gradSeq := lossFn.Loss(desc, seq)
	assert.Equal(t, desc.Shape(), gradDesc.Shape())
	assert.Equal(t, seq.Shape(), gradSeq.Shape())
}

// TestContrastiveLossGradientNumerical checks the analytic gradients against
// central finite differences.
func TestContrastiveLossGradientNumerical(t *testing.T) {
	lossFn := NewContrastiveLoss(0.25)
	desc := randomEmbeddings(3, 4)
	seq := randomEmbeddings(3, 4)

	_, gradDesc, gradSeq := lossFn.Loss(desc, seq)

	const h = 1e-6
	check := func(target, grad *Tensor) {
		for i := range target.data {
			orig := target.data[i]

			target.data[i] = orig + h
			plus, _, _ := lossFn.Loss(desc, seq)

			target.data[i] = orig - h
			minus, _, _ := lossFn.Loss(desc, seq)

			target.data[i] = orig

			numeric := (plus - minus) / (2 * h)
			require.InDeltaf(t, numeric, grad.data[i], 1e-5,
				"gradient mismatch at element %d", i)
		}
	}

	check(desc, gradDesc)
	check(seq, gradSeq)
}

func TestContrastiveLossTemperatureSharpens(t *testing.T) {
	desc := randomEmbeddings(4, 8)
	seq := desc.Clone()

	warm, _, _ := NewContrastiveLoss(1.0).Loss(desc, seq)
	sharp, _, _ := NewContrastiveLoss(0.05).Loss(desc, seq)

	// With identical pairs, a sharper softmax concentrates probability on
	// the diagonal and drives the loss down.
	assert.Less(t, sharp, warm)
}

func TestContrastiveLossRejectsBadInput(t *testing.T) {
	assert.Panics(t, func() { NewContrastiveLoss(0) })
	assert.Panics(t, func() {
		NewContrastiveLoss(0.1).Loss(NewTensor(2, 3), NewTensor(3, 3))
	})
}

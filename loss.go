package main

import (
	"math"
)

// ===========================================================================
// CONTRASTIVE LOSS
// ===========================================================================
//
// Symmetric in-batch InfoNCE over temperature-scaled cosine similarities.
// For a batch of B (description, sequence) pairs, the i-th description and
// i-th sequence are positives; every other pairing in the batch is a
// negative. Both embeddings are L2-normalized, so the similarity matrix is
//
//   S = Zd @ Zs^T / temperature
//
// and the loss averages cross-entropy against the diagonal in both
// directions (description -> sequence and sequence -> description):
//
//   L = -(1/2B) * [ sum_i log softmax_row(S)[i,i]
//                 + sum_j log softmax_col(S)[j,j] ]
//
// The gradient w.r.t. S is (P - I)/2B + (Q - I)/2B where P and Q are the
// row-wise and column-wise softmaxes; it is then pushed back through the
// similarity product and the row normalization analytically.
//
// ===========================================================================

// Loss scores how well two embedding matrices align and provides gradients
// for training.
type Loss interface {
	// Loss returns the scalar loss and its gradients with respect to the
	// description and sequence embedding matrices. Both inputs must be
	// (batch, dim) with matching shapes.
	Loss(descEmb, seqEmb *Tensor) (float64, *Tensor, *Tensor)
}

// ContrastiveLoss is symmetric InfoNCE with in-batch negatives.
type ContrastiveLoss struct {
	// Temperature scales similarities before the softmax. Smaller values
	// sharpen the distribution. Must be positive.
	Temperature float64
}

// NewContrastiveLoss creates a contrastive loss with the given temperature.
// Panics if temperature is not positive.
func NewContrastiveLoss(temperature float64) *ContrastiveLoss {
	if temperature <= 0 {
		panic("loss: temperature must be positive")
	}
	return &ContrastiveLoss{Temperature: temperature}
}

// Loss computes the symmetric InfoNCE loss and its gradients.
func (l *ContrastiveLoss) Loss(descEmb, seqEmb *Tensor) (float64, *Tensor, *Tensor) {
	if !shapeEqual(descEmb.shape, seqEmb.shape) {
		panic("loss: embedding shape mismatch")
	}
	if len(descEmb.shape) != 2 {
		panic("loss: embeddings must be 2D")
	}

	batch := descEmb.shape[0]

	// Row-normalize both embedding sets.
	zd, normsD := normalizeRows(descEmb)
	zs, normsS := normalizeRows(seqEmb)

	// Similarity matrix S = Zd @ Zs^T / temperature.
	sim := Scale(MatMul(zd, Transpose(zs)), 1.0/l.Temperature)

	rowProb := Softmax(sim)
	colProb := Softmax(Transpose(sim))

	// Loss over the diagonal in both directions.
	const eps = 1e-12
	loss := 0.0
	for i := 0; i < batch; i++ {
		loss -= math.Log(rowProb.At(i, i) + eps)
		loss -= math.Log(colProb.At(i, i) + eps)
	}
	loss /= 2 * float64(batch)

	// Gradient w.r.t. the similarity matrix:
	// G = ((P - I) + (Q^T - I)) / 2B, then /temperature for the scaling.
	gradSim := NewTensor(batch, batch)
	scale := 1.0 / (2 * float64(batch) * l.Temperature)
	for i := 0; i < batch; i++ {
		for j := 0; j < batch; j++ {
			g := rowProb.At(i, j) + colProb.At(j, i)
			if i == j {
				g -= 2
			}
			gradSim.Set(g*scale, i, j)
		}
	}

	// Through the similarity product onto the normalized embeddings.
	gradZd := MatMul(gradSim, zs)
	gradZs := MatMul(Transpose(gradSim), zd)

	// Through the row normalization onto the raw embeddings.
	gradDesc := normalizeRowsBackward(zd, normsD, gradZd)
	gradSeq := normalizeRowsBackward(zs, normsS, gradZs)

	return loss, gradDesc, gradSeq
}

// normalizeRows returns a row-normalized copy of a 2D tensor along with the
// pre-normalization row norms. Norms are floored at a small epsilon so zero rows
// don't divide by zero.
func normalizeRows(t *Tensor) (*Tensor, []float64) {
	rows, cols := t.shape[0], t.shape[1]
	out := NewTensor(rows, cols)
	norms := make([]float64, rows)

	for i := 0; i < rows; i++ {
		src := t.Row(i)
		norm := 0.0
		for _, v := range src {
			norm += v * v
		}
		norm = math.Sqrt(norm)
		if norm < 1e-12 {
			norm = 1e-12
		}
		norms[i] = norm

		dst := out.Row(i)
		for j, v := range src {
			dst[j] = v / norm
		}
	}

	return out, norms
}

// normalizeRowsBackward maps gradients w.r.t. normalized rows back to the
// raw rows: dx = (g - (g . z) z) / ||x||.
func normalizeRowsBackward(z *Tensor, norms []float64, grad *Tensor) *Tensor {
	rows, cols := z.shape[0], z.shape[1]
	out := NewTensor(rows, cols)

	for i := 0; i < rows; i++ {
		zRow := z.Row(i)
		gRow := grad.Row(i)

		dot := 0.0
		for j := 0; j < cols; j++ {
			dot += gRow[j] * zRow[j]
		}

		dst := out.Row(i)
		for j := 0; j < cols; j++ {
			dst[j] = (gRow[j] - dot*zRow[j]) / norms[i]
		}
	}

	return out
}

package main

// ===========================================================================
// SIMILARITY EVALUATION
// ===========================================================================
//
// Retrieval-style evaluation over a full epoch of embeddings. Each
// description embedding queries the whole set of sequence embeddings under
// cosine similarity; the matching sequence (same row index) is the single
// relevant item. Reported metrics:
//
//   cosine_mrr        mean reciprocal rank of the true sequence
//   cosine_recall@K   fraction of queries whose true sequence ranks in the
//                     top K (K = 1, 5, 10)
//   cosine_mean_rank  average rank of the true sequence (1-based)
//
// Ranks count strictly-greater similarities, so ties rank optimistically.
//
// ===========================================================================

// Metrics maps metric names to scalar values for one epoch.
type Metrics map[string]float64

// RankingMetric is the validation metric used to select the best epoch.
const RankingMetric = "cosine_mrr"

var recallCutoffs = []int{1, 5, 10}

// EvaluateSimilarities computes ranking metrics between description and
// sequence embeddings. Both must be (n, dim) matrices with matching shapes,
// rows paired by index.
func EvaluateSimilarities(descEmb, seqEmb *Tensor) Metrics {
	if !shapeEqual(descEmb.shape, seqEmb.shape) {
		panic("evaluation: embedding shape mismatch")
	}
	if len(descEmb.shape) != 2 {
		panic("evaluation: embeddings must be 2D")
	}

	n := descEmb.shape[0]

	zd, _ := normalizeRows(descEmb)
	zs, _ := normalizeRows(seqEmb)

	// sim[i][j] = cosine similarity of description i and sequence j.
	sim := MatMul(zd, Transpose(zs))

	sumReciprocal := 0.0
	sumRank := 0.0
	recallHits := make([]int, len(recallCutoffs))

	for i := 0; i < n; i++ {
		row := sim.Row(i)
		target := row[i]

		rank := 1
		for j, v := range row {
			if j != i && v > target {
				rank++
			}
		}

		sumReciprocal += 1.0 / float64(rank)
		sumRank += float64(rank)
		for c, k := range recallCutoffs {
			if rank <= k {
				recallHits[c]++
			}
		}
	}

	metrics := Metrics{
		RankingMetric:      sumReciprocal / float64(n),
		"cosine_mean_rank": sumRank / float64(n),
	}
	for c, k := range recallCutoffs {
		metrics[recallKey(k)] = float64(recallHits[c]) / float64(n)
	}

	return metrics
}

func recallKey(k int) string {
	switch k {
	case 1:
		return "cosine_recall@1"
	case 5:
		return "cosine_recall@5"
	case 10:
		return "cosine_recall@10"
	default:
		panic("evaluation: unsupported recall cutoff")
	}
}

package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ===========================================================================
// TRAINING / EVALUATION RUNNER
// ===========================================================================
//
// The runner drives contrastive training and evaluation of a dual-modality
// embedding model over batched event-sequence data. Control flow is a flat
// two-level loop: epochs containing batches, processed strictly one at a
// time. Per training batch:
//
//   1. Place the batch's numeric fields on the configured device
//   2. Forward pass under the text kind, then under the event kind
//   3. Contrastive loss between the two embedding sets
//   4. Zero gradients, backpropagate, one optimizer step
//   5. Advance the learning rate schedule, increment the global step
//
// Eval batches run both forward passes without gradient tracking and leave
// the optimizer, schedule, and step counter untouched.
//
// The only errors produced here are an unrecognized phase and an
// unrecognized schedule kind, both rejected before any state mutation.
// Everything else (shape mismatches, NaNs) propagates from below and
// terminates the run: a single-process training loop has nothing useful to
// do with a half-failed step.
//
// ===========================================================================

// ErrUnknownPhase is returned for a phase outside the closed train/eval set.
var ErrUnknownPhase = errors.New("unknown phase")

// Phase is the execution mode for a batch: parameter-updating or read-only.
type Phase int

const (
	// PhaseTrain updates model parameters.
	PhaseTrain Phase = iota

	// PhaseEval computes embeddings without touching any training state.
	PhaseEval
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseTrain:
		return "train"
	case PhaseEval:
		return "eval"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase maps a phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	switch s {
	case "train":
		return PhaseTrain, nil
	case "eval":
		return PhaseEval, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
}

// TrainState tracks the mutable counters of one Run invocation. It is reset
// at the start of every Run, so no training state leaks across calls.
type TrainState struct {
	GlobalStep  int // Completed training steps, advances only in train phase
	TotalSteps  int // Epochs x batches per epoch
	WarmupSteps int // Truncated warmup ratio x total steps
	Epochs      int // Requested training epochs
}

// EpochProgress returns the fractional epoch the run has reached.
func (s TrainState) EpochProgress() float64 {
	if s.TotalSteps == 0 {
		return 0
	}
	return float64(s.GlobalStep) / float64(s.TotalSteps) * float64(s.Epochs)
}

// RunOptions configures one Run invocation. Each iterator is optional; a nil
// iterator skips that split entirely.
type RunOptions struct {
	Train BatchIterator
	Val   BatchIterator
	Test  BatchIterator

	LearningRate float64      // Base learning rate, must be positive
	Schedule     ScheduleKind // Learning rate schedule shape
	Epochs       int          // Number of training epochs, non-negative
	WarmupRatio  float64      // Fraction of total steps spent warming up, in [0,1]
}

// Runner drives training and evaluation over a model and loss function.
type Runner struct {
	model    Model
	lossFn   Loss
	device   Device
	reporter Reporter

	showProgress bool

	state     TrainState
	optimizer Optimizer
	scheduler *LRScheduler
}

// NewRunner creates a runner for the given model and loss on a device.
// Metrics go to a logrus-backed reporter by default; replace it with
// SetReporter for tests or alternative sinks.
func NewRunner(model Model, lossFn Loss, device Device) *Runner {
	return &Runner{
		model:        model,
		lossFn:       lossFn,
		device:       device,
		reporter:     NewLogReporter(logrus.StandardLogger()),
		showProgress: true,
	}
}

// SetReporter replaces the runner's metric reporter.
func (r *Runner) SetReporter(reporter Reporter) {
	r.reporter = reporter
}

// SetShowProgress toggles the per-epoch progress bar.
func (r *Runner) SetShowProgress(show bool) {
	r.showProgress = show
}

// State returns a copy of the current training state.
func (r *Runner) State() TrainState {
	return r.state
}

// RunBatch processes one batch under the given phase and returns the
// description and sequence embedding matrices, each with one row per batch
// example.
//
// An unrecognized phase fails before any optimizer or schedule state is
// touched.
func (r *Runner) RunBatch(batch *Batch, phase Phase) (*Tensor, *Tensor, error) {
	switch phase {
	case PhaseTrain, PhaseEval:
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownPhase, phase)
	}

	placed := batch.To(r.device)

	if phase == PhaseEval {
		r.model.SetTraining(false)

		descEmb, err := r.model.Embed(placed, KindText)
		if err != nil {
			return nil, nil, err
		}
		seqEmb, err := r.model.Embed(placed, KindEvent)
		if err != nil {
			return nil, nil, err
		}
		return descEmb, seqEmb, nil
	}

	if r.optimizer == nil || r.scheduler == nil {
		return nil, nil, errors.New("runner: train batch before Run initialized the optimizer")
	}

	r.model.SetTraining(true)

	descEmb, err := r.model.Embed(placed, KindText)
	if err != nil {
		return nil, nil, err
	}
	seqEmb, err := r.model.Embed(placed, KindEvent)
	if err != nil {
		return nil, nil, err
	}

	lr := r.scheduler.LR()
	loss, gradDesc, gradSeq := r.lossFn.Loss(descEmb, seqEmb)

	r.reporter.TrainStep(r.state, Metrics{
		"loss":          loss,
		"learning_rate": lr,
		"epoch":         r.state.EpochProgress(),
	})

	params := r.model.Parameters()
	r.optimizer.ZeroGrad(params)
	r.model.Backward(KindText, gradDesc)
	r.model.Backward(KindEvent, gradSeq)
	r.optimizer.Step(params, lr)

	r.scheduler.Step()
	r.state.GlobalStep++

	return descEmb, seqEmb, nil
}

// RunEpoch processes every batch from the iterator, concatenating the
// per-batch embeddings across the whole epoch. In eval phase the
// concatenated embeddings are scored with the similarity evaluation; train
// epochs return empty metrics.
func (r *Runner) RunEpoch(iter BatchIterator, phase Phase) (Metrics, error) {
	iter.Reset()

	var bar interface{ Add(int) error }
	if r.showProgress {
		bar = newEpochBar(iter.Batches(), phase.String())
	}

	var descParts, seqParts []*Tensor
	for batch := iter.Next(); batch != nil; batch = iter.Next() {
		descEmb, seqEmb, err := r.RunBatch(batch, phase)
		if err != nil {
			return nil, err
		}
		descParts = append(descParts, descEmb)
		seqParts = append(seqParts, seqEmb)

		if bar != nil {
			_ = bar.Add(1)
		}
	}

	if len(descParts) == 0 {
		return nil, errors.New("runner: iterator yielded no batches")
	}

	if phase == PhaseEval {
		descEmb := ConcatRows(descParts...)
		seqEmb := ConcatRows(seqParts...)
		return EvaluateSimilarities(descEmb, seqEmb), nil
	}

	return Metrics{}, nil
}

// Run executes the full training/evaluation loop: an initial evaluation on
// the validation and test splits, then per epoch one training pass, one
// validation pass with best-result tracking on the ranking metric, and one
// test pass. Each split is skipped when its iterator is nil.
//
// Run returns the best validation metrics observed, or nil if no validation
// iterator was supplied.
func (r *Runner) Run(opts RunOptions) (Metrics, error) {
	if opts.LearningRate <= 0 {
		return nil, fmt.Errorf("runner: learning rate must be positive, got %g", opts.LearningRate)
	}
	if opts.WarmupRatio < 0 || opts.WarmupRatio > 1 {
		return nil, fmt.Errorf("runner: warmup ratio must be in [0,1], got %g", opts.WarmupRatio)
	}
	if opts.Epochs < 0 {
		return nil, fmt.Errorf("runner: epochs must be non-negative, got %d", opts.Epochs)
	}

	batchesPerEpoch := 0
	if opts.Train != nil {
		batchesPerEpoch = opts.Train.Batches()
	}

	// Fresh counters for this invocation. Warmup truncates rather than
	// rounds; changing that silently shifts warmup behavior between runs.
	r.state = TrainState{
		TotalSteps:  opts.Epochs * batchesPerEpoch,
		WarmupSteps: int(opts.WarmupRatio * float64(opts.Epochs*batchesPerEpoch)),
		Epochs:      opts.Epochs,
	}

	r.optimizer = NewDefaultAdam(r.model.Parameters())

	scheduler, err := NewLRScheduler(opts.Schedule, opts.LearningRate, r.state.WarmupSteps, r.state.TotalSteps)
	if err != nil {
		return nil, err
	}
	r.scheduler = scheduler

	// Evaluation before any training, establishing the best-so-far baseline.
	var bestVal Metrics

	if opts.Val != nil {
		metrics, err := r.RunEpoch(opts.Val, PhaseEval)
		if err != nil {
			return nil, err
		}
		r.reporter.EpochResult("validation", -1, metrics)
		bestVal = metrics
	}

	if opts.Test != nil {
		metrics, err := r.RunEpoch(opts.Test, PhaseEval)
		if err != nil {
			return nil, err
		}
		r.reporter.EpochResult("test", -1, metrics)
	}

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		if opts.Train != nil {
			metrics, err := r.RunEpoch(opts.Train, PhaseTrain)
			if err != nil {
				return nil, err
			}
			r.reporter.EpochResult("train", epoch, metrics)
		}

		if opts.Val != nil {
			metrics, err := r.RunEpoch(opts.Val, PhaseEval)
			if err != nil {
				return nil, err
			}
			r.reporter.EpochResult("validation", epoch, metrics)

			if bestVal != nil && metrics[RankingMetric] > bestVal[RankingMetric] {
				bestVal = metrics
				r.reporter.NewBest(epoch, metrics)
			}
		}

		if opts.Test != nil {
			metrics, err := r.RunEpoch(opts.Test, PhaseEval)
			if err != nil {
				return nil, err
			}
			r.reporter.EpochResult("test", epoch, metrics)
		}
	}

	return bestVal, nil
}

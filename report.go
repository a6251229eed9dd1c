package main

import (
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// Reporter receives metric snapshots from the runner. The training loop
// itself performs no output; everything observable goes through this
// interface so tests can capture it and tools can redirect it.
type Reporter interface {
	// TrainStep is called once per training batch with the step snapshot
	// (loss, learning_rate, fractional epoch).
	TrainStep(state TrainState, metrics Metrics)

	// EpochResult is called with a split's metrics after each evaluation or
	// training pass. epoch is -1 for the evaluation performed before any
	// training.
	EpochResult(split string, epoch int, metrics Metrics)

	// NewBest is called when a validation epoch improves the ranking metric.
	NewBest(epoch int, metrics Metrics)
}

// LogReporter logs metric snapshots through logrus, tagging every entry with
// a run id.
type LogReporter struct {
	entry *logrus.Entry
}

// NewLogReporter creates a reporter bound to the given logger under a fresh
// run id.
func NewLogReporter(logger *logrus.Logger) *LogReporter {
	return &LogReporter{
		entry: logger.WithField("run_id", uuid.NewString()),
	}
}

// TrainStep logs one training step snapshot.
func (r *LogReporter) TrainStep(state TrainState, metrics Metrics) {
	fields := logrus.Fields{"step": state.GlobalStep}
	for name, value := range metrics {
		fields[name] = value
	}
	r.entry.WithFields(fields).Info("train step")
}

// EpochResult logs a split's epoch metrics.
func (r *LogReporter) EpochResult(split string, epoch int, metrics Metrics) {
	fields := logrus.Fields{"split": split}
	if epoch < 0 {
		fields["epoch"] = "initial"
	} else {
		fields["epoch"] = epoch
	}
	for name, value := range metrics {
		fields[name] = value
	}
	r.entry.WithFields(fields).Info("epoch results")
}

// NewBest logs an improvement of the validation ranking metric.
func (r *LogReporter) NewBest(epoch int, metrics Metrics) {
	r.entry.WithFields(logrus.Fields{
		"epoch":       epoch,
		RankingMetric: metrics[RankingMetric],
	}).Info("new best validation results")
}

// newEpochBar builds the per-epoch progress bar shown while batches are
// processed.
func newEpochBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

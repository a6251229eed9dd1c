package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunTrainCommand implements the training CLI.
//
// It assembles the full pipeline: load JSONL datasets, build the encoder and
// contrastive loss, run the training/evaluation loop, and save the trained
// encoder. Hyperparameters come from an optional YAML config file, with
// flags overriding individual values.
func RunTrainCommand(args []string) error {
	fs := flag.NewFlagSet("train", flag.ExitOnError)

	configPath := fs.String("config", "", "YAML run configuration file")

	// Data
	trainPath := fs.String("train", "", "Training dataset (JSON Lines)")
	valPath := fs.String("val", "", "Validation dataset (JSON Lines)")
	testPath := fs.String("test", "", "Test dataset (JSON Lines)")
	batchSize := fs.Int("batch", 0, "Batch size")

	// Optimization
	lr := fs.Float64("lr", 0, "Learning rate")
	schedule := fs.String("schedule", "", "LR schedule: constant, constant_with_warmup, linear, cosine")
	epochs := fs.Int("epochs", -1, "Number of training epochs")
	warmupRatio := fs.Float64("warmup", -1, "Warmup ratio in [0,1]")

	// Output
	modelPath := fs.String("model", "encoder.bin", "Output checkpoint path")

	noProgress := fs.Bool("no-progress", false, "Disable the per-epoch progress bar")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := DefaultRunConfig()
	if *configPath != "" {
		loaded, err := LoadRunConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	// Flag overrides
	if *trainPath != "" {
		cfg.TrainPath = *trainPath
	}
	if *valPath != "" {
		cfg.ValPath = *valPath
	}
	if *testPath != "" {
		cfg.TestPath = *testPath
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *lr > 0 {
		cfg.LearningRate = *lr
	}
	if *schedule != "" {
		cfg.Schedule = *schedule
	}
	if *epochs >= 0 {
		cfg.Epochs = *epochs
	}
	if *warmupRatio >= 0 {
		cfg.WarmupRatio = *warmupRatio
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.TrainPath == "" {
		return fmt.Errorf("train: no training dataset given (use -train or train_path in the config)")
	}

	scheduleKind, err := ParseScheduleKind(cfg.Schedule)
	if err != nil {
		return err
	}
	device, err := ParseDevice(cfg.Device)
	if err != nil {
		return err
	}
	backend := NewBackendConfig(device, cfg.Deterministic)
	backend.Apply()

	opts := RunOptions{
		LearningRate: cfg.LearningRate,
		Schedule:     scheduleKind,
		Epochs:       cfg.Epochs,
		WarmupRatio:  cfg.WarmupRatio,
	}

	loadSplit := func(name, path string) (BatchIterator, error) {
		if path == "" {
			return nil, nil
		}
		ds, err := LoadDataset(path)
		if err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"split":    name,
			"path":     path,
			"examples": ds.Len(),
		}).Info("loaded dataset")
		return NewLoader(ds, cfg.BatchSize), nil
	}

	if opts.Train, err = loadSplit("train", cfg.TrainPath); err != nil {
		return err
	}
	if opts.Val, err = loadSplit("validation", cfg.ValPath); err != nil {
		return err
	}
	if opts.Test, err = loadSplit("test", cfg.TestPath); err != nil {
		return err
	}

	model := NewEventTextEncoder(cfg.Encoder)
	lossFn := NewContrastiveLoss(cfg.Temperature)
	runner := NewRunner(model, lossFn, backend.Device)
	runner.SetShowProgress(!*noProgress)

	logrus.WithFields(logrus.Fields{
		"learning_rate": cfg.LearningRate,
		"schedule":      cfg.Schedule,
		"epochs":        cfg.Epochs,
		"warmup_ratio":  cfg.WarmupRatio,
		"batch_size":    cfg.BatchSize,
		"embed_dim":     cfg.Encoder.EmbedDim,
		"device":        device.String(),
	}).Info("starting run")

	bestVal, err := runner.Run(opts)
	if err != nil {
		return err
	}
	if bestVal != nil {
		logrus.WithField(RankingMetric, bestVal[RankingMetric]).Info("best validation result")
	}

	if err := SaveEncoder(model, *modelPath); err != nil {
		return err
	}
	logrus.WithField("path", *modelPath).Info("saved encoder checkpoint")

	return nil
}

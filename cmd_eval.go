package main

import (
	"flag"
	"fmt"

	"github.com/sirupsen/logrus"
)

// RunEvalCommand implements the evaluation CLI: load a saved encoder
// checkpoint, embed a dataset under both modalities, and report the cosine
// ranking metrics.
func RunEvalCommand(args []string) error {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)

	modelPath := fs.String("model", "encoder.bin", "Encoder checkpoint path")
	dataPath := fs.String("data", "", "Dataset to evaluate (JSON Lines)")
	batchSize := fs.Int("batch", 32, "Batch size")
	deviceName := fs.String("device", "cpu", "Compute device")
	deterministic := fs.Bool("deterministic", false, "Single-threaded tensor ops")
	noProgress := fs.Bool("no-progress", false, "Disable the progress bar")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dataPath == "" {
		return fmt.Errorf("eval: no dataset given (use -data)")
	}

	device, err := ParseDevice(*deviceName)
	if err != nil {
		return err
	}
	backend := NewBackendConfig(device, *deterministic)
	backend.Apply()

	model, err := LoadEncoder(*modelPath)
	if err != nil {
		return err
	}

	ds, err := LoadDataset(*dataPath)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"path":     *dataPath,
		"examples": ds.Len(),
	}).Info("loaded dataset")

	// The loss is unused in eval, but the runner requires one; temperature
	// is irrelevant here.
	runner := NewRunner(model, NewContrastiveLoss(0.07), backend.Device)
	runner.SetShowProgress(!*noProgress)

	metrics, err := runner.RunEpoch(NewLoader(ds, *batchSize), PhaseEval)
	if err != nil {
		return err
	}

	fields := logrus.Fields{}
	for name, value := range metrics {
		fields[name] = value
	}
	logrus.WithFields(fields).Info("evaluation results")

	return nil
}

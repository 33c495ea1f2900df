// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package trainer configures and drives the fine-tuning of a pretrained
// sequence-classification model as a reward model.
//
// A [Trainer] owns every training hyperparameter and orchestrates the run:
//
//	load tokenizer -> format labels -> build model -> build engine -> train
//
// Label formatting depends on the task and is supplied by a [Formatter]:
// [Regression] casts labels to float32, [Classification] expands integer class
// labels into one-hot vectors. Optimization itself is delegated to the
// [types.TrainingEngine] built by the configured [types.EngineFactory].
//
//	tr, err := trainer.NewClassification("distilroberta-base", loader, "out/",
//		trainer.WithNumLabels(3),
//		trainer.WithNumTrainEpochs(2),
//	)
//	if err != nil {
//		return err
//	}
//	if err := tr.Fit(ctx, folds); err != nil {
//		return err
//	}
//	return tr.Save(ctx, "")
package trainer

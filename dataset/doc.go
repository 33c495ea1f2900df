// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package dataset provides the columnar tables and fold mappings fed to the reward trainer.
//
// A [Table] is an immutable set of equally long named columns. Numeric columns
// are backed by gomlx tensors: a rank 1 tensor holds one value per example, a
// rank 2 tensor one vector per example (e.g. one-hot labels). Text columns are
// plain string columns that the training engine tokenizes.
//
// A [Folds] value maps fold names ("train", "validation", ...) to tables:
//
//	folds, err := dataset.LoadFolds("data/")
//	if err != nil {
//		log.Fatal(err)
//	}
//	train := folds[dataset.TrainFold]
//	labels, err := train.Column(dataset.LabelsColumn)
//
// Tables never change after construction. [Table.AddColumn], [Table.RemoveColumn]
// and [Table.CastColumn] return new tables that share untouched columns with
// the receiver.
package dataset

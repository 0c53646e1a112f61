// Package recs is the recommendation and ranking engine behind Bahoy's
// cultural event feed, plus the bias and metrics analyzers that audit it.
//
// Design notes:
//   - Pipeline-first: shaping runs as composable Nodes (recall → filter →
//     rerank), so business rules stay pluggable.
//   - Labels-first: every candidate carries explanation labels end to end;
//     the user-facing reason string is assembled from them.
//   - Fallback-first: strategy selection is an explicit decision table with
//     the popularity retriever as terminal fallback, so cold-start requests
//     degrade silently instead of erroring.
package recs

import "github.com/bahoy/recs/pipeline"

// Lightweight facade over the core pipeline abstractions.
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindRerank      = pipeline.KindRerank
	KindPostProcess = pipeline.KindPostProcess
)

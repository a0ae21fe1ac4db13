// Package pipeline contains the orchestrator that drives one upload through
// download, rendering, segmentation, extraction, splitting, gating, and
// persistence. It exclusively owns the session's mutable fields during a
// run; every persistence write is a single atomic update.
package pipeline

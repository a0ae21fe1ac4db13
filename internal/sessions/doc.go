// Package sessions persists one record per uploaded PDF, tracking the
// lifecycle of a parse attempt: status, confidence scores, routing decision,
// extracted metadata, and produced parts.
//
// The orchestrator exclusively owns a session's mutable fields while a job
// runs; every persistence write is a single atomic UPDATE so a failed attempt
// always leaves the last fully-written state behind.
package sessions

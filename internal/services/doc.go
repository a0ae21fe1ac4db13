// Package services defines the shared error taxonomy for pipeline components.
//
// Errors are tagged with sentinel markers so the workflow manager can decide
// whether a failed job attempt should be retried with backoff or failed
// outright. Reference and validation errors are terminal; everything else is
// assumed transient.
package services

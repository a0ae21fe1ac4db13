// Package storage abstracts the blob store holding uploaded PDFs and the
// split part files. Two backends exist: a local filesystem directory for
// development and tests, and Google Cloud Storage for deployments.
package storage

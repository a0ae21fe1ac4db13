// Package split turns cutting instructions into per-part PDF files. Page
// ranges are 1-based and inclusive at both ends, matching how musicians and
// the extraction model talk about pages.
package split

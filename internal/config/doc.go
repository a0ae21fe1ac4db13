// Package config loads and validates the TOML configuration for segno.
//
// Loading follows three steps: decode over defaults, normalize (path
// expansion, clamping), then validate. Validation failures name the offending
// key so operators can fix the file without reading source.
package config

package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration invariants after normalization.
func (c *Config) Validate() error {
	var problems []string

	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Paths.DataDir != "", "paths.data_dir must be set")
	check(c.Paths.StagingDir != "", "paths.staging_dir must be set")
	check(c.Paths.LogDir != "", "paths.log_dir must be set")

	switch c.Storage.Backend {
	case "local":
		check(c.Storage.LocalDir != "", "storage.local_dir must be set for the local backend")
	case "gcs":
		check(c.Storage.GCSBucket != "", "storage.gcs_bucket must be set for the gcs backend")
	default:
		problems = append(problems, fmt.Sprintf("storage.backend must be \"local\" or \"gcs\", got %q", c.Storage.Backend))
	}

	p := c.Pipeline
	check(p.SkipParseThreshold >= 0 && p.SkipParseThreshold <= 100,
		"pipeline.skip_parse_threshold must be within 0-100, got %d", p.SkipParseThreshold)
	check(p.AutoApproveThreshold >= 0 && p.AutoApproveThreshold <= 100,
		"pipeline.auto_approve_threshold must be within 0-100, got %d", p.AutoApproveThreshold)
	check(p.AutonomousApprovalThreshold >= 0 && p.AutonomousApprovalThreshold <= 100,
		"pipeline.autonomous_approval_threshold must be within 0-100, got %d", p.AutonomousApprovalThreshold)
	check(p.SkipParseThreshold < p.AutoApproveThreshold,
		"pipeline.skip_parse_threshold (%d) must be below pipeline.auto_approve_threshold (%d)",
		p.SkipParseThreshold, p.AutoApproveThreshold)
	check(p.AutoApproveThreshold <= p.AutonomousApprovalThreshold,
		"pipeline.auto_approve_threshold (%d) must not exceed pipeline.autonomous_approval_threshold (%d)",
		p.AutoApproveThreshold, p.AutonomousApprovalThreshold)
	check(p.SegmenterTrustThreshold >= 0 && p.SegmenterTrustThreshold <= 100,
		"pipeline.segmenter_trust_threshold must be within 0-100, got %d", p.SegmenterTrustThreshold)
	check(p.MaxPagesPerPart > 0, "pipeline.max_pages_per_part must be positive, got %d", p.MaxPagesPerPart)
	check(p.MaxPages > 0, "pipeline.max_pages must be positive, got %d", p.MaxPages)
	check(p.MaxFileSizeMB > 0, "pipeline.max_file_size_mb must be positive, got %d", p.MaxFileSizeMB)

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format))
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

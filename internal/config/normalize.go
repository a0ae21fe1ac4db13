package config

import "strings"

func (c *Config) normalize() error {
	for _, field := range []*string{
		&c.Paths.DataDir,
		&c.Paths.StagingDir,
		&c.Paths.LogDir,
		&c.Storage.LocalDir,
	} {
		expanded, err := expandPath(strings.TrimSpace(*field))
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.GCSBucket = strings.TrimSpace(c.Storage.GCSBucket)
	c.Storage.KeyPrefix = strings.Trim(strings.TrimSpace(c.Storage.KeyPrefix), "/")

	c.Vision.APIKey = strings.TrimSpace(c.Vision.APIKey)
	c.Vision.BaseURL = strings.TrimSpace(c.Vision.BaseURL)
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	c.Vision.VerificationModel = strings.TrimSpace(c.Vision.VerificationModel)

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = 2
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = 10
	}
	if c.Workflow.JobMaxAttempts <= 0 {
		c.Workflow.JobMaxAttempts = 1
	}
	if c.Workflow.RetryBaseSeconds <= 0 {
		c.Workflow.RetryBaseSeconds = 5
	}
	if c.Workflow.RetryMaxSeconds < c.Workflow.RetryBaseSeconds {
		c.Workflow.RetryMaxSeconds = c.Workflow.RetryBaseSeconds
	}
	if c.Workflow.StuckJobMinutes <= 0 {
		c.Workflow.StuckJobMinutes = 30
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		c.Pipeline.MaxConcurrent = 1
	}
	if c.Render.DPI <= 0 {
		c.Render.DPI = 150
	}
	if c.Render.HeaderCropFraction <= 0 || c.Render.HeaderCropFraction > 1 {
		c.Render.HeaderCropFraction = 0.2
	}
	return nil
}

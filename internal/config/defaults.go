package config

// Default returns a configuration populated with conservative defaults.
// Thresholds mirror the administrator guidance: skip < auto-approve <=
// autonomous approval, with a non-empty second-pass verification band.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    "~/.local/share/segno",
			StagingDir: "~/.local/share/segno/staging",
			LogDir:     "~/.local/share/segno/logs",
		},
		Storage: Storage{
			Backend:   "local",
			LocalDir:  "~/.local/share/segno/objects",
			KeyPrefix: "uploads",
		},
		Vision: Vision{
			BaseURL:        "https://openrouter.ai/api/v1/chat/completions",
			Model:          "google/gemini-2.0-flash-001",
			TimeoutSeconds: 120,
		},
		Pipeline: Pipeline{
			SkipParseThreshold:          55,
			AutoApproveThreshold:        80,
			AutonomousApprovalThreshold: 95,
			SegmenterTrustThreshold:     85,
			MaxPagesPerPart:             20,
			MaxPages:                    250,
			MaxFileSizeMB:               100,
			MaxConcurrent:               2,
			AutonomousCommit:            false,
		},
		Render: Render{
			DPI:                150,
			HeaderCropFraction: 0.2,
		},
		Workflow: Workflow{
			QueuePollInterval:  2,
			ErrorRetryInterval: 10,
			JobMaxAttempts:     4,
			RetryBaseSeconds:   5,
			RetryMaxSeconds:    120,
			StuckJobMinutes:    30,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

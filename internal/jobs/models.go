package jobs

import (
	"strings"
	"time"
)

// Type identifies the kind of work a job carries.
type Type string

const (
	TypeProcess    Type = "process"
	TypeSecondPass Type = "second_pass"
	TypeAutoCommit Type = "auto_commit"
)

// Default priorities. Higher runs first: a second pass represents in-flight
// work a human is waiting on, so it must not be starved by fresh uploads.
const (
	PriorityProcess    = 10
	PrioritySecondPass = 20
	PriorityAutoCommit = 30
)

// Status is the lifecycle of a queued job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job is one unit of queued work. The payload is the session id it operates on.
type Job struct {
	ID           int64
	Type         Type
	SessionID    string
	Priority     int
	Status       Status
	Attempts     int
	MaxAttempts  int
	NextRunAt    time.Time
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	StartedAt    *time.Time
}

// PriorityFor returns the default priority for a job type.
func PriorityFor(jobType Type) int {
	switch jobType {
	case TypeSecondPass:
		return PrioritySecondPass
	case TypeAutoCommit:
		return PriorityAutoCommit
	default:
		return PriorityProcess
	}
}

// ParseType converts a string into a known job Type.
func ParseType(value string) (Type, bool) {
	normalized := Type(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case TypeProcess, TypeSecondPass, TypeAutoCommit:
		return normalized, true
	default:
		return "", false
	}
}

// Backoff computes the delay before the next attempt: base doubles per
// completed attempt, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > max/2 {
			return max
		}
		delay *= 2
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// Package workflow runs the daemon's worker pool: workers claim jobs from
// the durable queue, dispatch them to registered handlers, and either
// complete, reschedule with backoff, or terminally fail each attempt.
package workflow

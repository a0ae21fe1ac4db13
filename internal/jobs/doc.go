// Package jobs provides the durable, priority-ordered work queue feeding the
// pipeline workers.
//
// Jobs are claimed with a guarded UPDATE so concurrent workers never run the
// same job twice. Failed attempts are rescheduled with exponential backoff
// until the attempt limit; terminal failures keep their error message for
// operators.
package jobs

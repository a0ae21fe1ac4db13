package logging

// Standardized attribute keys shared across the pipeline.
const (
	FieldComponent = "component"
	FieldSessionID = "session_id"
	FieldJobID     = "job_id"
	FieldJobType   = "job_type"
	FieldRequestID = "request_id"
	FieldStage     = "stage"
	FieldEventType = "event_type"
	FieldErrorHint = "error_hint"
	FieldAlert     = "alert"
)

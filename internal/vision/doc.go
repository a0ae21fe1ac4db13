// Package vision wraps the hosted vision-model endpoint used to read sheet
// music pages. It speaks an OpenRouter-style chat completions API, sends
// page images as data URLs, demands JSON-only responses, and retries
// transient failures with backoff.
package vision

// Package issues models validation issues, the per-field error record a form
// exposes, and the error kinds a submission can fail with.
//
// Three sources feed the same record: client-side schema validation
// (ValidationError), validation errors thrown by the remote command with the
// same shape, and HTTP errors whose body carries an issue list (HTTPError).
// Everything else is an unknown error and is left for the caller to handle.
package issues

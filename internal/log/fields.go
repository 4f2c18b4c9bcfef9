// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldFileID    = "file_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldAttempt   = "attempt"
	FieldBinary    = "binary"
	FieldExitCode  = "exit_code"
	FieldStderr    = "stderr"

	// Media fields
	FieldKind     = "content_kind"
	FieldVariants = "variants"
	FieldFormatID = "format_id"

	// Path / URL fields
	FieldURL      = "url"
	FieldPath     = "path"
	FieldFilename = "filename"
	FieldReferrer = "referrer"

	// HTTP fields
	FieldMethod   = "method"
	FieldRoute    = "route"
	FieldStatus   = "status"
	FieldBytes    = "bytes"
	FieldDuration = "duration_ms"
)

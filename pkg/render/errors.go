package render

import "errors"

// Sentinel errors callers are expected to branch on with errors.Is.
var (
	// ErrMissingKey is returned by Render when the template references a
	// placeholder the values map does not provide.
	ErrMissingKey = errors.New("template key not found")

	// ErrNoCSSPath is returned by CSS when no stylesheet is configured.
	ErrNoCSSPath = errors.New("no css path configured")

	// ErrUnsupportedOutputType is returned for output types outside the
	// supported set.
	ErrUnsupportedOutputType = errors.New("unsupported output type")
)

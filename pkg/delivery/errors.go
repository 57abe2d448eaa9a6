package delivery

import "errors"

// Sentinel errors for the failure classes callers are expected to branch on.
// They are matched with errors.Is; the wrapping error carries the operation
// context.
var (
	// ErrNotConnected is returned by transfer operations invoked before
	// Connect, or after Close.
	ErrNotConnected = errors.New("connection not established")

	// ErrAuthentication is returned when the remote end rejects the
	// supplied credentials, as opposed to transport failures.
	ErrAuthentication = errors.New("authentication failed")

	// ErrInvalidPrivateKey is returned when a private key file cannot be
	// read or parsed. It is raised before any network activity.
	ErrInvalidPrivateKey = errors.New("invalid private key")

	// ErrRemoteNotFound is returned by DownloadFile when the remote path
	// does not exist.
	ErrRemoteNotFound = errors.New("remote file not found")

	// ErrUnsupportedAlgorithm is returned for checksum algorithms outside
	// the supported set.
	ErrUnsupportedAlgorithm = errors.New("unsupported checksum algorithm")
)

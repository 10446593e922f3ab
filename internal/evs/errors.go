package evs

import "errors"

var (
	// ErrPermissionDenied is returned when the caller fails the entry
	// permission check. No state is created.
	ErrPermissionDenied = errors.New("caller is not authorized")

	// ErrCameraNotFound is returned for camera ids the driver does not
	// report.
	ErrCameraNotFound = errors.New("camera not found")

	// ErrBufferNotAvailable is returned when the device buffer pool
	// cannot grow to cover a new client or an increased quota.
	ErrBufferNotAvailable = errors.New("frame buffers not available")

	// ErrStreamAlreadyRunning is returned by StartVideoStream on a
	// session whose stream is not stopped.
	ErrStreamAlreadyRunning = errors.New("stream already running")

	// ErrStreamConfigMismatch is returned when a requested camera is
	// already active under a different stream configuration.
	ErrStreamConfigMismatch = errors.New("camera active with different stream configuration")

	// ErrOwnershipLost is returned by SetMaster when another client
	// already holds the master role.
	ErrOwnershipLost = errors.New("camera already has a master client")

	// ErrNotMaster is returned when a non-master client tries to change
	// a camera parameter.
	ErrNotMaster = errors.New("client is not the master")

	// ErrInvalidArg is returned for protocol misuse that does not have a
	// more specific code.
	ErrInvalidArg = errors.New("invalid argument")
)

package offload

import "errors"

var (
	// ErrMailboxClosed is returned when posting to a closed mailbox.
	ErrMailboxClosed = errors.New("mailbox closed")

	// ErrBadFrame is returned for messages that are not snapshot frames.
	ErrBadFrame = errors.New("malformed snapshot frame")

	// ErrChecksum is returned when a frame's payload does not match its checksum.
	ErrChecksum = errors.New("snapshot frame checksum mismatch")

	// ErrAlreadyRunning is returned by Start on a running publisher or subscriber.
	ErrAlreadyRunning = errors.New("already running")
)

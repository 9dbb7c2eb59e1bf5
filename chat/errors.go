package chat

import "errors"

// Session errors. All of them are recoverable: the session stays usable
// after reporting any of these to the caller.
var (
	// ErrUnauthenticated is returned when an operation requiring a current
	// user is invoked with an empty identity
	ErrUnauthenticated = errors.New("chat: unauthenticated")

	// ErrNoActiveConversation is returned when a send is attempted while no
	// conversation is open
	ErrNoActiveConversation = errors.New("chat: no active conversation")

	// ErrBackendUnavailable wraps partner/case/history query failures
	ErrBackendUnavailable = errors.New("chat: backend unavailable")

	// ErrSendFailed wraps a message create failure after the optimistic echo
	// has been rolled back
	ErrSendFailed = errors.New("chat: send failed")
)

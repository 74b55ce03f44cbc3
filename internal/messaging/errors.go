package messaging

import (
	"errors"
	"fmt"

	"messaging-service/internal/docstore"
)

var (
	// ErrInvalidParticipant rejects a send with a missing sender or receiver.
	ErrInvalidParticipant = errors.New("sender and receiver are required")
	// ErrSelfMessage rejects a send where sender and receiver are the same user.
	ErrSelfMessage = errors.New("cannot send a message to yourself")
	// ErrStoreUnavailable signals the backend rejected the write as not found.
	ErrStoreUnavailable = errors.New("message store unavailable")
	// ErrUnauthenticated signals the backend rejected the caller's credentials.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidRequest signals malformed input reached the backend.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrSendFailed wraps any other failure of the send pipeline.
	ErrSendFailed = errors.New("send failed")
)

// classifySendErr translates a backend failure into the pipeline's typed errors.
func classifySendErr(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	case errors.Is(err, docstore.ErrUnauthorized):
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	case errors.Is(err, docstore.ErrInvalidData):
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	default:
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
}

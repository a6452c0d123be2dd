package chat

import (
	"fmt"
)

// ValidationError reports a bad or missing attribute at save time. It is
// recoverable; callers surface it so the input can be corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// InvariantViolation is a programming-error precondition failure, such as
// creating a multiplayer channel for a room that was never persisted. It is
// not user-recoverable.
type InvariantViolation struct {
	Reason string
}

func (e *InvariantViolation) Error() string {
	return "invariant violation: " + e.Reason
}

// EmptyMessageError rejects a message whose content is empty after
// normalization.
type EmptyMessageError struct{}

func (*EmptyMessageError) Error() string {
	return "message content cannot be empty"
}

// MessageTooLongError rejects a message exceeding the channel type's length
// ceiling, measured in Unicode code points.
type MessageTooLongError struct {
	Limit int
}

func (e *MessageTooLongError) Error() string {
	return fmt.Sprintf("message exceeds the limit of %d characters", e.Limit)
}

// RateLimitExceededError rejects a message because the sender already sent
// the allowed number of messages for this channel class within the window.
type RateLimitExceededError struct {
	Class string
}

func (e *RateLimitExceededError) Error() string {
	return fmt.Sprintf("message rate limit exceeded for %s channels", e.Class)
}

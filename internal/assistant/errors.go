package assistant

import "errors"

var (
	// ErrStepLimit is returned when the model keeps calling tools past the
	// configured number of steps. The partial reply is returned with it.
	ErrStepLimit = errors.New("assistant step limit reached")

	// ErrUsageLimit is returned, before any model call, once the caller has
	// used up the plan's monthly tokens.
	ErrUsageLimit = errors.New("monthly AI usage limit reached")

	// ErrEmptyConversation is returned for a turn without messages.
	ErrEmptyConversation = errors.New("conversation has no messages")

	// ErrNoChoices is returned when the model answers with nothing.
	ErrNoChoices = errors.New("no response choices from model")

	// ErrInvalidRole is returned for a transcript message that is neither a
	// user nor an assistant message.
	ErrInvalidRole = errors.New("message role must be user or assistant")
)

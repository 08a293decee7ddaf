package bridge

import "errors"

// Domain errors for the bridge package.
var (
	// ErrInvalidPayload is returned when a bus message is not a JSON object.
	ErrInvalidPayload = errors.New("bridge: invalid payload")

	// ErrInvalidField is returned when a payload field is not an integer in 0-65535.
	ErrInvalidField = errors.New("bridge: invalid field")

	// ErrInvalidTopic is returned when a topic is not an ibeacon/<uuid> topic.
	ErrInvalidTopic = errors.New("bridge: invalid topic")
)

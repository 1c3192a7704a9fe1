package anonymizer

import "errors"

var (
	// ErrUnavailable covers transport failures, timeouts, rate limiter
	// refusals and non-2xx responses
	ErrUnavailable = errors.New("anonymizer unavailable")
	// ErrProtocol covers responses that cannot be mapped onto a result
	ErrProtocol = errors.New("anonymizer protocol error")
)

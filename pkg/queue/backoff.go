package queue

import "time"

const (
	// RetryBaseDelay is the delay before the first retry.
	RetryBaseDelay = 500 * time.Millisecond

	// RetryMaxDelay caps backoff growth for high retry counts.
	RetryMaxDelay = 5 * time.Minute
)

// RetryDelay returns the delay before the given retry attempt (1-based).
// Delays grow exponentially from RetryBaseDelay and are capped at
// RetryMaxDelay: 500ms, 1s, 2s, 4s, ...
func RetryDelay(retry int8) time.Duration {
	if retry < 1 {
		retry = 1
	}

	delay := RetryBaseDelay
	for i := int8(1); i < retry; i++ {
		delay *= 2
		if delay >= RetryMaxDelay {
			return RetryMaxDelay
		}
	}
	return delay
}

package events

import "time"

// SubscriptionStart is emitted when a subscribe message has been sent.
type SubscriptionStart struct {
	URL string
	ID  string
}

// SubscriptionFinish is emitted when a subscription ends, by completion,
// error or cancellation.
type SubscriptionFinish struct {
	URL      string
	ID       string
	Messages int
	Err      error
	Duration time.Duration
}

package events

import "time"

// OperationStart is emitted before a generated operation is built and sent.
type OperationStart struct {
	Operation string // query, mutation or subscription
	Field     string
}

// OperationFinish is emitted once a query or mutation has a response, or
// once a subscription stream is open.
type OperationFinish struct {
	Operation string
	Field     string
	Document  string
	Errors    []error
	Duration  time.Duration
}

package events

import (
	"net/http"
	"time"
)

// RequestStart is emitted before the HTTP transport sends a request.
type RequestStart struct {
	Request *http.Request
}

// RequestFinish is emitted after the response body has been read. Status is
// zero when no response arrived.
type RequestFinish struct {
	Request  *http.Request
	Status   int
	Err      error
	Duration time.Duration
}

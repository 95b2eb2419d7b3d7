// Package transport sends generated GraphQL documents to a server: queries
// and mutations over HTTP POST, subscriptions over graphql-transport-ws.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/vektah/gqlparser/v2/gqlerror"
)

// Request is the JSON body of a GraphQL request.
type Request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// Response is a GraphQL response. Data is left undecoded.
type Response struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Errors     gqlerror.List   `json:"errors,omitempty"`
	Extensions map[string]any  `json:"extensions,omitempty"`
}

// Err returns the response's GraphQL errors, or nil.
func (r *Response) Err() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors
}

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       []byte // truncated to maxErrorBody
}

const maxErrorBody = 4 << 10

func (e *StatusError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// Package llm holds the provider-neutral pieces of the customer-service
// assistant: message shapes, prompts and the JSON transport.
package llm

import "context"

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ReplyRequest is one customer question plus the business it is asked of.
type ReplyRequest struct {
	Message      string
	Organization string
}

// Responder answers customer questions. Implementations return
// common.ErrUnavailable wrapped when the provider cannot be reached.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

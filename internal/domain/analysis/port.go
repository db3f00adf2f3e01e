package analysis

import "context"

// Requester turns a Request into a normalized Result with one provider call.
// Transport and provider failures are returned, never absorbed.
type Requester interface {
	Analyze(ctx context.Context, req Request) (Result, error)
}

// Package answer defines the generative answer port: a service that
// turns a question plus retrieved context into a grounded answer.
package answer

import "context"

// Answerer produces an answer to a question given retrieved context
// passages. The output is opaque text; callers make a single bounded
// attempt and do not retry on its behalf.
type Answerer interface {
	Answer(ctx context.Context, question string, contexts []string) (string, error)
}

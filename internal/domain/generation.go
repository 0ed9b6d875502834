package domain

import "context"

// Prompt is one shaped generation request: a system role and the user turn.
type Prompt struct {
	System string
	User   string
}

// Generator completes a prompt with the given model ("" = adapter default).
type Generator interface {
	Complete(ctx context.Context, p Prompt, model string) (string, error)
}

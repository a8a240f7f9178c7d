package ai

import "context"

// Client is a generative model. It receives one prompt and returns free-form text.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

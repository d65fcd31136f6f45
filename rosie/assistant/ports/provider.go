package assistantports

import (
	"context"
)

// PromptMessage is a single role-tagged message sent to the model.
type PromptMessage struct {
	Role    Role
	Content string
}

// Options controls a single completion request.
type Options struct {
	// JSONMode asks the provider for a JSON object reply (structured calls only).
	JSONMode bool
}

// Usage captures token accounting for telemetry.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the provider's non-streaming response.
type Completion struct {
	Text  string
	Usage *Usage // optional usage information
}

// Provider is the abstraction for text generation backends.
type Provider interface {
	Complete(ctx context.Context, messages []PromptMessage, opts Options) (Completion, error)
}

// ImageProvider generates and analyzes images.
type ImageProvider interface {
	// GenerateImage returns PNG bytes. References, when present, are source images to edit from.
	GenerateImage(ctx context.Context, prompt string, references [][]byte) ([]byte, error)
	AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error)
}

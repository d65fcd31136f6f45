package adapters

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"

	ports "github.com/ZanzyTHEbar/rosie-cli/rosie/assistant/ports"
	openai "github.com/sashabaranov/go-openai"
)

// dall-e-3 has no edit endpoint; edits with reference images fall back to this model.
const editImageModel = "dall-e-2"

// OpenAIConfig selects models and the endpoint for the OpenAI adapter.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	VisionModel string
	ImageModel  string
	ImageSize   string
	HTTPClient  *http.Client
}

// OpenAIProvider implements Provider and ImageProvider on the OpenAI API.
type OpenAIProvider struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIProvider creates a client for the given key.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientCfg),
		cfg:    cfg,
	}
}

// Complete runs one chat completion over the given transcript.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []ports.PromptMessage, opts ports.Options) (ports.Completion, error) {
	req := openai.ChatCompletionRequest{
		Model:    p.cfg.Model,
		Messages: toOpenAIMessages(messages),
	}
	if opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return ports.Completion{}, apiError(err)
	}
	if len(resp.Choices) == 0 {
		return ports.Completion{Usage: toUsage(resp.Usage)}, nil
	}

	return ports.Completion{
		Text:  resp.Choices[0].Message.Content,
		Usage: toUsage(resp.Usage),
	}, nil
}

// GenerateImage creates a PNG from the prompt, editing from the first reference image when given.
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, references [][]byte) ([]byte, error) {
	var (
		data []openai.ImageResponseDataInner
		err  error
	)
	if len(references) > 0 {
		data, err = p.editImage(ctx, prompt, references[0])
	} else {
		var resp openai.ImageResponse
		resp, err = p.client.CreateImage(ctx, openai.ImageRequest{
			Prompt:         prompt,
			Model:          p.cfg.ImageModel,
			N:              1,
			Size:           p.cfg.ImageSize,
			ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		})
		data = resp.Data
	}
	if err != nil {
		return nil, apiError(err)
	}
	if len(data) == 0 || data[0].B64JSON == "" {
		return nil, errors.New("image response contained no data")
	}

	img, err := base64.StdEncoding.DecodeString(data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

func (p *OpenAIProvider) editImage(ctx context.Context, prompt string, reference []byte) ([]openai.ImageResponseDataInner, error) {
	// The SDK uploads from a file handle.
	tmp, err := os.CreateTemp("", "rosie-ref-*.png")
	if err != nil {
		return nil, fmt.Errorf("failed to stage reference image: %w", err)
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(reference); err != nil {
		return nil, fmt.Errorf("failed to stage reference image: %w", err)
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return nil, fmt.Errorf("failed to stage reference image: %w", err)
	}

	model := p.cfg.ImageModel
	if model == openai.CreateImageModelDallE3 {
		model = editImageModel
	}

	resp, err := p.client.CreateEditImage(ctx, openai.ImageEditRequest{
		Image:          tmp,
		Prompt:         prompt,
		Model:          model,
		N:              1,
		Size:           p.cfg.ImageSize,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// AnalyzeImage asks the vision model about one PNG image.
func (p *OpenAIProvider) AnalyzeImage(ctx context.Context, image []byte, prompt string) (string, error) {
	url := "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.cfg.VisionModel,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: url}},
			},
		}},
	})
	if err != nil {
		return "", apiError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func toOpenAIMessages(messages []ports.PromptMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case ports.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case ports.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		out = append(out, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return out
}

func toUsage(u openai.Usage) *ports.Usage {
	if u.TotalTokens == 0 {
		return nil
	}
	return &ports.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

// ProviderError carries the API's own message so callers can show it verbatim.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

func apiError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &ProviderError{Message: apiErr.Message, Err: err}
	}
	return err
}

var (
	_ ports.Provider      = (*OpenAIProvider)(nil)
	_ ports.ImageProvider = (*OpenAIProvider)(nil)
)

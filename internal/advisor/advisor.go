package advisor

import (
	"context"
	"fmt"

	"macro-compass/internal/domain"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// LLMClient abstracts the OpenAI chat completions API for testability.
type LLMClient interface {
	CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// AdvisorService turns computed signals into short prose narratives.
// Without an LLM client it falls back to a deterministic template.
type AdvisorService struct {
	tracer trace.Tracer
	llm    LLMClient
	model  string
}

func NewAdvisorService(tracer trace.Tracer, llm LLMClient, model string) *AdvisorService {
	return &AdvisorService{tracer: tracer, llm: llm, model: model}
}

// Explain produces a narrative for a signal. Coherency is optional.
func (s *AdvisorService) Explain(ctx context.Context, signal domain.Signal, coherency *domain.CoherencyResult) (string, error) {
	ctx, span := s.tracer.Start(ctx, "advisor.explain")
	defer span.End()
	span.SetAttributes(
		attribute.String("asset", string(signal.Asset)),
		attribute.String("strength", string(signal.Strength)),
	)

	if s.llm == nil {
		return Narrative(signal, coherency), nil
	}

	completion, err := s.llm.CreateChatCompletion(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(BuildSystemPrompt()),
			openai.UserMessage(FormatSignalContext(signal, coherency)),
		},
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("advisor unavailable: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	reply := completion.Choices[0].Message.Content
	span.SetAttributes(attribute.Int("llm.reply_length", len(reply)))
	return reply, nil
}

// openaiClient wraps the official SDK's chat completions service.
type openaiClient struct {
	client openai.Client
}

func NewOpenAIClient(apiKey string) LLMClient {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openaiClient{client: client}
}

func (c *openaiClient) CreateChatCompletion(
	ctx context.Context,
	params openai.ChatCompletionNewParams,
) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

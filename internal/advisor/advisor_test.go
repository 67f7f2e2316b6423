package advisor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"macro-compass/internal/domain"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/trace/noop"
)

var testTracer = noop.NewTracerProvider().Tracer("test")

func sampleSignal() domain.Signal {
	z := -2.1
	vote := 0.5
	return domain.Signal{
		Asset:          domain.AssetBTC,
		ValuationScore: &z,
		TrendScore:     &vote,
		ValuationTier:  domain.TierStrongestBuy,
		TrendTier:      domain.TrendUp,
		Strength:       domain.StrengthStrongestBuy,
		AllocationPct:  1.00,
	}
}

func TestExplainHappyPath(t *testing.T) {
	t.Parallel()

	llm := &stubLLMClient{
		response: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "BTC is deeply undervalued in an uptrend."}},
			},
		},
	}
	svc := NewAdvisorService(testTracer, llm, "gpt-4o-mini")

	reply, err := svc.Explain(context.Background(), sampleSignal(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "BTC is deeply undervalued in an uptrend." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if llm.calls != 1 {
		t.Fatalf("expected one LLM call, got %d", llm.calls)
	}
	if llm.lastMessageCount != 2 {
		t.Fatalf("expected system+user messages, got %d", llm.lastMessageCount)
	}
}

func TestExplainLLMError(t *testing.T) {
	t.Parallel()

	svc := NewAdvisorService(testTracer, &stubLLMClient{err: errors.New("api down")}, "gpt-4o-mini")
	if _, err := svc.Explain(context.Background(), sampleSignal(), nil); err == nil {
		t.Fatal("expected error from LLM failure")
	}
}

func TestExplainWithoutLLMFallsBack(t *testing.T) {
	t.Parallel()

	svc := NewAdvisorService(testTracer, nil, "")
	reply, err := svc.Explain(context.Background(), sampleSignal(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "BTC") || !strings.Contains(reply, "100%") {
		t.Fatalf("fallback narrative missing signal facts: %q", reply)
	}
}

func TestNarrativeMentionsOutliers(t *testing.T) {
	t.Parallel()

	coherency := &domain.CoherencyResult{
		AgreementRatio: 0.4,
		Outliers:       []string{"puell-like"},
	}
	text := Narrative(sampleSignal(), coherency)
	if !strings.Contains(text, "puell-like") {
		t.Fatalf("expected outlier named, got %q", text)
	}
}

type stubLLMClient struct {
	response *openai.ChatCompletion
	err      error

	calls            int
	lastMessageCount int
}

func (s *stubLLMClient) CreateChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	s.calls++
	s.lastMessageCount = len(params.Messages)
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ragchatbot/internal/rag/prompts"
	"ragchatbot/internal/rag/schema"
)

func passage(doc string, page int, text string) *schema.RetrievalResult {
	return &schema.RetrievalResult{
		Chunk: &schema.Chunk{
			ID:         doc + ":p1:c0",
			DocumentID: doc,
			Page:       page,
			Text:       text,
		},
		Score: 0.9,
	}
}

func TestAnswer_RefusalWithoutModelCall(t *testing.T) {
	llm := &fakeLLM{answer: "should never be used"}
	s := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())

	msg, err := s.Answer(context.Background(), "What is the return window?", nil, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if msg.Content != "I can only answer from the provided PDF documents." {
		t.Errorf("refusal text = %q", msg.Content)
	}
	if len(msg.Sources) != 0 {
		t.Errorf("refusal carried %d sources, want 0", len(msg.Sources))
	}
	if llm.calls != 0 {
		t.Errorf("language model was called %d times on the refusal path", llm.calls)
	}
}

func TestAnswer_GenerationErrorPropagates(t *testing.T) {
	llm := &fakeLLM{err: errors.New("rate limited")}
	s := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())

	results := []*schema.RetrievalResult{passage("policy.pdf", 1, "Return policy: 30 days.")}
	msg, err := s.Answer(context.Background(), "What is the return window?", results, nil, "")
	if err == nil {
		t.Fatal("expected error from failing model")
	}
	var genErr *schema.GenerationError
	if !errors.As(err, &genErr) {
		t.Errorf("expected GenerationError, got %v", err)
	}
	if msg != nil {
		t.Error("failure must not produce an answer")
	}
}

func TestAnswer_PromptContents(t *testing.T) {
	llm := &fakeLLM{answer: "The return window is 30 days."}
	s := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())

	results := []*schema.RetrievalResult{passage("policy.pdf", 4, "Return policy: 30 days.")}
	history := []schema.Turn{{Role: "user", Content: "Hi"}, {Role: "assistant", Content: "Hello!"}}
	template := prompts.Get("persona_empathetic")

	if _, err := s.Answer(context.Background(), "What is the return window?", results, history, template); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !strings.Contains(llm.system, "call-center support chatbot") {
		t.Error("system prompt missing grounding instruction")
	}
	if !strings.Contains(llm.system, "empathy") {
		t.Error("system prompt missing the persona template")
	}
	if !strings.Contains(llm.user, "[Source 1] policy.pdf (page 4)") {
		t.Errorf("user message missing source tag:\n%s", llm.user)
	}
	if !strings.Contains(llm.user, "Return policy: 30 days.") {
		t.Error("user message missing passage text")
	}
	if !strings.Contains(llm.user, "What is the return window?") {
		t.Error("user message missing the question")
	}
	if len(llm.history) != 2 {
		t.Errorf("history length = %d, want 2", len(llm.history))
	}
}

func TestAnswer_HistoryBounded(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	s := NewAnswerSynthesizer(llm, 4, SourcesContext, testLogger())

	history := make([]schema.Turn, 10)
	for i := range history {
		history[i] = schema.Turn{Role: "user", Content: strings.Repeat("x", i+1)}
	}
	results := []*schema.RetrievalResult{passage("a.pdf", 1, "text")}

	if _, err := s.Answer(context.Background(), "q", results, history, ""); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(llm.history) != 4 {
		t.Fatalf("history passed to model = %d turns, want 4", len(llm.history))
	}
	// The most recent turns survive the truncation.
	if llm.history[3].Content != strings.Repeat("x", 10) {
		t.Error("truncation dropped the most recent turn")
	}
}

func TestAnswer_SourcesContextMode(t *testing.T) {
	llm := &fakeLLM{answer: "Per [Source 1], the window is 30 days."}
	s := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())

	results := []*schema.RetrievalResult{
		passage("policy.pdf", 1, "Return policy: 30 days."),
		passage("shipping.pdf", 2, "Shipping takes five days."),
		passage("policy.pdf", 1, "Another passage from the same page."),
	}
	msg, err := s.Answer(context.Background(), "q", results, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	want := []schema.SourceRef{
		{Document: "policy.pdf", Page: 1},
		{Document: "shipping.pdf", Page: 2},
	}
	if len(msg.Sources) != len(want) {
		t.Fatalf("sources = %v, want %v", msg.Sources, want)
	}
	for i := range want {
		if msg.Sources[i] != want[i] {
			t.Errorf("source %d = %v, want %v", i, msg.Sources[i], want[i])
		}
	}
}

func TestAnswer_SourcesCitedMode(t *testing.T) {
	llm := &fakeLLM{answer: "Per [Source 2], shipping takes five days."}
	s := NewAnswerSynthesizer(llm, 10, SourcesCited, testLogger())

	results := []*schema.RetrievalResult{
		passage("policy.pdf", 1, "Return policy: 30 days."),
		passage("shipping.pdf", 2, "Shipping takes five days."),
	}
	msg, err := s.Answer(context.Background(), "q", results, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(msg.Sources) != 1 || msg.Sources[0].Document != "shipping.pdf" {
		t.Errorf("cited mode sources = %v, want only shipping.pdf", msg.Sources)
	}
}

func TestAnswer_SourcesCitedModeFallsBackToAll(t *testing.T) {
	llm := &fakeLLM{answer: "Shipping takes five days."} // no explicit citation
	s := NewAnswerSynthesizer(llm, 10, SourcesCited, testLogger())

	results := []*schema.RetrievalResult{
		passage("policy.pdf", 1, "Return policy: 30 days."),
		passage("shipping.pdf", 2, "Shipping takes five days."),
	}
	msg, err := s.Answer(context.Background(), "q", results, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(msg.Sources) != 2 {
		t.Errorf("expected fallback to all passages, got %v", msg.Sources)
	}
}

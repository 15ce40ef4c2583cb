package pipeline

import (
	"context"
	"strings"
	"testing"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/splitters"
	"ragchatbot/internal/rag/storages/vectorstore"
)

// TestEndToEnd_SinglePagePDF walks the full path: ingest one one-page
// document, retrieve for a related question, synthesize a grounded answer.
func TestEndToEnd_SinglePagePDF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "policy.pdf", "pdf-bytes")

	extractor := &fakeExtractor{pages: map[string][]interfaces.Page{
		"policy.pdf": {{Number: 1, Text: "Return policy: 30 days."}},
	}}
	splitter, err := splitters.NewCharSplitter(500, 50)
	if err != nil {
		t.Fatalf("NewCharSplitter() error = %v", err)
	}
	index, err := vectorstore.NewMemoryIndex("", testLogger())
	if err != nil {
		t.Fatalf("NewMemoryIndex() error = %v", err)
	}
	embedder := &fakeEmbedder{}
	ctx := context.Background()

	ingest := NewIndexingPipeline(extractor, splitter, embedder, index, 8, testLogger())
	report, err := ingest.Ingest(ctx, dir)
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if report.DocumentsProcessed != 1 || report.Failed() {
		t.Fatalf("unexpected report: %+v", report)
	}

	retriever := NewRetriever(embedder, index, 4, 0.1, testLogger())
	results, err := retriever.Retrieve(ctx, "What is the return window in days?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one retrieved passage")
	}
	if results[0].Chunk.DocumentID != "policy.pdf" || results[0].Chunk.Page != 1 {
		t.Errorf("top passage cites %s page %d, want policy.pdf page 1",
			results[0].Chunk.DocumentID, results[0].Chunk.Page)
	}

	llm := &fakeLLM{answer: "Our return window is 30 days from delivery."}
	synth := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())
	msg, err := synth.Answer(ctx, "What is the return window in days?", results, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !strings.Contains(msg.Content, "30 days") {
		t.Errorf("answer does not reference the policy: %q", msg.Content)
	}
	found := false
	for _, src := range msg.Sources {
		if src.Document == "policy.pdf" && src.Page == 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("sources %v do not include policy.pdf page 1", msg.Sources)
	}
	if !strings.Contains(llm.user, "Return policy: 30 days.") {
		t.Error("model prompt missing the retrieved passage")
	}
}

// TestEndToEnd_EmptyIndexRefuses checks the full request path over an empty
// corpus: the answer is exactly the refusal string with no sources.
func TestEndToEnd_EmptyIndexRefuses(t *testing.T) {
	index, err := vectorstore.NewMemoryIndex("", testLogger())
	if err != nil {
		t.Fatalf("NewMemoryIndex() error = %v", err)
	}
	embedder := &fakeEmbedder{}
	ctx := context.Background()

	retriever := NewRetriever(embedder, index, 4, 0.25, testLogger())
	results, err := retriever.Retrieve(ctx, "What is the return window?")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty retrieval, got %d results", len(results))
	}

	llm := &fakeLLM{answer: "unused"}
	synth := NewAnswerSynthesizer(llm, 10, SourcesContext, testLogger())
	msg, err := synth.Answer(ctx, "What is the return window?", results, nil, "")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if msg.Content != RefusalMessage {
		t.Errorf("answer = %q, want exact refusal", msg.Content)
	}
	if len(msg.Sources) != 0 {
		t.Errorf("refusal carried sources: %v", msg.Sources)
	}
	if llm.calls != 0 {
		t.Error("model was invoked for an empty retrieval")
	}
}

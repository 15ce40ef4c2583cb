package pipeline

import (
	"context"
	"fmt"
	"strings"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
	"ragchatbot/pkg/logger"
)

// RefusalMessage is the exact answer returned when no retrieved passage
// qualifies. The literal text is part of the observable contract.
const RefusalMessage = "I can only answer from the provided PDF documents."

// systemPrompt pins the model to the retrieved passages. The refusal
// instruction mirrors RefusalMessage so the model and the empty-retrieval
// path stay consistent.
const systemPrompt = "You are a professional call-center support chatbot. " +
	"You must answer strictly and only from the provided PDF context snippets. " +
	"If the answer is missing in context, reply exactly: " +
	"'I can only answer from the provided PDF documents.'"

// SourcesMode selects which passages are reported as sources of an answer.
type SourcesMode string

const (
	// SourcesContext reports every passage that was given to the model.
	SourcesContext SourcesMode = "context"
	// SourcesCited reports only passages whose [Source i] tag appears in
	// the answer, falling back to all passages when the model cites none.
	SourcesCited SourcesMode = "cited"
)

// AnswerSynthesizer builds a grounded prompt from retrieved passages and
// calls the language model, or refuses when there is nothing to ground on.
type AnswerSynthesizer struct {
	llm          interfaces.LLM
	historyTurns int
	sourcesMode  SourcesMode
	log          *logger.Logger
}

// NewAnswerSynthesizer creates an AnswerSynthesizer. historyTurns bounds how
// many prior conversation turns are passed to the model.
func NewAnswerSynthesizer(llm interfaces.LLM, historyTurns int, sourcesMode SourcesMode, log *logger.Logger) *AnswerSynthesizer {
	if sourcesMode != SourcesCited {
		sourcesMode = SourcesContext
	}
	return &AnswerSynthesizer{
		llm:          llm,
		historyTurns: historyTurns,
		sourcesMode:  sourcesMode,
		log:          log,
	}
}

// Answer produces the assistant message for a query. With no retrieval
// results it returns RefusalMessage with empty sources and never calls the
// model. Model failures surface as *schema.GenerationError; they are never
// converted into an answer or into the refusal message.
func (s *AnswerSynthesizer) Answer(
	ctx context.Context,
	query string,
	results []*schema.RetrievalResult,
	history []schema.Turn,
	template string,
) (*schema.AssistantMessage, error) {
	if len(results) == 0 {
		s.log.Info("No qualifying passages, returning refusal without calling the model")
		return &schema.AssistantMessage{
			Content: RefusalMessage,
			Sources: []schema.SourceRef{},
		}, nil
	}

	system := systemPrompt
	if template != "" {
		system = fmt.Sprintf("%s\n\nPrompt template:\n%s", system, template)
	}

	if len(history) > s.historyTurns {
		history = history[len(history)-s.historyTurns:]
	}

	answer, err := s.llm.Generate(ctx, system, history, s.buildUserMessage(query, results))
	if err != nil {
		s.log.Error(fmt.Sprintf("Language model call failed: %v", err))
		return nil, err
	}

	return &schema.AssistantMessage{
		Content: answer,
		Sources: s.collectSources(answer, results),
	}, nil
}

// buildUserMessage assembles the context block and the customer question.
// Each passage is tagged with its source document and page so the model can
// cite them.
func (s *AnswerSynthesizer) buildUserMessage(query string, results []*schema.RetrievalResult) string {
	var sb strings.Builder
	sb.WriteString("Context:\n")
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("[Source %d] %s (page %d)\n%s\n\n", i+1, r.Chunk.DocumentID, r.Chunk.Page, r.Chunk.Text))
	}
	sb.WriteString("Important: answer only from context sourced from PDF documents.\n\n")
	sb.WriteString("Customer question:\n")
	sb.WriteString(query)
	return sb.String()
}

// collectSources reports the document/page pairs behind the answer,
// deduplicated in first-use order.
func (s *AnswerSynthesizer) collectSources(answer string, results []*schema.RetrievalResult) []schema.SourceRef {
	selected := results
	if s.sourcesMode == SourcesCited {
		var cited []*schema.RetrievalResult
		for i, r := range results {
			if strings.Contains(answer, fmt.Sprintf("[Source %d]", i+1)) {
				cited = append(cited, r)
			}
		}
		// A model that cites nothing explicitly still used the whole context.
		if len(cited) > 0 {
			selected = cited
		}
	}

	var sources []schema.SourceRef
	seen := map[schema.SourceRef]bool{}
	for _, r := range selected {
		ref := schema.SourceRef{Document: r.Chunk.DocumentID, Page: r.Chunk.Page}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		sources = append(sources, ref)
	}
	return sources
}

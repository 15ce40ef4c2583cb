package llms

import (
	"context"
	"errors"
	"time"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"ragchatbot/internal/rag/interfaces"
	"ragchatbot/internal/rag/schema"
)

// answerTemperature keeps generation close to the retrieved passages.
const answerTemperature = 0.2

// OpenAILLM is an LLM backed by the OpenAI chat completions API.
type OpenAILLM struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAILLM creates an OpenAI chat completion client. The timeout bounds
// each API call so a chat request never hangs indefinitely.
func NewOpenAILLM(apiKey, model string, timeout time.Duration) *OpenAILLM {
	config := openai.DefaultConfig(apiKey)
	return &OpenAILLM{
		client:  openai.NewClientWithConfig(config),
		model:   model,
		timeout: timeout,
	}
}

// Generate runs one chat completion over the system prompt, the prior
// conversation turns and the new user message. Provider failures come back
// as *schema.GenerationError so callers can surface a retryable failure.
func (o *OpenAILLM) Generate(ctx context.Context, system string, history []schema.Turn, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, turn := range history {
		role := openai.ChatMessageRoleUser
		if turn.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: turn.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: user,
	})

	temperature := float32(answerTemperature)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Messages:    messages,
		Temperature: &temperature,
	})
	if err != nil {
		return "", &schema.GenerationError{Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &schema.GenerationError{Err: errors.New("chat completion returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// compile-time check to ensure OpenAILLM implements the LLM interface
var _ interfaces.LLM = (*OpenAILLM)(nil)

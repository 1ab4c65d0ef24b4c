package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"talkmate/internal/domain"
	"talkmate/internal/fragment"
)

const defaultOpenAIModel = openai.GPT4oMini

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implementa ConversationProvider con chat completions en modo JSON.
type OpenAIProvider struct {
	client      chatCompleter
	model       string
	temperature float32
	logger      *zap.Logger
}

// NewOpenAIProvider arma el cliente de go-openai. Sin apiKey devuelve nil.
func NewOpenAIProvider(baseURL, apiKey, model string, logger *zap.Logger) *OpenAIProvider {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return newOpenAIProvider(openai.NewClientWithConfig(cfg), model, logger)
}

func newOpenAIProvider(client chatCompleter, model string, logger *zap.Logger) *OpenAIProvider {
	if model == "" {
		model = defaultOpenAIModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIProvider{client: client, model: model, temperature: 0.7, logger: logger}
}

func (p *OpenAIProvider) Converse(ctx context.Context, req ConversationRequest) (ConversationReply, error) {
	if p == nil || p.client == nil {
		return ConversationReply{}, ErrProviderNotConfigured
	}
	if strings.TrimSpace(req.Message) == "" {
		return ConversationReply{}, ErrEmptyConversationInput
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: BuildSystemPrompt(req.CharacterName, req.PersonaDescriptor),
	})
	for _, h := range req.History {
		role := openai.ChatMessageRoleAssistant
		if h.Sender == string(domain.SenderUser) {
			role = openai.ChatMessageRoleUser
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: h.Text})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Message})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		p.logger.Error("openai chat completion failed", zap.String("model", p.model), zap.Error(err))
		return ConversationReply{}, fmt.Errorf("%w: openai: %w", domain.ErrRequestFailure, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return ConversationReply{}, fmt.Errorf("%w: openai empty response", domain.ErrMalformedReply)
	}

	fragments, err := fragment.ParseReply(resp.Choices[0].Message.Content)
	if err != nil {
		p.logger.Warn("openai reply not parseable", zap.String("character_id", req.CharacterID), zap.Error(err))
		return ConversationReply{}, err
	}
	return ConversationReply{Response: fragments}, nil
}

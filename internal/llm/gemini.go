package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"talkmate/internal/domain"
	"talkmate/internal/fragment"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// GeminiProvider implementa ConversationProvider contra la API REST generateContent.
type GeminiProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float32
	client      *http.Client
	logger      *zap.Logger
}

// NewGeminiProvider construye el proveedor; baseURL y model vacios usan los valores por defecto.
func NewGeminiProvider(baseURL, apiKey, model string, logger *zap.Logger) *GeminiProvider {
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	if model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: 0.7,
		client:      &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

func (g *GeminiProvider) Converse(ctx context.Context, req ConversationRequest) (ConversationReply, error) {
	if g == nil || g.apiKey == "" {
		return ConversationReply{}, ErrProviderNotConfigured
	}
	if strings.TrimSpace(req.Message) == "" {
		return ConversationReply{}, ErrEmptyConversationInput
	}

	raw, err := g.generate(ctx, BuildSystemPrompt(req.CharacterName, req.PersonaDescriptor), buildGeminiUserPrompt(req))
	if err != nil {
		return ConversationReply{}, err
	}

	fragments, err := fragment.ParseReply(raw)
	if err != nil {
		g.logger.Warn("gemini reply not parseable", zap.String("character_id", req.CharacterID), zap.Error(err))
		return ConversationReply{}, err
	}
	return ConversationReply{Response: fragments}, nil
}

func buildGeminiUserPrompt(req ConversationRequest) string {
	var sb strings.Builder
	if history := FormatHistory(req); history != "" {
		sb.WriteString("Conversation history:\n")
		sb.WriteString(history)
		sb.WriteString("\n\n")
	}
	sb.WriteString("user: ")
	sb.WriteString(req.Message)
	return sb.String()
}

func (g *GeminiProvider) generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}},
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: userPrompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:      g.temperature,
			ResponseMimeType: "application/json",
			ResponseSchema:   responseSchema,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: do request: %w", domain.ErrRequestFailure, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", domain.ErrRequestFailure, err)
	}

	if resp.StatusCode >= 400 {
		g.logger.Error("gemini error status", zap.Int("status", resp.StatusCode), zap.ByteString("body", truncate(respBody, 512)))
		return "", fmt.Errorf("%w: gemini http error: status=%d", domain.ErrRequestFailure, resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("%w: unmarshal response: %w", domain.ErrMalformedReply, err)
	}
	if gr.Error != nil {
		return "", fmt.Errorf("%w: gemini api error: %s", domain.ErrRequestFailure, gr.Error.Message)
	}

	var sb strings.Builder
	for _, cand := range gr.Candidates {
		for _, p := range cand.Content.Parts {
			sb.WriteString(p.Text)
		}
		if sb.Len() > 0 {
			break
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: gemini empty response", domain.ErrMalformedReply)
	}
	return sb.String(), nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"response": map[string]any{
			"type":  "ARRAY",
			"items": map[string]any{"type": "STRING"},
		},
	},
	"required": []string{"response"},
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature      float32        `json:"temperature"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

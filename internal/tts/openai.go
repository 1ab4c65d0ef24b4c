package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const audioURIPrefix = "data:audio/mpeg;base64,"

type speechCreator interface {
	CreateSpeech(ctx context.Context, request openai.CreateSpeechRequest) (openai.RawResponse, error)
}

// OpenAISynthesizer sintetiza mp3 con la API de audio/speech y lo entrega como data URI.
type OpenAISynthesizer struct {
	client speechCreator
	model  openai.SpeechModel
	voice  openai.SpeechVoice
	logger *zap.Logger
}

// NewOpenAISynthesizer devuelve nil si no hay apiKey.
func NewOpenAISynthesizer(baseURL, apiKey, model, voice string, logger *zap.Logger) *OpenAISynthesizer {
	if strings.TrimSpace(apiKey) == "" {
		return nil
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return newOpenAISynthesizer(openai.NewClientWithConfig(cfg), model, voice, logger)
}

func newOpenAISynthesizer(client speechCreator, model, voice string, logger *zap.Logger) *OpenAISynthesizer {
	if model == "" {
		model = string(openai.TTSModel1)
	}
	if voice == "" {
		voice = string(openai.VoiceAlloy)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAISynthesizer{
		client: client,
		model:  openai.SpeechModel(model),
		voice:  openai.SpeechVoice(voice),
		logger: logger,
	}
}

// Voice identifica la voz configurada; se usa como parte de la clave de cache.
func (s *OpenAISynthesizer) Voice() string {
	if s == nil {
		return ""
	}
	return string(s.model) + "/" + string(s.voice)
}

func (s *OpenAISynthesizer) Synthesize(ctx context.Context, text string) (Speech, error) {
	if s == nil || s.client == nil {
		return Speech{}, ErrSynthesizerNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return Speech{}, ErrEmptyText
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          s.model,
		Input:          text,
		Voice:          s.voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		s.logger.Error("openai speech failed", zap.String("voice", string(s.voice)), zap.Error(err))
		return Speech{}, fmt.Errorf("create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return Speech{}, fmt.Errorf("read speech: %w", err)
	}
	if len(audio) == 0 {
		return Speech{}, fmt.Errorf("create speech: empty audio")
	}
	return Speech{AudioURI: audioURIPrefix + base64.StdEncoding.EncodeToString(audio)}, nil
}

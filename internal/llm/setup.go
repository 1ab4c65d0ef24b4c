package llm

import (
	"go.uber.org/zap"

	"talkmate/internal/config"
	"talkmate/internal/domain"
)

// NewRouterFromConfig registra los proveedores con credenciales. Con USE_MOCK_LLM
// todos los personajes responden con EchoProvider.
func NewRouterFromConfig(cfg *config.Config, characters []domain.Character, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := NewRouter(characters)
	if cfg.UseMockLLM {
		router.Register(domain.ProviderGemini, EchoProvider{})
		router.Register(domain.ProviderOpenAI, EchoProvider{})
		logger.Warn("using echo llm provider")
		return router
	}

	if cfg.GeminiAPIKey != "" {
		router.Register(domain.ProviderGemini, NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, logger))
	} else {
		logger.Warn("gemini api key not configured")
	}
	if p := NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, logger); p != nil {
		router.Register(domain.ProviderOpenAI, p)
	} else {
		logger.Warn("openai api key not configured")
	}
	return router
}

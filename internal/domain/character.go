package domain

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

// Character es una identidad de agente atada a un proveedor concreto.
type Character struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Provider    Provider `json:"api_provider"`
}

// Persona es un perfil de system prompt que define tono y estilo.
type Persona struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Description      string `json:"description"`
	EmotionForPrompt string `json:"emotion_for_prompt"`
	SystemPrompt     string `json:"system_prompt"`
}

// Descriptor es el texto de persona que viaja en el pedido saliente.
func (p Persona) Descriptor() string {
	switch {
	case p.EmotionForPrompt == "":
		return p.SystemPrompt
	case p.SystemPrompt == "":
		return p.EmotionForPrompt
	default:
		return p.EmotionForPrompt + ". " + p.SystemPrompt
	}
}

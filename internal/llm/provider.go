package llm

import (
	"context"
	"errors"
	"fmt"

	"talkmate/internal/domain"
)

var (
	ErrUnknownProvider        = errors.New("unknown llm provider")
	ErrProviderNotConfigured  = errors.New("llm provider not configured")
	ErrEmptyConversationInput = errors.New("conversation message is empty")
)

// MaxHistory es la ventana de historial que acepta el contrato saliente.
const MaxHistory = 10

// ConversationRequest es la entrada del pedido conversacional saliente.
type ConversationRequest struct {
	Message           string                `json:"message"`
	PersonaDescriptor string                `json:"persona"`
	CharacterID       string                `json:"character_id"`
	CharacterName     string                `json:"character_name"`
	History           []domain.HistoryEntry `json:"history,omitempty"`
}

// ConversationReply es la respuesta exitosa: fragmentos ordenados.
type ConversationReply struct {
	Response []string `json:"response"`
}

// ConversationProvider genera la respuesta fragmentada de un personaje.
type ConversationProvider interface {
	Converse(ctx context.Context, req ConversationRequest) (ConversationReply, error)
}

// Router despacha cada pedido al proveedor declarado por el personaje.
type Router struct {
	characters map[string]domain.Provider
	providers  map[domain.Provider]ConversationProvider
}

func NewRouter(characters []domain.Character) *Router {
	r := &Router{
		characters: make(map[string]domain.Provider, len(characters)),
		providers:  make(map[domain.Provider]ConversationProvider),
	}
	for _, c := range characters {
		r.characters[c.ID] = c.Provider
	}
	return r
}

// Register asocia una implementacion a un proveedor. Un proveedor nil se ignora.
func (r *Router) Register(provider domain.Provider, impl ConversationProvider) {
	if impl == nil {
		return
	}
	r.providers[provider] = impl
}

func (r *Router) Converse(ctx context.Context, req ConversationRequest) (ConversationReply, error) {
	if r == nil {
		return ConversationReply{}, ErrProviderNotConfigured
	}
	provider, ok := r.characters[req.CharacterID]
	if !ok {
		return ConversationReply{}, fmt.Errorf("%w: character %q", ErrUnknownProvider, req.CharacterID)
	}
	impl, ok := r.providers[provider]
	if !ok {
		return ConversationReply{}, fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
	}
	if len(req.History) > MaxHistory {
		req.History = req.History[len(req.History)-MaxHistory:]
	}
	return impl.Converse(ctx, req)
}

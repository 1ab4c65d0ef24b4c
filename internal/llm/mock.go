package llm

import (
	"context"
	"sync"
)

// MockProvider permite tests y modo local sin llamar a un LLM real.
type MockProvider struct {
	mu       sync.Mutex
	Response []string
	Err      error
	Calls    []ConversationRequest
}

func (m *MockProvider) Converse(_ context.Context, req ConversationRequest) (ConversationReply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return ConversationReply{}, m.Err
	}
	return ConversationReply{Response: append([]string(nil), m.Response...)}, nil
}

// CallCount devuelve cuantos pedidos recibio el mock.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// EchoProvider responde repitiendo el mensaje; util para correr el servidor sin credenciales.
type EchoProvider struct{}

func (EchoProvider) Converse(_ context.Context, req ConversationRequest) (ConversationReply, error) {
	if req.Message == "" {
		return ConversationReply{}, ErrEmptyConversationInput
	}
	return ConversationReply{Response: []string{"Hmm...", "You said: " + req.Message}}, nil
}

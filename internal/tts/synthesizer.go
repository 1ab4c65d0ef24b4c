package tts

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrSynthesizerNotConfigured = errors.New("speech synthesizer not configured")
	ErrEmptyText                = errors.New("synthesis text is empty")
)

// Speech es el resultado de sintetizar un fragmento.
type Speech struct {
	AudioURI string `json:"audio_uri"`
}

// Synthesizer convierte texto en una URI de audio reproducible.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}

// MockSynthesizer devuelve URIs deterministas; Hook permite controlar latencia o fallas en tests.
type MockSynthesizer struct {
	mu    sync.Mutex
	Hook  func(ctx context.Context, text string) (Speech, error)
	Calls []string
}

func (m *MockSynthesizer) Synthesize(ctx context.Context, text string) (Speech, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, text)
	hook := m.Hook
	m.mu.Unlock()
	if hook != nil {
		return hook(ctx, text)
	}
	return Speech{AudioURI: "mock://" + text}, nil
}

func (m *MockSynthesizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

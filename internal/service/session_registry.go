package service

import (
	"sort"
	"sync"

	"talkmate/internal/domain"
)

// SessionFactory crea la sesion de un personaje la primera vez que se selecciona.
type SessionFactory func(character domain.Character, persona domain.Persona) *ConversationSession

// SessionRegistry guarda una sesion por personaje durante toda la vida del proceso.
type SessionRegistry struct {
	factory SessionFactory

	mu       sync.Mutex
	sessions map[string]*ConversationSession
}

func NewSessionRegistry(factory SessionFactory) *SessionRegistry {
	return &SessionRegistry{factory: factory, sessions: make(map[string]*ConversationSession)}
}

// GetOrCreate devuelve la sesion existente sin tocar su persona; created indica si es nueva.
func (r *SessionRegistry) GetOrCreate(character domain.Character, persona domain.Persona) (*ConversationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[character.ID]; ok {
		return s, false
	}
	s := r.factory(character, persona)
	r.sessions[character.ID] = s
	return s, true
}

func (r *SessionRegistry) Get(characterID string) (*ConversationSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[characterID]
	return s, ok
}

// All devuelve las sesiones ordenadas por id de personaje.
func (r *SessionRegistry) All() []*ConversationSession {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*ConversationSession, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.sessions[id])
	}
	return out
}

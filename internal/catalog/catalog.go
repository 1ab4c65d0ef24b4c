package catalog

import (
	"errors"
	"strings"

	"talkmate/internal/domain"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrPersonaNotFound   = errors.New("persona not found")
)

// Registry es el catalogo estatico de personajes y personas. Es inmutable tras construirse.
type Registry struct {
	characters []domain.Character
	personas   []domain.Persona
}

// NewRegistry construye un catalogo a partir de listas explicitas (util en tests).
func NewRegistry(characters []domain.Character, personas []domain.Persona) (*Registry, error) {
	if len(characters) == 0 {
		return nil, errors.New("catalog requires at least one character")
	}
	if len(personas) == 0 {
		return nil, errors.New("catalog requires at least one persona")
	}
	seen := make(map[string]struct{}, len(characters))
	for _, c := range characters {
		if strings.TrimSpace(c.ID) == "" {
			return nil, errors.New("character id is required")
		}
		if c.Provider != domain.ProviderGemini && c.Provider != domain.ProviderOpenAI {
			return nil, errors.New("character " + c.ID + " has unknown provider " + string(c.Provider))
		}
		if _, dup := seen[c.ID]; dup {
			return nil, errors.New("duplicate character id " + c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return &Registry{
		characters: append([]domain.Character(nil), characters...),
		personas:   append([]domain.Persona(nil), personas...),
	}, nil
}

// Default devuelve el catalogo con los personajes y personas de fabrica.
func Default() *Registry {
	r, err := NewRegistry(defaultCharacters, defaultPersonas)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Characters() []domain.Character {
	return append([]domain.Character(nil), r.characters...)
}

func (r *Registry) Personas() []domain.Persona {
	return append([]domain.Persona(nil), r.personas...)
}

func (r *Registry) Character(id string) (domain.Character, error) {
	id = strings.TrimSpace(id)
	for _, c := range r.characters {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Character{}, ErrCharacterNotFound
}

func (r *Registry) Persona(id string) (domain.Persona, error) {
	id = strings.TrimSpace(id)
	for _, p := range r.personas {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Persona{}, ErrPersonaNotFound
}

func (r *Registry) DefaultCharacter() domain.Character {
	return r.characters[0]
}

func (r *Registry) DefaultPersona() domain.Persona {
	return r.personas[0]
}

package service

import (
	"strings"
	"sync"
)

// AppFactory crea la app de un usuario.
type AppFactory func(userID string) *ChatApp

// AppStore mantiene una ChatApp por usuario, creada al primer uso.
type AppStore struct {
	factory AppFactory

	mu   sync.Mutex
	apps map[string]*ChatApp
}

func NewAppStore(factory AppFactory) *AppStore {
	return &AppStore{factory: factory, apps: make(map[string]*ChatApp)}
}

func (s *AppStore) Get(userID string) *ChatApp {
	userID = strings.TrimSpace(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	if app, ok := s.apps[userID]; ok {
		return app
	}
	app := s.factory(userID)
	s.apps[userID] = app
	return app
}

// Close cierra todas las apps; se llama al apagar el servidor.
func (s *AppStore) Close() {
	s.mu.Lock()
	apps := make([]*ChatApp, 0, len(s.apps))
	for _, app := range s.apps {
		apps = append(apps, app)
	}
	s.apps = make(map[string]*ChatApp)
	s.mu.Unlock()
	for _, app := range apps {
		app.Close()
	}
}

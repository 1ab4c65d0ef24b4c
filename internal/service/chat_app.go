package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"talkmate/internal/catalog"
	"talkmate/internal/domain"
	"talkmate/internal/llm"
	"talkmate/internal/playback"
	"talkmate/internal/speech"
	"talkmate/internal/tts"
)

var ErrNoActiveSession = errors.New("no active session")

// AudioOutput es la parte del secuenciador que usa la app.
type AudioOutput interface {
	Enqueue(text string) (domain.AudioItem, bool)
	Reset()
	SetEnabled(enabled bool)
	Enabled() bool
	State() playback.State
	Close()
}

// ChatDeps son las dependencias compartidas por todas las apps de usuario.
type ChatDeps struct {
	Catalog        *catalog.Registry
	Provider       llm.ConversationProvider
	Synthesizer    tts.Synthesizer
	SynthWorkers   int
	Pacer          *RevealPacer
	Sleep          func(ctx context.Context, d time.Duration) error
	Logger         *zap.Logger
	HistoryLimit   int
	RequestTimeout time.Duration
	VoiceEnabled   bool
}

// ChatApp es el contexto de aplicacion de un usuario: personaje activo, voz y
// buffer de entrada.
type ChatApp struct {
	userID   string
	catalog  *catalog.Registry
	sessions *SessionRegistry
	audio    AudioOutput
	speech   *speech.Adapter
	recog    *speech.ClientRecognizer
	notifier domain.Notifier
	logger   *zap.Logger

	mu     sync.Mutex
	active *ConversationSession
	input  string
}

// NewChatApp arma la app con su propio secuenciador sobre el player dado.
func NewChatApp(userID string, deps ChatDeps, player playback.Player, notifier domain.Notifier) *ChatApp {
	if notifier == nil {
		notifier = domain.NopNotifier
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	logger := deps.Logger.With(zap.String("user_id", userID))

	app := &ChatApp{
		userID:   userID,
		catalog:  deps.Catalog,
		notifier: notifier,
		logger:   logger,
		recog:    &speech.ClientRecognizer{},
	}
	if deps.Synthesizer != nil && player != nil {
		app.audio = playback.NewSequencer(deps.Synthesizer, player, playback.Options{
			MaxConcurrentSynthesis: deps.SynthWorkers,
			Observer:               app,
			Logger:                 logger,
			Enabled:                deps.VoiceEnabled,
		})
	}
	app.speech = speech.NewAdapter(app.recog, app, notifier, logger)
	app.sessions = NewSessionRegistry(func(character domain.Character, persona domain.Persona) *ConversationSession {
		return NewConversationSession(character, persona, deps.Provider, SessionOptions{
			Pacer:          deps.Pacer,
			Sleep:          deps.Sleep,
			Speaker:        app,
			Notifier:       notifier,
			Logger:         logger,
			HistoryLimit:   deps.HistoryLimit,
			RequestTimeout: deps.RequestTimeout,
		})
	})
	return app
}

// withAudio reemplaza la salida de audio; se usa en tests.
func (a *ChatApp) withAudio(out AudioOutput) *ChatApp {
	a.audio = out
	return a
}

func (a *ChatApp) UserID() string {
	return a.userID
}

func (a *ChatApp) Catalog() *catalog.Registry {
	return a.catalog
}

// Select activa el personaje y la persona. personaID vacio conserva la persona
// de la sesion o usa la de defecto. Cambiar de personaje o persona corta el audio.
func (a *ChatApp) Select(characterID, personaID string) (domain.Session, error) {
	character, err := a.catalog.Character(characterID)
	if err != nil {
		return domain.Session{}, err
	}

	a.mu.Lock()
	session, created := a.sessions.GetOrCreate(character, a.catalog.DefaultPersona())
	persona := session.Persona()
	if strings.TrimSpace(personaID) != "" {
		persona, err = a.catalog.Persona(personaID)
		if err != nil {
			a.mu.Unlock()
			return domain.Session{}, err
		}
	}
	changed := a.active != session || session.Persona().ID != persona.ID
	session.SetPersona(persona)
	a.active = session
	a.mu.Unlock()

	if changed {
		a.resetAudio()
		a.logger.Info("conversation selected",
			zap.String("character_id", character.ID),
			zap.String("persona_id", persona.ID),
			zap.Bool("new_session", created))
	}
	return session.Snapshot(), nil
}

// Active devuelve la sesion activa, seleccionando la de defecto si no hay ninguna.
func (a *ChatApp) Active() *ConversationSession {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if active != nil {
		return active
	}
	if _, err := a.Select(a.catalog.DefaultCharacter().ID, ""); err != nil {
		a.logger.Error("default selection failed", zap.Error(err))
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *ChatApp) Submit(ctx context.Context, text string) (*domain.Turn, error) {
	session := a.Active()
	if session == nil {
		return nil, ErrNoActiveSession
	}
	return session.Submit(ctx, text)
}

func (a *ChatApp) Snapshot() domain.Session {
	session := a.Active()
	if session == nil {
		return domain.Session{}
	}
	return session.Snapshot()
}

func (a *ChatApp) Messages() []domain.Message {
	session := a.Active()
	if session == nil {
		return nil
	}
	return session.Messages()
}

// Speak encola el fragmento solo si sigue siendo la conversacion activa.
func (a *ChatApp) Speak(characterID, personaID, text string) {
	a.mu.Lock()
	active := a.active
	a.mu.Unlock()
	if a.audio == nil || active == nil || active.Character().ID != characterID || active.Persona().ID != personaID {
		return
	}
	a.audio.Enqueue(text)
}

func (a *ChatApp) SetVoiceEnabled(enabled bool) {
	if a.audio == nil {
		return
	}
	a.audio.SetEnabled(enabled)
	a.notifier.Notify(domain.Event{Type: domain.EventAudioReset})
	a.logger.Info("voice output toggled", zap.Bool("enabled", enabled))
}

func (a *ChatApp) VoiceEnabled() bool {
	return a.audio != nil && a.audio.Enabled()
}

// AudioState informa el estado del secuenciador; sin voz configurada es Idle.
func (a *ChatApp) AudioState() playback.State {
	if a.audio == nil {
		return playback.StateIdle
	}
	return a.audio.State()
}

func (a *ChatApp) resetAudio() {
	if a.audio == nil {
		return
	}
	a.audio.Reset()
	a.notifier.Notify(domain.Event{Type: domain.EventAudioReset})
}

func (a *ChatApp) PlaybackStarted(item domain.AudioItem) {
	a.notifier.Notify(domain.Event{Type: domain.EventAudioStarted, Audio: &item})
}

func (a *ChatApp) PlaybackEnded(item domain.AudioItem, err error) {
	item.SourceURI = ""
	ev := domain.Event{Type: domain.EventAudioEnded, Audio: &item}
	if err != nil {
		ev.Text = err.Error()
	}
	a.notifier.Notify(ev)
}

func (a *ChatApp) Input() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.input
}

func (a *ChatApp) SetInput(text string) {
	a.mu.Lock()
	a.input = text
	a.mu.Unlock()
	a.notifier.Notify(domain.Event{Type: domain.EventInputUpdated, Text: text})
}

// SubmitInput envia el buffer pendiente y lo limpia.
func (a *ChatApp) SubmitInput(ctx context.Context) (*domain.Turn, error) {
	a.mu.Lock()
	text := a.input
	a.input = ""
	a.mu.Unlock()
	a.speech.Stop()
	a.notifier.Notify(domain.Event{Type: domain.EventInputUpdated, Text: ""})
	return a.Submit(ctx, text)
}

func (a *ChatApp) Speech() *speech.Adapter {
	return a.speech
}

// SetSpeechAvailable refleja si el cliente conectado puede reconocer voz.
func (a *ChatApp) SetSpeechAvailable(available bool) {
	a.recog.SetAvailable(available)
	if !available {
		a.speech.Stop()
	}
}

// Close libera el secuenciador. Los logs quedan en memoria.
func (a *ChatApp) Close() {
	if a.audio != nil {
		a.audio.Close()
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talkmate/internal/domain"
	"talkmate/internal/fragment"
	"talkmate/internal/llm"
)

// Speaker recibe cada fragmento revelado para convertirlo en audio.
type Speaker interface {
	Speak(characterID, personaID, text string)
}

// SessionOptions agrupa las dependencias opcionales de una sesion.
type SessionOptions struct {
	Pacer          *RevealPacer
	Sleep          func(ctx context.Context, d time.Duration) error
	Speaker        Speaker
	Notifier       domain.Notifier
	Logger         *zap.Logger
	HistoryLimit   int
	RequestTimeout time.Duration
	Now            func() time.Time
}

// ConversationSession es el log de un personaje y el protocolo de turnos:
// un solo pedido en vuelo, el resto de las entradas queda en cola.
type ConversationSession struct {
	character      domain.Character
	provider       llm.ConversationProvider
	pacer          RevealPacer
	sleep          func(ctx context.Context, d time.Duration) error
	speaker        Speaker
	notifier       domain.Notifier
	logger         *zap.Logger
	historyLimit   int
	requestTimeout time.Duration
	now            func() time.Time

	mu          sync.Mutex
	persona     domain.Persona
	messages    []domain.Message
	pending     *domain.Turn
	placeholder string
	queued      []domain.Message
	idle        chan struct{}
}

func NewConversationSession(character domain.Character, persona domain.Persona, provider llm.ConversationProvider, opts SessionOptions) *ConversationSession {
	pacer := DefaultRevealPacer()
	if opts.Pacer != nil {
		pacer = *opts.Pacer
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	if opts.Notifier == nil {
		opts.Notifier = domain.NopNotifier
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HistoryLimit <= 0 || opts.HistoryLimit > llm.MaxHistory {
		opts.HistoryLimit = llm.MaxHistory
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	idle := make(chan struct{})
	close(idle)
	return &ConversationSession{
		character:      character,
		provider:       provider,
		pacer:          pacer,
		sleep:          opts.Sleep,
		speaker:        opts.Speaker,
		notifier:       opts.Notifier,
		logger:         opts.Logger.With(zap.String("character_id", character.ID)),
		historyLimit:   opts.HistoryLimit,
		requestTimeout: opts.RequestTimeout,
		now:            opts.Now,
		persona:        persona,
		idle:           idle,
	}
}

func (s *ConversationSession) Character() domain.Character {
	return s.character
}

func (s *ConversationSession) Persona() domain.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persona
}

// SetPersona aplica a los turnos que se abran a partir de ahora.
func (s *ConversationSession) SetPersona(p domain.Persona) {
	s.mu.Lock()
	s.persona = p
	s.mu.Unlock()
}

func (s *ConversationSession) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *ConversationSession) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending != nil
}

func (s *ConversationSession) Snapshot() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Session{
		CharacterID: s.character.ID,
		PersonaID:   s.persona.ID,
		Messages:    append([]domain.Message(nil), s.messages...),
		Pending:     s.pending != nil,
	}
}

// WaitIdle bloquea hasta que no quede ningun turno pendiente, incluidos los de la cola.
func (s *ConversationSession) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	idle := s.idle
	s.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Submit agrega el mensaje del usuario. Si hay un turno en vuelo el mensaje
// queda en cola y se devuelve nil; el texto vacio se ignora.
func (s *ConversationSession) Submit(ctx context.Context, text string) (*domain.Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	s.mu.Lock()
	msg := s.newMessageLocked(trimmed, domain.SenderUser, false)
	if s.pending != nil {
		s.queued = append(s.queued, msg)
		s.mu.Unlock()
		s.logger.Debug("turn pending, input queued", zap.String("message_id", msg.ID), zap.Int("queued", len(s.queued)))
		return nil, nil
	}

	history := buildHistory(s.messages[:len(s.messages)-1], s.character.Name, s.historyLimit, nil)
	turn, placeholder := s.openTurnLocked(trimmed, history)
	persona := s.persona
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), turn, placeholder, persona)
	return turn, nil
}

func (s *ConversationSession) newMessageLocked(text string, sender domain.Sender, streaming bool) domain.Message {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Text:      text,
		Sender:    sender,
		Streaming: streaming,
		CreatedAt: s.now(),
	}
	s.messages = append(s.messages, msg)
	s.notifier.Notify(domain.Event{Type: domain.EventMessageAppended, CharacterID: s.character.ID, Message: &msg})
	return msg
}

func (s *ConversationSession) openTurnLocked(text string, history []domain.HistoryEntry) (*domain.Turn, string) {
	if s.pending == nil {
		s.idle = make(chan struct{})
	}
	turn := domain.NewTurn(uuid.NewString(), text, history)
	s.pending = turn
	s.notifier.Notify(domain.Event{Type: domain.EventTurnStarted, CharacterID: s.character.ID, RequestID: turn.RequestID, Text: text})
	placeholder := s.newMessageLocked("", domain.SenderAgent, true)
	s.placeholder = placeholder.ID
	return turn, placeholder.ID
}

func (s *ConversationSession) run(ctx context.Context, turn *domain.Turn, placeholderID string, persona domain.Persona) {
	logger := s.logger.With(zap.String("request_id", turn.RequestID), zap.String("persona_id", persona.ID))
	started := s.now()

	reqCtx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	reply, err := s.provider.Converse(reqCtx, llm.ConversationRequest{
		Message:           turn.SubmittedText,
		PersonaDescriptor: persona.Descriptor(),
		CharacterID:       s.character.ID,
		CharacterName:     s.character.Name,
		History:           turn.History,
	})
	cancel()

	fragments := fragment.NonBlank(reply.Response)
	if err == nil && len(fragments) == 0 {
		err = fmt.Errorf("%w: reply without fragments", domain.ErrMalformedReply)
	}
	s.removePlaceholder(placeholderID)

	if err != nil {
		if !errors.Is(err, domain.ErrMalformedReply) && !errors.Is(err, domain.ErrRequestFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrRequestFailure, err)
		}
		logger.Warn("conversation request failed", zap.Duration("elapsed", s.now().Sub(started)), zap.Error(err))
		notice := domain.NoticeFromError(err)
		s.notifier.Notify(domain.Event{Type: domain.EventNotice, CharacterID: s.character.ID, RequestID: turn.RequestID, Notice: &notice})
		s.resolve(ctx, turn)
		return
	}

	logger.Info("conversation reply received", zap.Int("fragments", len(fragments)), zap.Duration("elapsed", s.now().Sub(started)))
	for _, f := range fragments {
		_ = s.sleep(ctx, s.pacer.Delay(f))
		s.mu.Lock()
		s.newMessageLocked(f, domain.SenderAgent, false)
		s.mu.Unlock()
		if s.speaker != nil {
			s.speaker.Speak(s.character.ID, persona.ID, f)
		}
	}
	s.resolve(ctx, turn)
}

func (s *ConversationSession) removePlaceholder(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, m := range s.messages {
		if m.ID != id {
			continue
		}
		s.messages = append(s.messages[:i], s.messages[i+1:]...)
		removed := m
		s.notifier.Notify(domain.Event{Type: domain.EventMessageRemoved, CharacterID: s.character.ID, Message: &removed})
		break
	}
	if s.placeholder == id {
		s.placeholder = ""
	}
}

// resolve cierra el turno y, si hubo entradas en cola, abre un unico turno de seguimiento.
func (s *ConversationSession) resolve(ctx context.Context, turn *domain.Turn) {
	s.mu.Lock()
	s.notifier.Notify(domain.Event{Type: domain.EventTurnResolved, CharacterID: s.character.ID, RequestID: turn.RequestID})
	turn.Resolve()

	if len(s.queued) == 0 {
		s.pending = nil
		close(s.idle)
		s.mu.Unlock()
		return
	}

	texts := make([]string, 0, len(s.queued))
	exclude := make(map[string]bool, len(s.queued))
	for _, m := range s.queued {
		texts = append(texts, m.Text)
		exclude[m.ID] = true
	}
	s.queued = nil
	history := buildHistory(s.messages, s.character.Name, s.historyLimit, exclude)
	next, placeholder := s.openTurnLocked(strings.Join(texts, "\n"), history)
	persona := s.persona
	s.mu.Unlock()

	s.logger.Debug("opening follow-up turn for queued input", zap.String("request_id", next.RequestID))
	go s.run(ctx, next, placeholder, persona)
}

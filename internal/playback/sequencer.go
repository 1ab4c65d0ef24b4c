// Package playback ordena la reproduccion de audio de los fragmentos revelados.
//
// La sintesis arranca apenas se encola cada fragmento y puede terminar en
// cualquier orden; la reproduccion respeta siempre el orden de encolado y
// nunca hay mas de un item sonando a la vez.
package playback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"talkmate/internal/domain"
	"talkmate/internal/tts"
)

var ErrSequencerClosed = errors.New("sequencer closed")

type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
)

// Player reproduce un item en el dispositivo de salida y retorna cuando termina.
// Debe abortar cuando ctx se cancela.
type Player interface {
	Play(ctx context.Context, item domain.AudioItem) error
}

// Observer recibe los cambios de reproduccion. Los items descartados por Reset
// no generan PlaybackEnded.
type Observer interface {
	PlaybackStarted(item domain.AudioItem)
	PlaybackEnded(item domain.AudioItem, err error)
}

type entry struct {
	item  domain.AudioItem
	ready chan struct{}
	uri   string
	err   error
}

type Sequencer struct {
	synth    tts.Synthesizer
	player   Player
	observer Observer
	logger   *zap.Logger
	now      func() time.Time
	slots    chan struct{}

	mu            sync.Mutex
	enabled       bool
	closed        bool
	state         State
	queue         []*entry
	generation    uint64
	genCtx        context.Context
	genCancel     context.CancelFunc
	cancelCurrent context.CancelFunc
	wake          chan struct{}
	done          chan struct{}
}

// Options ajusta el secuenciador; los valores cero usan defaults.
type Options struct {
	MaxConcurrentSynthesis int
	Observer               Observer
	Logger                 *zap.Logger
	Enabled                bool
}

func NewSequencer(synth tts.Synthesizer, player Player, opts Options) *Sequencer {
	if opts.MaxConcurrentSynthesis <= 0 {
		opts.MaxConcurrentSynthesis = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Sequencer{
		synth:    synth,
		player:   player,
		observer: opts.Observer,
		logger:   opts.Logger,
		now:      time.Now,
		slots:    make(chan struct{}, opts.MaxConcurrentSynthesis),
		enabled:  opts.Enabled,
		state:    StateIdle,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	go s.run()
	return s
}

// Enqueue agrega un fragmento al final de la cola e inicia su sintesis.
// Devuelve false si la voz esta apagada, el texto es vacio o el secuenciador cerro.
func (s *Sequencer) Enqueue(text string) (domain.AudioItem, bool) {
	if strings.TrimSpace(text) == "" {
		return domain.AudioItem{}, false
	}

	s.mu.Lock()
	if s.closed || !s.enabled {
		s.mu.Unlock()
		return domain.AudioItem{}, false
	}
	e := &entry{
		item: domain.AudioItem{
			ID:         uuid.NewString(),
			Text:       text,
			EnqueuedAt: s.now(),
		},
		ready: make(chan struct{}),
	}
	s.queue = append(s.queue, e)
	ctx := s.genCtx
	s.mu.Unlock()

	go s.synthesize(ctx, e)
	s.signal()
	return e.item, true
}

// Reset corta el audio actual, vacia la cola y vuelve a Idle.
func (s *Sequencer) Reset() {
	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()
	s.signal()
}

// SetEnabled prende o apaga la voz. Cualquier cambio es un reset completo.
func (s *Sequencer) SetEnabled(enabled bool) {
	s.mu.Lock()
	changed := s.enabled != enabled
	s.enabled = enabled
	if changed {
		s.resetLocked()
	}
	s.mu.Unlock()
	if changed {
		s.signal()
	}
}

func (s *Sequencer) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Len cuenta los items pendientes, incluido el que esta cargando o sonando.
func (s *Sequencer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Close detiene el secuenciador y espera a que termine el loop.
func (s *Sequencer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	s.resetLocked()
	s.mu.Unlock()
	s.signal()
	<-s.done
}

func (s *Sequencer) resetLocked() {
	s.generation++
	s.genCancel()
	s.genCtx, s.genCancel = context.WithCancel(context.Background())
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
	s.queue = nil
	s.state = StateIdle
}

func (s *Sequencer) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Sequencer) synthesize(ctx context.Context, e *entry) {
	defer close(e.ready)

	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		e.err = ctx.Err()
		return
	}
	defer func() { <-s.slots }()

	speech, err := s.synth.Synthesize(ctx, e.item.Text)
	if err != nil {
		e.err = err
		return
	}
	e.uri = speech.AudioURI
}

func (s *Sequencer) run() {
	defer close(s.done)
	for {
		e, gen, ctx, ok := s.next()
		if !ok {
			return
		}

		select {
		case <-e.ready:
		case <-ctx.Done():
			continue
		}
		if e.err != nil {
			s.logger.Warn("speech synthesis failed, skipping fragment", zap.String("item_id", e.item.ID), zap.Error(e.err))
			s.finish(gen, e, nil, false)
			continue
		}

		item := e.item
		item.SourceURI = e.uri
		if !s.startPlaying(gen) {
			continue
		}
		if s.observer != nil {
			s.observer.PlaybackStarted(item)
		}
		err := s.player.Play(ctx, item)
		if err != nil && ctx.Err() == nil {
			s.logger.Warn("audio playback failed", zap.String("item_id", item.ID), zap.Error(err))
			err = errors.Join(domain.ErrPlaybackFailure, err)
		}
		s.finish(gen, &entry{item: item}, err, true)
	}
}

// next bloquea hasta que haya un item al frente de la cola con el secuenciador Idle.
func (s *Sequencer) next() (*entry, uint64, context.Context, bool) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, 0, nil, false
		}
		if s.state == StateIdle && len(s.queue) > 0 {
			e := s.queue[0]
			s.state = StateLoading
			ctx, cancel := context.WithCancel(s.genCtx)
			s.cancelCurrent = cancel
			gen := s.generation
			s.mu.Unlock()
			return e, gen, ctx, true
		}
		s.mu.Unlock()
		<-s.wake
	}
}

func (s *Sequencer) startPlaying(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return false
	}
	s.state = StatePlaying
	return true
}

// finish aplica el fin de un item solo si nadie reseteo mientras tanto.
func (s *Sequencer) finish(gen uint64, e *entry, err error, played bool) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	if len(s.queue) > 0 {
		s.queue = s.queue[1:]
	}
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
	s.state = StateIdle
	s.mu.Unlock()

	if played && s.observer != nil {
		s.observer.PlaybackEnded(e.item, err)
	}
	s.signal()
}

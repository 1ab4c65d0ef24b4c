// Package speech conecta el reconocimiento de voz del cliente con el buffer de entrada.
package speech

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"talkmate/internal/domain"
)

var (
	ErrUnavailable  = errors.New("speech recognition unavailable")
	ErrNotCapturing = errors.New("speech capture not active")
)

// Recognizer informa si la plataforma puede reconocer voz.
type Recognizer interface {
	Available() bool
}

// InputSink es el buffer de entrada pendiente de la sesion activa.
type InputSink interface {
	Input() string
	SetInput(text string)
}

type State string

const (
	StateIdle      State = "idle"
	StateListening State = "listening"
)

// ClientRecognizer refleja la capacidad anunciada por el cliente conectado.
type ClientRecognizer struct {
	mu        sync.RWMutex
	available bool
}

func (r *ClientRecognizer) SetAvailable(v bool) {
	r.mu.Lock()
	r.available = v
	r.mu.Unlock()
}

func (r *ClientRecognizer) Available() bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available
}

var errorMessages = map[string]string{
	"not-allowed":         "Microphone access was denied.",
	"service-not-allowed": "Speech recognition is not allowed on this device.",
	"no-speech":           "No speech was detected. Please try again.",
	"audio-capture":       "No microphone was found.",
	"network":             "Speech recognition failed because of a network error.",
	"aborted":             "Speech recognition was aborted.",
}

// ErrorMessage traduce un codigo de la plataforma a un texto legible.
func ErrorMessage(code string) string {
	if msg, ok := errorMessages[strings.TrimSpace(code)]; ok {
		return msg
	}
	if code == "" {
		return "Speech recognition failed."
	}
	return fmt.Sprintf("Speech recognition failed: %s", code)
}

// Adapter vuelca las transcripciones parciales en el buffer de entrada.
// Nunca envia mensajes por su cuenta.
type Adapter struct {
	recognizer Recognizer
	sink       InputSink
	notifier   domain.Notifier
	logger     *zap.Logger

	mu    sync.Mutex
	state State
	base  string
}

func NewAdapter(recognizer Recognizer, sink InputSink, notifier domain.Notifier, logger *zap.Logger) *Adapter {
	if notifier == nil {
		notifier = domain.NopNotifier
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{recognizer: recognizer, sink: sink, notifier: notifier, logger: logger, state: StateIdle}
}

func (a *Adapter) Available() bool {
	return a.recognizer != nil && a.recognizer.Available()
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start abre una captura. El texto ya tipeado se conserva como prefijo.
func (a *Adapter) Start() error {
	if !a.Available() {
		return ErrUnavailable
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == StateListening {
		return nil
	}
	a.state = StateListening
	a.base = strings.TrimSpace(a.sink.Input())
	a.notifier.Notify(domain.Event{Type: domain.EventSpeechState, Text: string(StateListening)})
	return nil
}

// Update reemplaza la transcripcion de la captura actual.
func (a *Adapter) Update(transcript string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateListening {
		return ErrNotCapturing
	}
	text := strings.TrimSpace(transcript)
	if a.base != "" && text != "" {
		text = a.base + " " + text
	} else if text == "" {
		text = a.base
	}
	a.sink.SetInput(text)
	return nil
}

func (a *Adapter) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Fail cierra la captura y avisa al usuario. El buffer queda como estaba.
func (a *Adapter) Fail(code string) error {
	a.mu.Lock()
	a.stopLocked()
	a.mu.Unlock()

	err := fmt.Errorf("%w: %s", domain.ErrCaptureFailure, ErrorMessage(code))
	a.logger.Info("speech capture failed", zap.String("code", code))
	notice := domain.Notice{Kind: domain.NoticeCaptureFailure, Message: ErrorMessage(code)}
	a.notifier.Notify(domain.Event{Type: domain.EventNotice, Notice: &notice})
	return err
}

func (a *Adapter) stopLocked() {
	if a.state == StateIdle {
		return
	}
	a.state = StateIdle
	a.base = ""
	a.notifier.Notify(domain.Event{Type: domain.EventSpeechState, Text: string(StateIdle)})
}

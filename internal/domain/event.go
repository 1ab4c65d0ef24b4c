package domain

type EventType string

const (
	EventMessageAppended EventType = "message.appended"
	EventMessageRemoved  EventType = "message.removed"
	EventTurnStarted     EventType = "turn.started"
	EventTurnResolved    EventType = "turn.resolved"
	EventNotice          EventType = "notice"
	EventInputUpdated    EventType = "input.updated"
	EventSpeechState     EventType = "speech.state"
	EventAudioReset      EventType = "audio.reset"
	EventAudioStarted    EventType = "audio.started"
	EventAudioEnded      EventType = "audio.ended"
)

// Event es lo que el nucleo publica hacia los transportes (websocket, CLI).
type Event struct {
	Type        EventType  `json:"type"`
	CharacterID string     `json:"character_id,omitempty"`
	Message     *Message   `json:"message,omitempty"`
	RequestID   string     `json:"request_id,omitempty"`
	Notice      *Notice    `json:"notice,omitempty"`
	Text        string     `json:"text,omitempty"`
	Audio       *AudioItem `json:"audio,omitempty"`
}

// Notifier recibe eventos del nucleo. Las implementaciones no deben bloquear.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapta una funcion a Notifier.
type NotifierFunc func(Event)

func (f NotifierFunc) Notify(e Event) {
	f(e)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}

// NopNotifier descarta todos los eventos.
var NopNotifier Notifier = nopNotifier{}

package domain

// Session es una foto inmutable del estado de una conversacion por personaje.
type Session struct {
	CharacterID string    `json:"character_id"`
	PersonaID   string    `json:"persona_id"`
	Messages    []Message `json:"messages"`
	Pending     bool      `json:"pending"`
}

// HistoryEntry usa el esquema de remitentes neutral del contrato saliente: "user" o el nombre del agente.
type HistoryEntry struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// Turn representa un ciclo pedido/respuesta en curso.
type Turn struct {
	RequestID     string         `json:"request_id"`
	SubmittedText string         `json:"submitted_text"`
	History       []HistoryEntry `json:"history"`

	done chan struct{}
}

// NewTurn crea un turno listo para ser resuelto con Resolve.
func NewTurn(requestID, text string, history []HistoryEntry) *Turn {
	return &Turn{
		RequestID:     requestID,
		SubmittedText: text,
		History:       history,
		done:          make(chan struct{}),
	}
}

// Done se cierra cuando la respuesta (exito o fallo) fue resuelta por completo.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}

// Resolve marca el turno como terminado. Llamarlo mas de una vez es un error de programacion.
func (t *Turn) Resolve() {
	close(t.done)
}

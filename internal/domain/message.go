package domain

import "time"

type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// Message es una burbuja del log de conversacion. Streaming marca el placeholder en vuelo.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Streaming bool      `json:"streaming"`
	CreatedAt time.Time `json:"created_at"`
}

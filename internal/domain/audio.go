package domain

import "time"

// AudioItem es un recurso de audio sintetizado para un fragmento revelado.
type AudioItem struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	SourceURI  string    `json:"source_uri"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

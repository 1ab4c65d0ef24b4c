package service

import (
	"talkmate/internal/domain"
)

const defaultHistoryLimit = 10

// buildHistory toma los ultimos mensajes ya asentados y los mapea al esquema saliente.
// Los placeholders en streaming y los ids excluidos no cuentan.
func buildHistory(messages []domain.Message, agentName string, limit int, exclude map[string]bool) []domain.HistoryEntry {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	settled := make([]domain.Message, 0, len(messages))
	for _, m := range messages {
		if m.Streaming || exclude[m.ID] {
			continue
		}
		settled = append(settled, m)
	}
	if len(settled) > limit {
		settled = settled[len(settled)-limit:]
	}

	entries := make([]domain.HistoryEntry, 0, len(settled))
	for _, m := range settled {
		sender := string(domain.SenderUser)
		if m.Sender == domain.SenderAgent {
			sender = agentName
		}
		entries = append(entries, domain.HistoryEntry{Sender: sender, Text: m.Text})
	}
	return entries
}

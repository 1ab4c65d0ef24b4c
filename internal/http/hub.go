package http

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"talkmate/internal/domain"
)

var (
	ErrNoAudioClient   = errors.New("no audio client connected")
	ErrPlaybackTimeout = errors.New("playback ack timeout")
)

const defaultPlayTimeout = 2 * time.Minute

// Tipos de frame salientes.
const (
	frameEvent     = "event"
	frameSnapshot  = "snapshot"
	frameAudioPlay = "audio.play"
	frameAudioStop = "audio.stop"
	frameError     = "error"
)

type outFrame struct {
	Type    string            `json:"type"`
	Event   *domain.Event     `json:"event,omitempty"`
	Session *domain.Session   `json:"session,omitempty"`
	Audio   *domain.AudioItem `json:"audio,omitempty"`
	ID      string            `json:"id,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// Hub reparte eventos y comandos de audio entre las conexiones websocket de cada usuario.
type Hub struct {
	logger      *zap.Logger
	playTimeout time.Duration

	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	players map[string]*RemotePlayer
}

func NewHub(logger *zap.Logger, playTimeout time.Duration) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if playTimeout <= 0 {
		playTimeout = defaultPlayTimeout
	}
	return &Hub{
		logger:      logger,
		playTimeout: playTimeout,
		clients:     make(map[string]map[*wsClient]struct{}),
		players:     make(map[string]*RemotePlayer),
	}
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	count := len(h.clients[c.userID])
	h.mu.Unlock()
	h.logger.Info("websocket client connected", zap.String("user_id", c.userID), zap.Int("connections", count))
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	set := h.clients[c.userID]
	delete(set, c)
	remaining := len(set)
	if remaining == 0 {
		delete(h.clients, c.userID)
	}
	player := h.players[c.userID]
	h.mu.Unlock()

	if remaining == 0 && player != nil {
		player.failAll(ErrNoAudioClient)
	}
	h.logger.Info("websocket client disconnected", zap.String("user_id", c.userID), zap.Int("connections", remaining))
}

// Connected devuelve cuantas conexiones tiene el usuario.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// send entrega el frame a todas las conexiones del usuario sin bloquear.
// Devuelve cuantas lo aceptaron.
func (h *Hub) send(userID string, frame outFrame) int {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		h.logger.Error("encode frame failed", zap.Error(err), zap.String("type", frame.Type))
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for c := range h.clients[userID] {
		if c.enqueue(payload) {
			delivered++
		} else {
			h.logger.Warn("websocket send queue full, frame dropped",
				zap.String("user_id", userID), zap.String("type", frame.Type))
		}
	}
	return delivered
}

// NotifierFor publica los eventos del nucleo del usuario como frames "event".
func (h *Hub) NotifierFor(userID string) domain.Notifier {
	return domain.NotifierFunc(func(e domain.Event) {
		h.send(userID, outFrame{Type: frameEvent, Event: &e})
	})
}

// PlayerFor devuelve el player remoto del usuario, creandolo la primera vez.
func (h *Hub) PlayerFor(userID string) *RemotePlayer {
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.players[userID]; ok {
		return p
	}
	p := &RemotePlayer{
		hub:     h,
		userID:  userID,
		timeout: h.playTimeout,
		waiting: make(map[string]chan error),
	}
	h.players[userID] = p
	return p
}

// Close cierra todas las conexiones abiertas.
func (h *Hub) Close() {
	h.mu.RLock()
	var all []*wsClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range all {
		c.close()
	}
}

// RemotePlayer reproduce audio en el cliente: manda audio.play y espera el ack
// audio.ended o audio.error con el mismo id.
type RemotePlayer struct {
	hub     *Hub
	userID  string
	timeout time.Duration

	mu      sync.Mutex
	waiting map[string]chan error
}

func (p *RemotePlayer) Play(ctx context.Context, item domain.AudioItem) error {
	ack := make(chan error, 1)
	p.mu.Lock()
	p.waiting[item.ID] = ack
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.waiting, item.ID)
		p.mu.Unlock()
	}()

	if p.hub.send(p.userID, outFrame{Type: frameAudioPlay, Audio: &item}) == 0 {
		return ErrNoAudioClient
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		p.hub.send(p.userID, outFrame{Type: frameAudioStop, ID: item.ID})
		return ctx.Err()
	case <-timer.C:
		p.hub.send(p.userID, outFrame{Type: frameAudioStop, ID: item.ID})
		return ErrPlaybackTimeout
	}
}

// Ack resuelve la reproduccion en curso con ese id. Acks desconocidos se ignoran.
func (p *RemotePlayer) Ack(itemID string, err error) bool {
	p.mu.Lock()
	ch, ok := p.waiting[itemID]
	if ok {
		delete(p.waiting, itemID)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- err
	return true
}

func (p *RemotePlayer) failAll(err error) {
	p.mu.Lock()
	pending := p.waiting
	p.waiting = make(map[string]chan error)
	p.mu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}

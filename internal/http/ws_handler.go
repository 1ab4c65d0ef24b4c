package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"talkmate/internal/service"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxFrameSize     = 64 * 1024
	clientSendBuffer = 256
)

// Tipos de frame entrantes.
const (
	frameHello        = "hello"
	frameAudioEnded   = "audio.ended"
	frameAudioError   = "audio.error"
	frameSpeechStart  = "speech.start"
	frameSpeechUpdate = "speech.update"
	frameSpeechStop   = "speech.stop"
	frameSpeechError  = "speech.error"
	frameInput        = "input"
	frameSubmit       = "submit"
)

type inFrame struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Text   string `json:"text,omitempty"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error,omitempty"`
	Speech bool   `json:"speech,omitempty"`
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSClient(userID string, conn *websocket.Conn) *wsClient {
	return &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
		done:   make(chan struct{}),
	}
}

func (c *wsClient) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *wsClient) writePump(logger *zap.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Debug("websocket write failed", zap.Error(err), zap.String("user_id", c.userID))
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}

func (c *wsClient) readPump(logger *zap.Logger, handle func(inFrame)) {
	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket closed unexpectedly", zap.Error(err), zap.String("user_id", c.userID))
			}
			return
		}
		var frame inFrame
		if err := sonic.Unmarshal(data, &frame); err != nil {
			c.sendFrame(logger, outFrame{Type: frameError, Error: "invalid frame"})
			continue
		}
		handle(frame)
	}
}

func (c *wsClient) sendFrame(logger *zap.Logger, frame outFrame) {
	payload, err := sonic.Marshal(frame)
	if err != nil {
		logger.Error("encode frame failed", zap.Error(err), zap.String("type", frame.Type))
		return
	}
	c.enqueue(payload)
}

// WSHandler atiende GET /ws: eventos hacia el cliente, acks de audio y voz desde el cliente.
type WSHandler struct {
	logger   *zap.Logger
	hub      *Hub
	apps     *service.AppStore
	upgrader websocket.Upgrader
}

// NewWSHandler crea el handler. Sin allowedOrigins se acepta cualquier origen.
func NewWSHandler(logger *zap.Logger, hub *Hub, apps *service.AppStore, allowedOrigins []string) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[strings.ToLower(o)] = true
		}
	}
	return &WSHandler{
		logger: logger,
		hub:    hub,
		apps:   apps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 {
					return true
				}
				return origins[strings.ToLower(r.Header.Get("Origin"))]
			},
		},
	}
}

// Serve hace el upgrade y bloquea hasta que el cliente se desconecta.
func (h *WSHandler) Serve(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok || strings.TrimSpace(claims.UserID) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	app := h.apps.Get(claims.UserID)
	client := newWSClient(app.UserID(), conn)
	h.hub.register(client)
	defer func() {
		h.hub.unregister(client)
		client.close()
	}()
	go client.writePump(h.logger)

	snapshot := app.Snapshot()
	client.sendFrame(h.logger, outFrame{Type: frameSnapshot, Session: &snapshot})

	ctx := context.WithoutCancel(c.Request.Context())
	client.readPump(h.logger, func(frame inFrame) {
		h.dispatch(ctx, app, client, frame)
	})
}

func (h *WSHandler) dispatch(ctx context.Context, app *service.ChatApp, client *wsClient, frame inFrame) {
	switch frame.Type {
	case frameHello:
		app.SetSpeechAvailable(frame.Speech)
	case frameAudioEnded:
		h.hub.PlayerFor(app.UserID()).Ack(frame.ID, nil)
	case frameAudioError:
		msg := strings.TrimSpace(frame.Error)
		if msg == "" {
			msg = "client playback error"
		}
		h.hub.PlayerFor(app.UserID()).Ack(frame.ID, errors.New(msg))
	case frameSpeechStart:
		if err := app.Speech().Start(); err != nil {
			client.sendFrame(h.logger, outFrame{Type: frameError, Error: err.Error()})
		}
	case frameSpeechUpdate:
		if err := app.Speech().Update(frame.Text); err != nil {
			client.sendFrame(h.logger, outFrame{Type: frameError, Error: err.Error()})
		}
	case frameSpeechStop:
		app.Speech().Stop()
	case frameSpeechError:
		_ = app.Speech().Fail(frame.Code)
	case frameInput:
		app.SetInput(frame.Text)
	case frameSubmit:
		var err error
		if strings.TrimSpace(frame.Text) == "" {
			_, err = app.SubmitInput(ctx)
		} else {
			_, err = app.Submit(ctx, frame.Text)
		}
		if err != nil {
			h.logger.Error("websocket submit failed", zap.Error(err), zap.String("user_id", app.UserID()))
			client.sendFrame(h.logger, outFrame{Type: frameError, Error: "could not submit message"})
		}
	default:
		client.sendFrame(h.logger, outFrame{Type: frameError, Error: "unknown frame type"})
	}
}

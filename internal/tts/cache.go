package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedSynthesizer guarda en Redis las URIs ya sintetizadas para no repetir llamadas.
// Los errores de Redis no cortan la sintesis: se loguean y se delega al sintetizador.
type CachedSynthesizer struct {
	next   Synthesizer
	client redisKV
	voice  string
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewCachedSynthesizer(next Synthesizer, client *redis.Client, voice string, ttl time.Duration, logger *zap.Logger) Synthesizer {
	if client == nil {
		return next
	}
	return newCachedSynthesizer(next, client, voice, ttl, logger)
}

func newCachedSynthesizer(next Synthesizer, client redisKV, voice string, ttl time.Duration, logger *zap.Logger) *CachedSynthesizer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedSynthesizer{
		next:   next,
		client: client,
		voice:  voice,
		ttl:    ttl,
		prefix: "tts:",
		logger: logger,
	}
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, text string) (Speech, error) {
	if c == nil || c.next == nil {
		return Speech{}, ErrSynthesizerNotConfigured
	}
	if strings.TrimSpace(text) == "" {
		return Speech{}, ErrEmptyText
	}

	key := c.key(text)
	if c.client != nil {
		uri, err := c.client.Get(ctx, key).Result()
		switch {
		case err == nil && uri != "":
			return Speech{AudioURI: uri}, nil
		case err != nil && !errors.Is(err, redis.Nil):
			c.logger.Warn("tts cache get failed", zap.Error(err))
		}
	}

	speech, err := c.next.Synthesize(ctx, text)
	if err != nil {
		return Speech{}, err
	}

	if c.client != nil {
		if err := c.client.Set(ctx, key, speech.AudioURI, c.ttl).Err(); err != nil {
			c.logger.Warn("tts cache set failed", zap.Error(err))
		}
	}
	return speech, nil
}

func (c *CachedSynthesizer) key(text string) string {
	sum := sha256.Sum256([]byte(c.voice + "|" + text))
	return c.prefix + hex.EncodeToString(sum[:])
}

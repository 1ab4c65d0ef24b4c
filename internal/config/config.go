package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config centraliza la configuracion del servicio.
type Config struct {
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	GeminiBaseURL string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiModel   string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	UseMockLLM    bool   `env:"USE_MOCK_LLM" envDefault:"false"`
	LLMTimeoutSec int    `env:"LLM_TIMEOUT_SECONDS" envDefault:"60"`

	TTSModel           string `env:"TTS_MODEL" envDefault:"tts-1"`
	TTSVoice           string `env:"TTS_VOICE" envDefault:"alloy"`
	TTSCacheTTLMinutes int    `env:"TTS_CACHE_TTL_MINUTES" envDefault:"1440"`
	TTSWorkers         int    `env:"TTS_WORKERS" envDefault:"4"`

	WSAllowedOrigins      []string `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	PlaybackAckTimeoutSec int      `env:"PLAYBACK_ACK_TIMEOUT_SECONDS" envDefault:"120"`

	RevealBaseMS    int `env:"REVEAL_BASE_MS" envDefault:"500"`
	RevealPerRuneMS int `env:"REVEAL_PER_RUNE_MS" envDefault:"25"`
	RevealJitterMS  int `env:"REVEAL_JITTER_MS" envDefault:"200"`
	RevealCapMS     int `env:"REVEAL_CAP_MS" envDefault:"3000"`

	JWTSecret            string `env:"JWT_SECRET"`
	JWTAccessTTLMinutes  int    `env:"JWT_ACCESS_TTL_MINUTES" envDefault:"15"`
	JWTRefreshTTLMinutes int    `env:"JWT_REFRESH_TTL_MINUTES" envDefault:"43200"`

	LoginMaxAttempts   int `env:"LOGIN_MAX_ATTEMPTS" envDefault:"5"`
	LoginWindowMinutes int `env:"LOGIN_WINDOW_MINUTES" envDefault:"10"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPass     string `env:"SMTP_PASS"`
	SMTPFrom     string `env:"SMTP_FROM"`
	SMTPFromName string `env:"SMTP_FROM_NAME" envDefault:"TalkMate"`
	SMTPUseTLS   bool   `env:"SMTP_USE_TLS" envDefault:"false"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoadConfig lee un .env opcional y luego las variables de entorno.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

func (c *Config) RevealBase() time.Duration    { return ms(c.RevealBaseMS) }
func (c *Config) RevealPerRune() time.Duration { return ms(c.RevealPerRuneMS) }
func (c *Config) RevealJitter() time.Duration  { return ms(c.RevealJitterMS) }
func (c *Config) RevealCap() time.Duration     { return ms(c.RevealCapMS) }

func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSec) * time.Second
}

func (c *Config) PlaybackAckTimeout() time.Duration {
	return time.Duration(c.PlaybackAckTimeoutSec) * time.Second
}

func (c *Config) TTSCacheTTL() time.Duration {
	return time.Duration(c.TTSCacheTTLMinutes) * time.Minute
}

func (c *Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func (c *Config) JWTRefreshTTL() time.Duration {
	return time.Duration(c.JWTRefreshTTLMinutes) * time.Minute
}

func (c *Config) LoginWindow() time.Duration {
	return time.Duration(c.LoginWindowMinutes) * time.Minute
}

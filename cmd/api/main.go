package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"talkmate/internal/catalog"
	"talkmate/internal/config"
	"talkmate/internal/db"
	"talkmate/internal/email"
	apihttp "talkmate/internal/http"
	"talkmate/internal/llm"
	"talkmate/internal/repository"
	"talkmate/internal/service"
	"talkmate/internal/tts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	var userRepo repository.UserRepository = repository.NewMemoryUserRepository()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
		userRepo = repository.NewPgUserRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, users are kept in memory")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := client.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
			_ = client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
		cancel()
	}

	var emailSender email.Sender = email.NewLogSender(logger)
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	limiter := service.NewRedisLoginLimiter(redisClient, cfg.LoginWindow(), cfg.LoginMaxAttempts)
	if limiter == nil {
		limiter = service.NewMemoryLoginLimiter(cfg.LoginWindow(), cfg.LoginMaxAttempts)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL(), cfg.JWTRefreshTTL(), service.NewRedisRefreshTokenStore(redisClient))
	userSvc := service.NewUserService(logger, userRepo, emailSender, limiter)

	registry := catalog.Default()
	provider := llm.NewRouterFromConfig(cfg, registry.Characters(), logger)

	var synth tts.Synthesizer
	if openaiTTS := tts.NewOpenAISynthesizer(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.TTSModel, cfg.TTSVoice, logger); openaiTTS != nil {
		synth = tts.NewCachedSynthesizer(openaiTTS, redisClient, openaiTTS.Voice(), cfg.TTSCacheTTL(), logger)
	} else {
		logger.Warn("tts not configured, voice output disabled")
	}

	pacer := &service.RevealPacer{
		Base:      cfg.RevealBase(),
		PerRune:   cfg.RevealPerRune(),
		MaxJitter: cfg.RevealJitter(),
		Cap:       cfg.RevealCap(),
	}
	hub := apihttp.NewHub(logger, cfg.PlaybackAckTimeout())
	apps := service.NewAppStore(func(userID string) *service.ChatApp {
		return service.NewChatApp(userID, service.ChatDeps{
			Catalog:        registry,
			Provider:       provider,
			Synthesizer:    synth,
			SynthWorkers:   cfg.TTSWorkers,
			Pacer:          pacer,
			Logger:         logger,
			RequestTimeout: cfg.LLMTimeout(),
			VoiceEnabled:   synth != nil,
		}, hub.PlayerFor(userID), hub.NotifierFor(userID))
	})

	userHandler := apihttp.NewUserHandler(logger, userSvc, jwtSvc)
	chatHandler := apihttp.NewChatHandler(logger, apps)
	wsHandler := apihttp.NewWSHandler(logger, hub, apps, cfg.WSAllowedOrigins)
	router := apihttp.NewRouter(logger, jwtSvc, userHandler, chatHandler, wsHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	hub.Close()
	apps.Close()
}

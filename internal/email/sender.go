package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type AuthEvent string

const (
	AuthEventSignup AuthEvent = "signup"
	AuthEventLogin  AuthEvent = "login"
)

var ErrUnknownAuthEvent = errors.New("unknown auth email event")

// AuthEmail es un correo ya armado, listo para cualquier transporte.
type AuthEmail struct {
	To      string
	Subject string
	Body    string
}

// Sender envia los correos de eventos de autenticacion.
type Sender interface {
	SendAuthEmail(ctx context.Context, toEmail string, event AuthEvent, username string) error
}

// BuildAuthEmail arma asunto y cuerpo para el evento.
func BuildAuthEmail(toEmail string, event AuthEvent, username string) (AuthEmail, error) {
	if strings.TrimSpace(toEmail) == "" {
		return AuthEmail{}, fmt.Errorf("to email is required")
	}
	switch event {
	case AuthEventSignup:
		name := strings.TrimSpace(username)
		if name == "" {
			name = "there"
		}
		return AuthEmail{
			To:      toEmail,
			Subject: "Welcome to TalkMate!",
			Body: fmt.Sprintf("Hi %s,\n\nThanks for signing up for TalkMate. We're excited to have you!\n\n"+
				"Start chatting now and explore conversations with AI.\n\nBest,\nThe TalkMate Team\n", name),
		}, nil
	case AuthEventLogin:
		return AuthEmail{
			To:      toEmail,
			Subject: "New Login to Your TalkMate Account",
			Body: "Hi,\n\nWe noticed a new login to your TalkMate account. If this was you, you can safely ignore this email.\n\n" +
				"If you don't recognize this activity, please secure your account immediately.\n\nBest,\nThe TalkMate Team\n",
		}, nil
	default:
		return AuthEmail{}, fmt.Errorf("%w: %q", ErrUnknownAuthEvent, event)
	}
}

type logSender struct {
	logger *zap.Logger
}

// NewLogSender solo registra el correo; se usa cuando no hay SMTP configurado.
func NewLogSender(logger *zap.Logger) Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSender{logger: logger}
}

func (s *logSender) SendAuthEmail(_ context.Context, toEmail string, event AuthEvent, username string) error {
	msg, err := BuildAuthEmail(toEmail, event, username)
	if err != nil {
		return err
	}
	s.logger.Info("auth email (smtp disabled)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("event", string(event)))
	return nil
}

package domain

import "errors"

// Taxonomia de errores del nucleo conversacional. Ninguno es fatal para el proceso.
var (
	ErrRequestFailure  = errors.New("request failure")
	ErrCaptureFailure  = errors.New("capture failure")
	ErrPlaybackFailure = errors.New("playback failure")
	ErrMalformedReply  = errors.New("malformed reply")
)

type NoticeKind string

const (
	NoticeRequestFailure NoticeKind = "request_failure"
	NoticeCaptureFailure NoticeKind = "capture_failure"
	NoticeMalformedReply NoticeKind = "malformed_reply"
)

// Notice es un aviso transitorio y descartable para el usuario.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// NoticeFromError clasifica un error en el aviso que se muestra al usuario.
func NoticeFromError(err error) Notice {
	switch {
	case errors.Is(err, ErrMalformedReply):
		return Notice{Kind: NoticeMalformedReply, Message: "The reply could not be understood. Please try again."}
	case errors.Is(err, ErrCaptureFailure):
		return Notice{Kind: NoticeCaptureFailure, Message: err.Error()}
	default:
		return Notice{Kind: NoticeRequestFailure, Message: "The character could not respond right now. Please try again."}
	}
}

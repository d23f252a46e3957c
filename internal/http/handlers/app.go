// Package handlers is the REST surface of the studio. Every handler renders
// from a controller snapshot or a service result; no domain state lives here.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"studio/internal/account"
	"studio/internal/apperr"
	"studio/internal/codec"
	"studio/internal/genai"
	"studio/internal/middleware"
	"studio/internal/studio"
)

// ChatGateway is the conversational slice of the generation gateway.
type ChatGateway interface {
	Chat(ctx context.Context, owner string, persona genai.Persona, message string) (string, error)
	ChatParts(ctx context.Context, owner string, persona genai.Persona, parts []genai.Part) (string, error)
	Transcript(owner string, persona genai.Persona) []genai.Message
	GenerateQuiz(ctx context.Context, conversation string) ([]genai.QuizQuestion, error)
	SynthesizeSpeech(ctx context.Context, text, locale string) ([]byte, error)
}

// GalleryStore persists and lists generation results.
type GalleryStore interface {
	SaveResult(ctx context.Context, userID string, generated []byte, prompt string, original *codec.SourceImage) error
	ListResults(ctx context.Context, userID string) ([]account.GalleryRecord, error)
}

type App struct {
	Auth    *account.AuthService
	Gallery GalleryStore
	Chat    ChatGateway
	Studio  *studio.Manager
	Logger  zerolog.Logger

	validate *validator.Validate
}

func NewApp(auth *account.AuthService, gallery GalleryStore, chat ChatGateway, manager *studio.Manager, logger zerolog.Logger) *App {
	return &App{
		Auth:     auth,
		Gallery:  gallery,
		Chat:     chat,
		Studio:   manager,
		Logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, map[string]string{"error": code, "message": message})
}

// fail maps a service error to an HTTP status plus the user-visible message.
func (a *App) fail(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	code := "upstream"
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		status, code = http.StatusBadRequest, "bad_request"
	case errors.Is(err, apperr.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperr.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrBusy):
		status, code = http.StatusConflict, "busy"
	case errors.Is(err, apperr.ErrTimeout):
		status, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, apperr.ErrSaveFailure):
		status, code = http.StatusInternalServerError, "save_failed"
	}
	a.error(w, status, code, apperr.UserMessage(err))
}

// decode unmarshals and validates a JSON request body.
func (a *App) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid payload", apperr.ErrInvalidInput)
	}
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return nil
}

// session returns the login session resolved by the auth middleware.
func (a *App) session(r *http.Request) (*account.Session, bool) {
	return middleware.SessionFromContext(r.Context())
}

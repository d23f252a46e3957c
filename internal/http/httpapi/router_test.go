package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"studio/internal/account"
	"studio/internal/genai"
	"studio/internal/http/handlers"
	"studio/internal/studio"
)

type okVerifier struct{}

func (okVerifier) Verify(ctx context.Context, idToken string) (*account.IdentityClaims, error) {
	return &account.IdentityClaims{Subject: "user-1", Name: "Alex"}, nil
}

type nullGen struct{}

func (nullGen) EditImage(ctx context.Context, data []byte, mime, prompt string) ([]byte, error) {
	return []byte("x"), nil
}
func (nullGen) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	return []byte("x"), nil
}
func (nullGen) AnalyzeImage(ctx context.Context, data []byte, mime string) ([]string, error) {
	return []string{"a"}, nil
}

type nullChat struct{}

func (nullChat) Chat(ctx context.Context, owner string, persona genai.Persona, message string) (string, error) {
	return "ok", nil
}
func (nullChat) ChatParts(ctx context.Context, owner string, persona genai.Persona, parts []genai.Part) (string, error) {
	return "ok", nil
}
func (nullChat) Transcript(owner string, persona genai.Persona) []genai.Message { return nil }
func (nullChat) GenerateQuiz(ctx context.Context, conversation string) ([]genai.QuizQuestion, error) {
	return nil, nil
}
func (nullChat) SynthesizeSpeech(ctx context.Context, text, locale string) ([]byte, error) {
	return nil, nil
}
func (nullChat) DropSessions(owner string) {}

func newTestRouter(t *testing.T) (http.Handler, *account.AuthService) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	auth := account.NewAuthService(okVerifier{}, "secret", logger)
	manager := studio.NewManager(nullGen{}, nullChat{}, logger)
	app := handlers.NewApp(auth, nil, nullChat{}, manager, logger)
	return NewRouter(app, logger, []string{"http://localhost:5173"}), auth
}

func TestHealthIsPublic(t *testing.T) {
	router, _ := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)
	for _, target := range []string{"/v1/me", "/v1/studio/", "/v1/gallery"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s status = %d, want 401", target, rec.Code)
		}
	}
}

func TestBearerTokenGrantsAccess(t *testing.T) {
	router, auth := newTestRouter(t)
	_, token, err := auth.SignIn(context.Background(), "id-token")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "user-1") {
		t.Fatalf("body = %s", rec.Body)
	}
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/v1/me", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

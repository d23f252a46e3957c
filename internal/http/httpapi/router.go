package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"studio/internal/http/handlers"
	"studio/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
		middleware.CORS(allowedOrigins),
		middleware.Locale,
	)

	r.Get("/v1/healthz", app.Health)

	r.Post("/v1/auth/google", app.AuthGoogleVerify)

	// Everything below requires a live session.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(app.Auth))

		r.Post("/v1/auth/signout", app.AuthSignOut)
		r.Get("/v1/me", app.Me)

		r.Route("/v1/studio", func(r chi.Router) {
			r.Get("/", app.StudioState)
			r.Post("/mode", app.StudioMode)
			r.Post("/image", app.StudioUpload)
			r.Put("/prompt", app.StudioPrompt)
			r.Post("/surprise", app.StudioSurprise)
			r.Get("/suggestions", app.StudioSuggestions)
			r.Post("/generate", app.StudioGenerate)
			r.Post("/reset", app.StudioReset)
			r.Post("/save", app.StudioSave)
			r.Get("/download", app.StudioDownload)
		})

		r.Route("/v1/chat/{persona}", func(r chi.Router) {
			r.Post("/", app.ChatSend)
			r.Get("/", app.ChatTranscript)
		})

		r.Route("/v1/study", func(r chi.Router) {
			r.Post("/message", app.StudyMessage)
			r.Post("/quiz", app.StudyQuizCreate)
			r.Post("/quiz/answer", app.StudyQuizAnswer)
			r.Post("/quiz/submit", app.StudyQuizSubmit)
			r.Post("/speech", app.StudySpeech)
			r.Post("/speech/done", app.StudySpeechDone)
		})

		r.Get("/v1/gallery", app.GalleryList)
	})

	return r
}

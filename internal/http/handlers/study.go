package handlers

import (
	"net/http"
	"strings"

	"studio/internal/codec"
	"studio/internal/genai"
	"studio/internal/middleware"
	"studio/internal/studio"
)

// The study uploader caps attachments at 5MB, enforced before the read.
const maxStudyUpload = 5 << 20

type quizAnswerRequest struct {
	Index  int    `json:"index"`
	Option string `json:"option" validate:"required"`
}

type speechRequest struct {
	Text string `json:"text" validate:"required"`
}

type playbackDoneRequest struct {
	Token string `json:"token" validate:"required"`
}

// StudyMessage sends one turn on the study thread: text, an image, or both.
// The image arrives as multipart form data next to the text field.
func (a *App) StudyMessage(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	if err := r.ParseMultipartForm(maxStudyUpload); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid form payload")
		return
	}

	var parts []genai.Part
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		img, err := codec.DecodeUpload(header.Filename, header.Header.Get("Content-Type"), header.Size, maxStudyUpload, file)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		parts = append(parts, genai.Part{Data: img.Data, Mime: img.Mime})
	}
	if text := strings.TrimSpace(r.FormValue("message")); text != "" {
		parts = append(parts, genai.Part{Text: text})
	}
	if len(parts) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "message or image is required")
		return
	}

	reply, err := a.Chat.ChatParts(r.Context(), session.ID, genai.PersonaStudy, parts)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"reply": reply})
}

// StudyQuizCreate synthesizes a quiz from the flattened study thread and
// installs it as the session's current quiz. Correct answers stay
// server-side until submission.
func (a *App) StudyQuizCreate(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}

	transcript := a.Chat.Transcript(session.ID, genai.PersonaStudy)
	flattened := genai.FlattenTranscript(transcript)
	if flattened == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "the study conversation is empty")
		return
	}

	questions, err := a.Chat.GenerateQuiz(r.Context(), flattened)
	if err != nil {
		a.fail(w, err)
		return
	}
	quiz, err := studio.NewQuiz(questions)
	if err != nil {
		a.fail(w, err)
		return
	}
	a.Studio.Study(session.ID).SetQuiz(quiz)

	out := make([]map[string]any, 0, len(questions))
	for i, q := range questions {
		out = append(out, map[string]any{
			"index":    i,
			"question": q.Question,
			"options":  q.Options,
		})
	}
	a.json(w, http.StatusOK, map[string]any{"questions": out})
}

// StudyQuizAnswer records one selection on the current quiz.
func (a *App) StudyQuizAnswer(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req quizAnswerRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	quiz, ok := a.Studio.Study(session.ID).Quiz()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no quiz has been generated")
		return
	}
	if err := quiz.Answer(req.Index, req.Option); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "recorded"})
}

// StudyQuizSubmit freezes the answer sheet and reports the score.
func (a *App) StudyQuizSubmit(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	quiz, ok := a.Studio.Study(session.ID).Quiz()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "no quiz has been generated")
		return
	}
	score, err := quiz.Submit()
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]int{"score": score, "total": quiz.Len()})
}

// StudySpeech synthesizes assistant text into audio. Playback is exclusive:
// the response carries a token that must be returned via StudySpeechDone
// before the next clip may start.
func (a *App) StudySpeech(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req speechRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}

	playback := a.Studio.Study(session.ID).Playback
	token, err := playback.Start()
	if err != nil {
		a.fail(w, err)
		return
	}

	locale := middleware.LocaleFromContext(r.Context())
	audio, err := a.Chat.SynthesizeSpeech(r.Context(), req.Text, locale)
	if err != nil {
		playback.Done(token)
		a.fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "audio/L16;rate=24000")
	w.Header().Set("X-Playback-Token", token)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(audio)
}

// StudySpeechDone releases the playback slot.
func (a *App) StudySpeechDone(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req playbackDoneRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if !a.Studio.Study(session.ID).Playback.Done(req.Token) {
		a.error(w, http.StatusConflict, "busy", "the token does not match the playing clip")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "released"})
}

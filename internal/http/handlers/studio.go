package handlers

import (
	"context"
	"fmt"
	"net/http"

	"studio/internal/account"
	"studio/internal/codec"
	"studio/internal/studio"
)

type modeRequest struct {
	Mode string `json:"mode" validate:"required"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

// StudioState renders the session's full controller snapshot.
func (a *App) StudioState(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	a.json(w, http.StatusOK, a.Studio.Controller(session.ID).Snapshot())
}

// StudioMode performs an explicit navigation; moving to select resets the
// working state.
func (a *App) StudioMode(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req modeRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	if err := ctrl.EnterMode(studio.Mode(req.Mode)); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

// StudioUpload accepts the edit-mode source image as multipart form data.
// There is no size cap on this surface; the study uploader has its own.
func (a *App) StudioUpload(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "image file is required")
		return
	}
	defer file.Close()

	img, err := codec.DecodeUpload(header.Filename, header.Header.Get("Content-Type"), header.Size, 0, file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	ctrl := a.Studio.Controller(session.ID)
	// The suggestion fetch outlives this request on purpose.
	if _, err := ctrl.AttachSource(context.WithoutCancel(r.Context()), img); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

// StudioPrompt replaces the working prompt.
func (a *App) StudioPrompt(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	var req promptRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	ctrl.SetPrompt(req.Prompt)
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

// StudioSurprise fills the prompt with a random suggestion.
func (a *App) StudioSurprise(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	prompt, err := ctrl.SurpriseMe()
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"prompt": prompt})
}

// StudioSuggestions renders the surface's current suggestion set and whether
// a per-image fetch is still outstanding.
func (a *App) StudioSuggestions(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	snap := a.Studio.Controller(session.ID).Snapshot()
	a.json(w, http.StatusOK, map[string]any{
		"suggestions": snap.Suggestions,
		"loading":     snap.SuggestionsLoading,
	})
}

// StudioGenerate submits the current request and renders the resulting state.
// Failures still return the snapshot so the surface can show the stale result
// together with the failure message.
func (a *App) StudioGenerate(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	if err := ctrl.Generate(r.Context()); err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

// StudioReset returns the session to the select screen.
func (a *App) StudioReset(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	ctrl.Reset()
	a.json(w, http.StatusOK, ctrl.Snapshot())
}

// StudioSave persists the live result to the caller's gallery.
func (a *App) StudioSave(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	err := ctrl.Save(r.Context(), func(ctx context.Context, generated []byte, prompt string, original *codec.SourceImage) error {
		return a.Gallery.SaveResult(ctx, session.UserID, generated, prompt, original)
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"status": "saved"})
}

// StudioDownload serves the live result as a PNG attachment under the fixed
// per-mode filename.
func (a *App) StudioDownload(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	ctrl := a.Studio.Controller(session.ID)
	result, ok := ctrl.Result()
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "there is no result to download")
		return
	}
	name, err := ctrl.DownloadFilename()
	if err != nil {
		a.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result)
}

// GalleryList renders the caller's saved results, most recent first.
func (a *App) GalleryList(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	records, err := a.Gallery.ListResults(r.Context(), session.UserID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if records == nil {
		records = []account.GalleryRecord{}
	}
	a.json(w, http.StatusOK, map[string]any{"records": records})
}

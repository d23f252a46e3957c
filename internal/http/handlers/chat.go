package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/genai"
	"studio/internal/studio"
)

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

type chatResponse struct {
	Reply string `json:"reply"`
	// Filled for the prompt_generation persona only: the first double-quoted
	// span of the reply, when one exists.
	ExtractedPrompt string `json:"extracted_prompt,omitempty"`
	PromptFound     bool   `json:"prompt_found"`
}

type transcriptPartDTO struct {
	Text  string `json:"text,omitempty"`
	Image bool   `json:"image,omitempty"`
}

type transcriptMessageDTO struct {
	Role  string              `json:"role"`
	Parts []transcriptPartDTO `json:"parts"`
}

// ChatSend forwards one message on the named persona thread. The three
// personas keep fully independent histories.
func (a *App) ChatSend(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	persona := genai.Persona(chi.URLParam(r, "persona"))
	if !genai.ValidPersona(persona) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown persona")
		return
	}
	var req chatRequest
	if err := a.decode(r, &req); err != nil {
		a.fail(w, err)
		return
	}

	reply, err := a.Chat.Chat(r.Context(), session.ID, persona, req.Message)
	if err != nil {
		a.fail(w, err)
		return
	}

	resp := chatResponse{Reply: reply}
	if persona == genai.PersonaPromptGen {
		resp.ExtractedPrompt, resp.PromptFound = studio.ExtractPrompt(reply)
	}
	a.json(w, http.StatusOK, resp)
}

// ChatTranscript renders the persona's history for the calling session.
func (a *App) ChatTranscript(w http.ResponseWriter, r *http.Request) {
	session, ok := a.session(r)
	if !ok {
		a.error(w, http.StatusUnauthorized, "unauthorized", "missing session")
		return
	}
	persona := genai.Persona(chi.URLParam(r, "persona"))
	if !genai.ValidPersona(persona) {
		a.error(w, http.StatusBadRequest, "bad_request", "unknown persona")
		return
	}

	transcript := a.Chat.Transcript(session.ID, persona)
	out := make([]transcriptMessageDTO, 0, len(transcript))
	for _, msg := range transcript {
		dto := transcriptMessageDTO{Role: msg.Role}
		for _, p := range msg.Parts {
			if p.Text != "" {
				dto.Parts = append(dto.Parts, transcriptPartDTO{Text: p.Text})
				continue
			}
			dto.Parts = append(dto.Parts, transcriptPartDTO{Image: true})
		}
		out = append(out, dto)
	}
	a.json(w, http.StatusOK, map[string]any{"messages": out})
}

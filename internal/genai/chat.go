package genai

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/patrickmn/go-cache"

	"studio/internal/apperr"
)

// Persona is one independently-scoped conversation context. The three
// personas never share history.
type Persona string

const (
	PersonaGeneral   Persona = "general"
	PersonaPromptGen Persona = "prompt_generation"
	PersonaStudy     Persona = "study"
)

var personaInstructions = map[Persona]string{
	PersonaGeneral:   "You are a friendly creative assistant for a photo studio app. Help users with image ideas and editing tips. Keep answers short and conversational.",
	PersonaPromptGen: "You help users craft image-generation prompts. When you propose a prompt, wrap the full prompt in double quotes so it can be picked out of your reply.",
	PersonaStudy:     "You are a patient study tutor. Explain concepts clearly, ask follow-up questions, and use any uploaded images as study material.",
}

// ValidPersona reports whether the given value names a known persona.
func ValidPersona(p Persona) bool {
	_, ok := personaInstructions[p]
	return ok
}

// Part is one element of a conversation turn: text, or an inline image for
// the study persona.
type Part struct {
	Text string
	Data []byte
	Mime string
}

// Message is a single entry of a conversation transcript.
type Message struct {
	Role  string // "user" or "model"
	Parts []Part
}

// ChatSession owns one persona's append-only history. Handles are created
// lazily on first use and are never shared across personas or owners.
type ChatSession struct {
	mu      sync.Mutex
	persona Persona
	history []geminiContent
}

func sessionKey(owner string, persona Persona) string {
	return owner + "/" + string(persona)
}

// session returns the owner's conversation handle for a persona, creating it
// on first use.
func (c *Client) session(owner string, persona Persona) *ChatSession {
	key := sessionKey(owner, persona)
	if v, ok := c.sessions.Get(key); ok {
		return v.(*ChatSession)
	}
	s := &ChatSession{persona: persona}
	// Two goroutines can race here; Add keeps the first one and we re-read.
	if err := c.sessions.Add(key, s, cache.DefaultExpiration); err != nil {
		if v, ok := c.sessions.Get(key); ok {
			return v.(*ChatSession)
		}
	}
	return s
}

// DropSessions discards every conversation handle belonging to an owner.
// Called when the owning login session ends.
func (c *Client) DropSessions(owner string) {
	for _, persona := range []Persona{PersonaGeneral, PersonaPromptGen, PersonaStudy} {
		c.sessions.Delete(sessionKey(owner, persona))
	}
}

// Chat sends a plain text message on the owner's persona thread and returns
// the model reply.
func (c *Client) Chat(ctx context.Context, owner string, persona Persona, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("%w: message is empty", apperr.ErrInvalidInput)
	}
	return c.ChatParts(ctx, owner, persona, []Part{{Text: message}})
}

// ChatParts sends a multi-part turn (text and, for the study persona, inline
// images). The turn and the reply are appended to the persona's history only
// when the call succeeds, so a failed send can simply be retried.
func (c *Client) ChatParts(ctx context.Context, owner string, persona Persona, parts []Part) (string, error) {
	instruction, ok := personaInstructions[persona]
	if !ok {
		return "", fmt.Errorf("%w: unknown persona %q", apperr.ErrInvalidInput, persona)
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("%w: message is empty", apperr.ErrInvalidInput)
	}

	wireParts := make([]geminiPart, 0, len(parts))
	for _, p := range parts {
		switch {
		case len(p.Data) > 0:
			wireParts = append(wireParts, inlinePart(p.Data, p.Mime))
		case strings.TrimSpace(p.Text) != "":
			wireParts = append(wireParts, geminiPart{Text: p.Text})
		}
	}
	if len(wireParts) == 0 {
		return "", fmt.Errorf("%w: message is empty", apperr.ErrInvalidInput)
	}

	s := c.session(owner, persona)
	s.mu.Lock()
	defer s.mu.Unlock()

	turn := geminiContent{Role: "user", Parts: wireParts}
	payload := geminiGenerateContentRequest{
		Contents:          append(append([]geminiContent{}, s.history...), turn),
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: instruction}}},
		GenerationConfig: &geminiGenerationConfig{
			CandidateCount: 1,
		},
	}

	var resp geminiGenerateContentResponse
	if err := c.invoke(ctx, c.textModel, payload, &resp); err != nil {
		return "", err
	}
	reply, err := firstTextPart(&resp)
	if err != nil {
		return "", err
	}

	s.history = append(s.history, turn, geminiContent{Role: "model", Parts: []geminiPart{{Text: reply}}})
	return reply, nil
}

// Transcript returns a copy of the owner's persona history for rendering and
// for deriving study artifacts. Inline images come back as a "[IMAGE]"
// placeholder in FlattenTranscript.
func (c *Client) Transcript(owner string, persona Persona) []Message {
	s := c.session(owner, persona)
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, 0, len(s.history))
	for _, content := range s.history {
		msg := Message{Role: content.Role}
		for _, p := range content.Parts {
			if p.InlineData != nil {
				msg.Parts = append(msg.Parts, Part{Mime: p.InlineData.MimeType, Data: []byte(p.InlineData.Data)})
				continue
			}
			msg.Parts = append(msg.Parts, Part{Text: p.Text})
		}
		out = append(out, msg)
	}
	return out
}

// FlattenTranscript renders a transcript to plain text, one line per turn,
// replacing non-text parts with an [IMAGE] marker. Quiz synthesis runs over
// this form.
func FlattenTranscript(messages []Message) string {
	var b strings.Builder
	for _, msg := range messages {
		line := make([]string, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			if p.Text != "" {
				line = append(line, p.Text)
				continue
			}
			line = append(line, "[IMAGE]")
		}
		if len(line) == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(line, " "))
	}
	return b.String()
}

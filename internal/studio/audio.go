package studio

import (
	"sync"

	"github.com/google/uuid"

	"studio/internal/apperr"
)

// Playback enforces speech-clip exclusivity: only one clip plays at a time,
// tracked by a single token that must be returned before the next clip may
// start. It is deliberately independent of the mode controller.
type Playback struct {
	mu    sync.Mutex
	token string
}

// Start claims the playback slot and returns its token. It fails with a busy
// error while another clip holds the slot.
func (p *Playback) Start() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token != "" {
		return "", apperr.ErrBusy
	}
	p.token = uuid.NewString()
	return p.token, nil
}

// Done releases the slot. It reports false when the token does not match the
// current holder, in which case the slot is left untouched.
func (p *Playback) Done(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if token == "" || token != p.token {
		return false
	}
	p.token = ""
	return true
}

// Playing reports whether a clip currently holds the slot.
func (p *Playback) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token != ""
}

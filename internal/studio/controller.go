package studio

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/rs/zerolog"

	"studio/internal/apperr"
	"studio/internal/codec"
)

// Generator is the slice of the generation gateway the controller drives.
type Generator interface {
	EditImage(ctx context.Context, data []byte, mime, prompt string) ([]byte, error)
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
	AnalyzeImage(ctx context.Context, data []byte, mime string) ([]string, error)
}

// Controller is the per-session mode state machine. All fields are guarded by
// the mutex, which is never held across a gateway call; the epoch counter
// invalidates continuations of requests that were in flight when the state
// they would write to was torn down.
type Controller struct {
	gen    Generator
	logger zerolog.Logger

	mu                 sync.Mutex
	epoch              uint64
	mode               Mode
	source             *codec.SourceImage
	prompt             string
	result             []byte
	status             RequestStatus
	suggestions        []string
	suggestionsLoading bool
	isSaving           bool
}

func NewController(gen Generator, logger zerolog.Logger) *Controller {
	return &Controller{
		gen:         gen,
		logger:      logger,
		mode:        ModeSelect,
		status:      RequestStatus{Kind: StatusIdle},
		suggestions: append([]string(nil), defaultEditSuggestions...),
	}
}

// EnterMode performs an explicit navigation. Moving to Select is the reset
// action: it clears the source image, prompt, result and request status, and
// restores the default suggestion set. Any other target changes only the
// mode field.
func (c *Controller) EnterMode(target Mode) error {
	if !ValidMode(target) {
		return fmt.Errorf("%w: unknown mode %q", apperr.ErrInvalidInput, target)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = target
	if target != ModeSelect {
		return nil
	}
	c.epoch++
	c.source = nil
	c.prompt = ""
	c.result = nil
	c.status = RequestStatus{Kind: StatusIdle}
	c.suggestions = append([]string(nil), defaultEditSuggestions...)
	c.suggestionsLoading = false
	c.isSaving = false
	return nil
}

// Reset returns to the Select screen, discarding all working state.
func (c *Controller) Reset() { _ = c.EnterMode(ModeSelect) }

// AttachSource installs an uploaded image in edit mode and kicks off the
// best-effort suggestion fetch. The fetch does not block entry into the
// ready state: the returned channel closes when it settles, and the generate
// action stays usable while it is outstanding. A fetch failure falls back to
// the default suggestion set.
func (c *Controller) AttachSource(ctx context.Context, img *codec.SourceImage) (<-chan struct{}, error) {
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("%w: no image content", apperr.ErrInvalidInput)
	}
	c.mu.Lock()
	if c.mode != ModeEdit {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: uploads are only accepted in edit mode", apperr.ErrInvalidInput)
	}
	c.source = img
	c.suggestionsLoading = true
	epoch := c.epoch
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		suggestions, err := c.gen.AnalyzeImage(ctx, img.Data, img.Mime)

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.epoch != epoch {
			// The session was reset while the fetch was in flight; the
			// state it would write to no longer exists.
			return
		}
		c.suggestionsLoading = false
		if err != nil {
			c.logger.Warn().Err(err).Msg("studio: suggestion fetch failed, using defaults")
			c.suggestions = append([]string(nil), defaultEditSuggestions...)
			return
		}
		c.suggestions = suggestions
	}()
	return done, nil
}

// SetPrompt replaces the working prompt. No validation happens here; only
// submission requires non-emptiness.
func (c *Controller) SetPrompt(prompt string) {
	c.mu.Lock()
	c.prompt = prompt
	c.mu.Unlock()
}

// SurpriseMe fills the prompt with a random pick from the surface's current
// suggestion set.
func (c *Controller) SurpriseMe() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pool []string
	switch c.mode {
	case ModeEdit:
		pool = c.suggestions
	case ModeGenerate:
		pool = defaultGenerateSuggestions
	default:
		return "", fmt.Errorf("%w: no suggestions in %s mode", apperr.ErrInvalidInput, c.mode)
	}
	if len(pool) == 0 {
		return "", fmt.Errorf("%w: no suggestions available", apperr.ErrInvalidInput)
	}
	c.prompt = pool[rand.IntN(len(pool))]
	return c.prompt, nil
}

// Generate submits the current request. Preconditions are checked under the
// lock and violations never reach the gateway: the prompt must be non-empty,
// no request may already be pending on this surface, and edit mode must hold
// a source image — its absence is an internal-consistency error shown as a
// generic failure. On success the result replaces the previous one and any
// error is cleared; on failure the previous result stays visible and the
// failure message is taken from the lowest classifiable cause.
func (c *Controller) Generate(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeEdit && c.mode != ModeGenerate {
		c.mu.Unlock()
		return fmt.Errorf("%w: nothing to generate in %s mode", apperr.ErrInvalidInput, c.mode)
	}
	if c.prompt == "" {
		c.mu.Unlock()
		return fmt.Errorf("%w: prompt is empty", apperr.ErrInvalidInput)
	}
	if c.status.Kind == StatusPending {
		c.mu.Unlock()
		return apperr.ErrBusy
	}
	if c.mode == ModeEdit && c.source == nil {
		c.status = RequestStatus{Kind: StatusFailed, Message: apperr.UserMessage(apperr.ErrUpstream)}
		c.mu.Unlock()
		return fmt.Errorf("%w: edit request has no source image", apperr.ErrInvalidInput)
	}

	mode := c.mode
	prompt := c.prompt
	source := c.source
	epoch := c.epoch
	c.status = RequestStatus{Kind: StatusPending}
	c.mu.Unlock()

	var (
		result []byte
		err    error
	)
	if mode == ModeEdit {
		var raw []byte
		var mime string
		raw, mime, err = codec.ToTransportForm(source)
		if err == nil {
			result, err = c.gen.EditImage(ctx, raw, mime, prompt)
		}
	} else {
		result, err = c.gen.GenerateImage(ctx, prompt)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		// Reset happened mid-flight; discard the outcome.
		return err
	}
	if err != nil {
		c.status = RequestStatus{Kind: StatusFailed, Message: apperr.UserMessage(err)}
		c.logger.Warn().Err(err).Str("mode", string(mode)).Msg("studio: generation failed")
		return err
	}
	c.result = result
	c.status = RequestStatus{Kind: StatusSucceeded}
	c.logger.Info().Str("mode", string(mode)).Int("bytes", len(result)).Msg("studio: generation succeeded")
	return nil
}

// Save hands the current result to the gallery via fn while holding the
// orthogonal isSaving flag. It never changes the mode or the result; a
// failure is reported to the caller for inline display.
func (c *Controller) Save(ctx context.Context, fn func(ctx context.Context, generated []byte, prompt string, original *codec.SourceImage) error) error {
	c.mu.Lock()
	if len(c.result) == 0 {
		c.mu.Unlock()
		return fmt.Errorf("%w: there is no result to save", apperr.ErrInvalidInput)
	}
	if c.isSaving {
		c.mu.Unlock()
		return apperr.ErrBusy
	}
	c.isSaving = true
	result := c.result
	prompt := c.prompt
	var original *codec.SourceImage
	if c.mode == ModeEdit {
		original = c.source
	}
	c.mu.Unlock()

	err := fn(ctx, result, prompt, original)

	c.mu.Lock()
	c.isSaving = false
	c.mu.Unlock()
	if err != nil {
		c.logger.Warn().Err(err).Msg("studio: save failed")
	}
	return err
}

// Result exposes the raw bytes of the live generation result.
func (c *Controller) Result() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.result) == 0 {
		return nil, false
	}
	return c.result, true
}

// DownloadFilename is the fixed per-mode name the result downloads under.
func (c *Controller) DownloadFilename() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.mode {
	case ModeEdit:
		return "edited-photo.png", nil
	case ModeGenerate:
		return "generated-photo.png", nil
	}
	return "", fmt.Errorf("%w: no downloadable result in %s mode", apperr.ErrInvalidInput, c.mode)
}

// Snapshot returns a consistent copy of the visible state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Mode:               c.mode,
		Prompt:             c.prompt,
		HasSource:          c.source != nil,
		Status:             c.status,
		Suggestions:        append([]string(nil), c.suggestions...),
		SuggestionsLoading: c.suggestionsLoading,
		IsSaving:           c.isSaving,
	}
	if c.source != nil {
		snap.SourceName = c.source.Name
	}
	if len(c.result) > 0 {
		snap.Result = codec.ToDisplayForm(c.result)
	}
	return snap
}

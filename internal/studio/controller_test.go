package studio

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"studio/internal/apperr"
	"studio/internal/codec"
)

type fakeGen struct {
	mu           sync.Mutex
	editCalls    int
	genCalls     int
	analyzeCalls int

	editFn    func(prompt string) ([]byte, error)
	genFn     func(prompt string) ([]byte, error)
	analyzeFn func() ([]string, error)
}

func (f *fakeGen) EditImage(ctx context.Context, data []byte, mime, prompt string) ([]byte, error) {
	f.mu.Lock()
	f.editCalls++
	fn := f.editFn
	f.mu.Unlock()
	if fn == nil {
		return []byte("edited"), nil
	}
	return fn(prompt)
}

func (f *fakeGen) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	f.genCalls++
	fn := f.genFn
	f.mu.Unlock()
	if fn == nil {
		return []byte("generated"), nil
	}
	return fn(prompt)
}

func (f *fakeGen) AnalyzeImage(ctx context.Context, data []byte, mime string) ([]string, error) {
	f.mu.Lock()
	f.analyzeCalls++
	fn := f.analyzeFn
	f.mu.Unlock()
	if fn == nil {
		return []string{"a", "b", "c", "d"}, nil
	}
	return fn()
}

func (f *fakeGen) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.editCalls + f.genCalls + f.analyzeCalls
}

func newTestController(gen Generator) *Controller {
	return NewController(gen, zerolog.New(io.Discard))
}

func testSource() *codec.SourceImage {
	return &codec.SourceImage{Name: "photo.jpg", Mime: "image/jpeg", Data: []byte("jpeg-bytes")}
}

func TestStateClearedOnlyWhenTargetIsSelect(t *testing.T) {
	gen := &fakeGen{}
	c := newTestController(gen)

	require.NoError(t, c.EnterMode(ModeEdit))
	done, err := c.AttachSource(context.Background(), testSource())
	require.NoError(t, err)
	<-done
	c.SetPrompt("add a hat")
	require.NoError(t, c.Generate(context.Background()))

	// Navigating to a non-select mode keeps the working state.
	require.NoError(t, c.EnterMode(ModeGallery))
	snap := c.Snapshot()
	require.Equal(t, ModeGallery, snap.Mode)
	require.True(t, snap.HasSource)
	require.Equal(t, "add a hat", snap.Prompt)
	require.NotEmpty(t, snap.Result)

	// Returning to select clears everything and restores the defaults.
	require.NoError(t, c.EnterMode(ModeSelect))
	snap = c.Snapshot()
	require.Equal(t, ModeSelect, snap.Mode)
	require.False(t, snap.HasSource)
	require.Empty(t, snap.Prompt)
	require.Empty(t, snap.Result)
	require.Equal(t, RequestStatus{Kind: StatusIdle}, snap.Status)
	require.Equal(t, defaultEditSuggestions, snap.Suggestions)
}

func TestEditWithoutSourceNeverDispatches(t *testing.T) {
	gen := &fakeGen{}
	c := newTestController(gen)

	require.NoError(t, c.EnterMode(ModeEdit))
	c.SetPrompt("add a hat")

	err := c.Generate(context.Background())
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
	require.Zero(t, gen.calls())

	snap := c.Snapshot()
	require.Equal(t, StatusFailed, snap.Status.Kind)
	require.Equal(t, "Failed to communicate with the AI model.", snap.Status.Message)
}

func TestEmptyPromptIsANoOp(t *testing.T) {
	gen := &fakeGen{}
	for _, mode := range []Mode{ModeEdit, ModeGenerate} {
		c := newTestController(gen)
		require.NoError(t, c.EnterMode(mode))

		err := c.Generate(context.Background())
		require.ErrorIs(t, err, apperr.ErrInvalidInput)
		require.Equal(t, StatusIdle, c.Snapshot().Status.Kind)
	}
	require.Zero(t, gen.calls())
}

func TestFailThenSucceedShowsSecondResultWithoutError(t *testing.T) {
	attempts := 0
	gen := &fakeGen{genFn: func(prompt string) ([]byte, error) {
		attempts++
		if attempts == 1 {
			return nil, apperr.ErrTimeout
		}
		return []byte("second"), nil
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeGenerate))
	c.SetPrompt("a lion")

	require.ErrorIs(t, c.Generate(context.Background()), apperr.ErrTimeout)
	snap := c.Snapshot()
	require.Equal(t, StatusFailed, snap.Status.Kind)
	require.Equal(t, "The request timed out. Please try again.", snap.Status.Message)
	require.Empty(t, snap.Result)

	require.NoError(t, c.Generate(context.Background()))
	snap = c.Snapshot()
	require.Equal(t, StatusSucceeded, snap.Status.Kind)
	require.Empty(t, snap.Status.Message)
	require.Equal(t, codec.ToDisplayForm([]byte("second")), snap.Result)
}

func TestFailureKeepsStaleResultVisible(t *testing.T) {
	fail := false
	gen := &fakeGen{genFn: func(prompt string) ([]byte, error) {
		if fail {
			return nil, apperr.ErrUpstream
		}
		return []byte("first"), nil
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeGenerate))
	c.SetPrompt("a lion")
	require.NoError(t, c.Generate(context.Background()))

	fail = true
	require.Error(t, c.Generate(context.Background()))

	snap := c.Snapshot()
	require.Equal(t, StatusFailed, snap.Status.Kind)
	require.Equal(t, codec.ToDisplayForm([]byte("first")), snap.Result)
}

func TestPendingBlocksResubmission(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGen{genFn: func(prompt string) ([]byte, error) {
		<-release
		return []byte("done"), nil
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeGenerate))
	c.SetPrompt("a lion")

	first := make(chan error, 1)
	go func() { first <- c.Generate(context.Background()) }()

	require.Eventually(t, func() bool {
		return c.Snapshot().Status.Kind == StatusPending
	}, time.Second, time.Millisecond)

	require.ErrorIs(t, c.Generate(context.Background()), apperr.ErrBusy)

	close(release)
	require.NoError(t, <-first)
	require.Equal(t, 1, gen.calls())
}

func TestSuggestionFetchReplacesDefaults(t *testing.T) {
	gen := &fakeGen{analyzeFn: func() ([]string, error) {
		return []string{"w", "x", "y", "z"}, nil
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeEdit))

	done, err := c.AttachSource(context.Background(), testSource())
	require.NoError(t, err)
	<-done

	snap := c.Snapshot()
	require.Equal(t, []string{"w", "x", "y", "z"}, snap.Suggestions)
	require.False(t, snap.SuggestionsLoading)
}

func TestSuggestionFetchFailureFallsBackToDefaults(t *testing.T) {
	gen := &fakeGen{analyzeFn: func() ([]string, error) {
		return nil, errors.New("boom")
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeEdit))

	done, err := c.AttachSource(context.Background(), testSource())
	require.NoError(t, err)
	<-done

	snap := c.Snapshot()
	require.Equal(t, defaultEditSuggestions, snap.Suggestions)
	require.False(t, snap.SuggestionsLoading)
}

func TestResetAbandonsOutstandingSuggestionFetch(t *testing.T) {
	release := make(chan struct{})
	gen := &fakeGen{analyzeFn: func() ([]string, error) {
		<-release
		return []string{"late"}, nil
	}}
	c := newTestController(gen)
	require.NoError(t, c.EnterMode(ModeEdit))

	done, err := c.AttachSource(context.Background(), testSource())
	require.NoError(t, err)

	c.Reset()
	close(release)
	<-done

	// The continuation ran against torn-down state and must not write.
	snap := c.Snapshot()
	require.Equal(t, defaultEditSuggestions, snap.Suggestions)
	require.False(t, snap.SuggestionsLoading)
}

func TestGenerateRequiresUsableMode(t *testing.T) {
	gen := &fakeGen{}
	c := newTestController(gen)
	c.SetPrompt("a lion")

	require.ErrorIs(t, c.Generate(context.Background()), apperr.ErrInvalidInput)
	require.Zero(t, gen.calls())
}

func TestSurpriseMePicksFromActiveSet(t *testing.T) {
	c := newTestController(&fakeGen{})
	require.NoError(t, c.EnterMode(ModeGenerate))

	prompt, err := c.SurpriseMe()
	require.NoError(t, err)
	require.Contains(t, defaultGenerateSuggestions, prompt)
	require.Equal(t, prompt, c.Snapshot().Prompt)

	_, err = newTestController(&fakeGen{}).SurpriseMe()
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestSaveRunsOutsideTheModeMachine(t *testing.T) {
	c := newTestController(&fakeGen{})
	require.NoError(t, c.EnterMode(ModeGenerate))
	c.SetPrompt("a lion")
	require.NoError(t, c.Generate(context.Background()))

	var saved []byte
	err := c.Save(context.Background(), func(ctx context.Context, generated []byte, prompt string, original *codec.SourceImage) error {
		saved = generated
		require.Equal(t, "a lion", prompt)
		require.Nil(t, original)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []byte("generated"), saved)

	snap := c.Snapshot()
	require.False(t, snap.IsSaving)
	require.Equal(t, ModeGenerate, snap.Mode)
	require.NotEmpty(t, snap.Result)
}

func TestSaveFailureLeavesResultUntouched(t *testing.T) {
	c := newTestController(&fakeGen{})
	require.NoError(t, c.EnterMode(ModeGenerate))
	c.SetPrompt("a lion")
	require.NoError(t, c.Generate(context.Background()))

	err := c.Save(context.Background(), func(context.Context, []byte, string, *codec.SourceImage) error {
		return apperr.ErrSaveFailure
	})
	require.ErrorIs(t, err, apperr.ErrSaveFailure)

	snap := c.Snapshot()
	require.False(t, snap.IsSaving)
	require.NotEmpty(t, snap.Result)
	require.Equal(t, StatusSucceeded, snap.Status.Kind)
}

func TestSaveWithoutResult(t *testing.T) {
	c := newTestController(&fakeGen{})
	err := c.Save(context.Background(), func(context.Context, []byte, string, *codec.SourceImage) error {
		t.Fatal("save callback must not run without a result")
		return nil
	})
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestDownloadFilenamePerMode(t *testing.T) {
	c := newTestController(&fakeGen{})

	require.NoError(t, c.EnterMode(ModeEdit))
	name, err := c.DownloadFilename()
	require.NoError(t, err)
	require.Equal(t, "edited-photo.png", name)

	require.NoError(t, c.EnterMode(ModeGenerate))
	name, err = c.DownloadFilename()
	require.NoError(t, err)
	require.Equal(t, "generated-photo.png", name)

	require.NoError(t, c.EnterMode(ModeStudy))
	_, err = c.DownloadFilename()
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestAttachSourceOutsideEditMode(t *testing.T) {
	c := newTestController(&fakeGen{})
	_, err := c.AttachSource(context.Background(), testSource())
	require.ErrorIs(t, err, apperr.ErrInvalidInput)
}

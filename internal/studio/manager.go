package studio

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"studio/internal/account"
)

// ChatRegistry is the slice of the generation gateway that owns conversation
// handles; the manager tears an owner's handles down with their controller.
type ChatRegistry interface {
	DropSessions(owner string)
}

// StudySession bundles the study surface's decoupled state: the current quiz
// and the speech playback slot.
type StudySession struct {
	Playback *Playback

	mu   sync.Mutex
	quiz *Quiz
}

// SetQuiz installs a freshly generated quiz, replacing any previous one.
func (s *StudySession) SetQuiz(q *Quiz) {
	s.mu.Lock()
	s.quiz = q
	s.mu.Unlock()
}

// Quiz returns the current quiz, if one has been generated.
func (s *StudySession) Quiz() (*Quiz, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz, s.quiz != nil
}

type sessionState struct {
	controller *Controller
	study      *StudySession
}

// Manager owns one Controller (and study bundle) per login session, created
// lazily and discarded on sign-out together with the owner's conversation
// handles.
type Manager struct {
	gen    Generator
	chats  ChatRegistry
	logger zerolog.Logger

	mu     sync.Mutex
	states *cache.Cache
}

func NewManager(gen Generator, chats ChatRegistry, logger zerolog.Logger) *Manager {
	return &Manager{
		gen:    gen,
		chats:  chats,
		logger: logger,
		states: cache.New(24*time.Hour, 30*time.Minute),
	}
}

// Controller returns the session's mode controller, creating it on first use.
func (m *Manager) Controller(sessionID string) *Controller {
	return m.state(sessionID).controller
}

// Study returns the session's study bundle, creating it on first use.
func (m *Manager) Study(sessionID string) *StudySession {
	return m.state(sessionID).study
}

func (m *Manager) state(sessionID string) *sessionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.states.Get(sessionID); ok {
		return v.(*sessionState)
	}
	s := &sessionState{
		controller: NewController(m.gen, m.logger),
		study:      &StudySession{Playback: &Playback{}},
	}
	m.states.Set(sessionID, s, cache.DefaultExpiration)
	return s
}

// Drop discards all in-memory state belonging to a session, including its
// conversation handles.
func (m *Manager) Drop(sessionID string) {
	m.mu.Lock()
	m.states.Delete(sessionID)
	m.mu.Unlock()
	if m.chats != nil {
		m.chats.DropSessions(sessionID)
	}
	m.logger.Debug().Str("session_id", sessionID).Msg("studio: session state dropped")
}

// WatchAuth subscribes the manager to auth-state changes so that sign-out
// tears down everything the session owned. The returned func unsubscribes.
func (m *Manager) WatchAuth(auth *account.AuthService) func() {
	return auth.SubscribeAuthState(func(e account.AuthEvent) {
		if e.Session == nil {
			m.Drop(e.SessionID)
		}
	})
}
